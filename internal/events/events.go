// Package events carries the progress stream of a run from the orchestrator
// to whatever renders it.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

type Kind string

const (
	KindRunStarted  Kind = "run_started"
	KindCollection  Kind = "collection"
	KindDay         Kind = "day"
	KindListing     Kind = "listing"
	KindFile        Kind = "file"
	KindItemDone    Kind = "item_done"
	KindRunDone     Kind = "run_done"
	KindRunAborted  Kind = "run_aborted"
	KindPreflight   Kind = "preflight"
	KindDestination Kind = "destination"
)

type Event struct {
	Time    time.Time
	Kind    Kind
	Level   Level
	Message string
	Fields  map[string]any
}

// Sink receives events. Implementations must be safe for concurrent use
// since file outcomes are emitted from fetch goroutines.
type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Channel buffers events for a consumer goroutine. Emit blocks while the
// buffer is full and drops the event once Close has begun, so Close never
// waits on a consumer that stopped draining.
type Channel struct {
	mu     sync.RWMutex
	ch     chan Event
	done   chan struct{}
	once   sync.Once
	closed bool
}

func NewChannel(buffer int) *Channel {
	return &Channel{ch: make(chan Event, buffer), done: make(chan struct{})}
}

func (c *Channel) Emit(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	case <-c.done:
	}
}

func (c *Channel) Events() <-chan Event {
	return c.ch
}

func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		close(c.ch)
	})
}

// Pump delivers the channel's events to dst on a separate goroutine. The
// returned stop closes the channel and waits until every buffered event has
// reached dst.
func (c *Channel) Pump(dst Sink) (stop func()) {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for e := range c.ch {
			dst.Emit(e)
		}
	}()
	return func() {
		c.Close()
		<-drained
	}
}

// Logger writes events to a zap logger at the event's level.
type Logger struct {
	log *zap.SugaredLogger
}

func NewLogger(log *zap.SugaredLogger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Emit(e Event) {
	kv := make([]any, 0, 2+2*len(e.Fields))
	kv = append(kv, "kind", string(e.Kind))
	for k, v := range e.Fields {
		kv = append(kv, k, v)
	}
	switch e.Level {
	case zapcore.DebugLevel:
		l.log.Debugw(e.Message, kv...)
	case zapcore.WarnLevel:
		l.log.Warnw(e.Message, kv...)
	case zapcore.ErrorLevel:
		l.log.Errorw(e.Message, kv...)
	default:
		l.log.Infow(e.Message, kv...)
	}
}

type multi []Sink

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans every event out to sinks in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
