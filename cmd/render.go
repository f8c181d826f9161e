package cmd

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap/zapcore"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/events"
)

// renderer prints run events as "HH:MM > message" lines above a progress bar
// that counts finished work items. It also counts downloaded bytes when used
// as the fetcher's progress writer.
type renderer struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel zapcore.Level
	bar      *progressbar.ProgressBar
	done     int
	total    int
	bytes    atomic.Int64
}

func newRenderer(out io.Writer, minLevel zapcore.Level) *renderer {
	return &renderer{out: out, minLevel: minLevel}
}

func (r *renderer) Write(p []byte) (int, error) {
	r.bytes.Add(int64(len(p)))
	return len(p), nil
}

func (r *renderer) Emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Kind {
	case events.KindRunStarted:
		if n, ok := e.Fields["items"].(int); ok {
			r.start(n)
		}
	case events.KindItemDone:
		r.done++
		if r.bar != nil {
			r.bar.Describe(r.description())
			_ = r.bar.Add(1)
		}
	}

	if e.Level >= r.minLevel {
		if r.bar != nil {
			_ = r.bar.Clear()
		}
		fmt.Fprintf(r.out, "%s > %s\n", e.Time.Format("15:04"), e.Message)
	}

	if e.Kind == events.KindRunDone || e.Kind == events.KindRunAborted {
		r.finish()
	}
}

func (r *renderer) start(total int) {
	r.done, r.total = 0, total
	r.bytes.Store(0)
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(r.description()),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionUseANSICodes(true),
	)
}

func (r *renderer) finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	_ = r.bar.Exit()
	fmt.Fprintln(r.out)
	r.bar = nil
}

func (r *renderer) description() string {
	return fmt.Sprintf("[%d/%d items, %.1f MB]", r.done, r.total, float64(r.bytes.Load())/(1<<20))
}
