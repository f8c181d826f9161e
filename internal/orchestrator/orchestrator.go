package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/semaphore"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/events"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/fetch"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/listing"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/matcher"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/workitems"
)

// Orchestrator runs download requests one at a time. Work items are processed
// sequentially; the files of one item are fetched concurrently and joined
// before the next item starts.
type Orchestrator struct {
	Lister  Lister
	Fetcher Fetcher
	Disk    DiskChecker
	Opts    Options
	Logger  *zap.SugaredLogger
	Tracer  trace.Tracer
	// Now and NewRunID default to time.Now and uuid.New.
	Now      func() time.Time
	NewRunID func() uuid.UUID

	itemsTotal    metric.Int64Counter
	listingErrors metric.Int64Counter
	itemDuration  metric.Int64Histogram
	runDuration   metric.Int64Histogram
	mu            sync.Mutex
	state         State
}

func New(
	lister Lister,
	fetcher Fetcher,
	disk DiskChecker,
	opts Options,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Orchestrator, error) {
	o := &Orchestrator{
		Lister:   lister,
		Fetcher:  fetcher,
		Disk:     disk,
		Opts:     opts,
		Logger:   logger,
		Tracer:   tracer,
		Now:      time.Now,
		NewRunID: uuid.New,
	}

	var err error
	o.itemsTotal, err = meter.Int64Counter(
		"orchestrator.items.total",
		metric.WithDescription("Number of work items processed"),
	)
	if err != nil {
		return nil, err
	}

	o.listingErrors, err = meter.Int64Counter(
		"orchestrator.listing.errors",
		metric.WithDescription("Number of work items whose listing failed"),
	)
	if err != nil {
		return nil, err
	}

	o.itemDuration, err = meter.Int64Histogram(
		"orchestrator.item.duration",
		metric.WithDescription("Duration of one work item including its downloads"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	o.runDuration, err = meter.Int64Histogram(
		"orchestrator.run.duration",
		metric.WithDescription("Duration of a whole run"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return o, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// run holds the per-run state shared by the helpers below.
type run struct {
	id   uuid.UUID
	req  models.DownloadRequest
	sink events.Sink
}

// Run executes req and returns its report. Validation and precondition
// failures, and cancellation between items, end the run with an error
// wrapping ErrAborted; the report then holds the items finished so far.
// Listing and file failures are recorded in the report and never abort.
func (o *Orchestrator) Run(
	ctx context.Context,
	req models.DownloadRequest,
	sink events.Sink,
) (models.Report, error) {
	o.mu.Lock()
	if o.state == StateValidating || o.state == StateRunning {
		o.mu.Unlock()
		return models.Report{}, ErrBusy
	}
	o.state = StateValidating
	o.mu.Unlock()

	if sink == nil {
		sink = events.Discard
	}
	r := &run{id: o.NewRunID(), req: req, sink: sink}
	report := models.Report{RunID: r.id, Started: o.Now()}

	ctx, span := o.Tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("run_id", r.id.String()),
		attribute.StringSlice("collections", req.Collections),
		attribute.String("start", req.Start.Format(time.DateOnly)),
		attribute.String("end", req.End.Format(time.DateOnly)),
		attribute.Int("hour_start", req.HourStart),
		attribute.Int("hour_end", req.HourEnd),
	))
	defer span.End()

	abort := func(err error) (models.Report, error) {
		err = fmt.Errorf("%w: %w", ErrAborted, err)
		report.Finished = o.Now()
		span.RecordError(err)
		span.SetStatus(codes.Error, "aborted")
		o.emit(r, events.KindRunAborted, zapcore.ErrorLevel, err.Error(), map[string]any{
			"run_id": r.id.String(),
			"items":  len(report.Results),
		})
		o.Logger.Errorw("Run aborted", "run_id", r.id, "error", err)
		o.setState(StateAborted)
		return report, err
	}

	items, err := workitems.Expand(req)
	if err != nil {
		return abort(err)
	}
	if err := o.preflight(r); err != nil {
		return abort(err)
	}

	o.setState(StateRunning)
	o.Logger.Infow("Starting run",
		"run_id", r.id,
		"items", len(items),
		"destination", req.DestinationRoot)
	o.emit(r, events.KindRunStarted, zapcore.InfoLevel,
		fmt.Sprintf("Starting run %s: %d work items", r.id, len(items)),
		map[string]any{"run_id": r.id.String(), "items": len(items)})

	report.Results = make([]models.RunResult, 0, len(items))
	prevCollection := ""
	for _, item := range items {
		select {
		case <-ctx.Done():
			return abort(ctx.Err())
		default:
		}
		if item.Collection != prevCollection {
			prevCollection = item.Collection
			o.emit(r, events.KindCollection, zapcore.InfoLevel,
				fmt.Sprintf("=== %s ===", item.Collection),
				map[string]any{"collection": item.Collection})
		}
		o.emit(r, events.KindDay, zapcore.InfoLevel,
			fmt.Sprintf("%s %s (DOY %03d)", item.Collection, item.Date.Format(time.DateOnly), item.DayOfYear()),
			map[string]any{
				"collection": item.Collection,
				"date":       item.Date.Format(time.DateOnly),
				"doy":        item.DayOfYear(),
			})

		res := o.processItem(ctx, r, item)
		report.Results = append(report.Results, res)
		o.emit(r, events.KindItemDone, zapcore.InfoLevel,
			fmt.Sprintf("%s %s: %d listed, %d matched, %d downloaded, %d skipped, %d failed",
				item.Collection, item.Date.Format(time.DateOnly),
				res.FilesListed, res.FilesMatched, res.FilesDownloaded, res.FilesSkipped, res.FilesFailed),
			map[string]any{
				"collection": item.Collection,
				"date":       item.Date.Format(time.DateOnly),
				"listed":     res.FilesListed,
				"matched":    res.FilesMatched,
				"downloaded": res.FilesDownloaded,
				"skipped":    res.FilesSkipped,
				"failed":     res.FilesFailed,
			})
	}

	report.Finished = o.Now()
	sum := report.Summary()
	o.runDuration.Record(ctx, report.Finished.Sub(report.Started).Milliseconds())
	span.SetAttributes(
		attribute.Int("files.downloaded", sum.FilesDownloaded),
		attribute.Int("files.failed", sum.FilesFailed),
	)
	o.emit(r, events.KindRunDone, zapcore.InfoLevel,
		fmt.Sprintf("Run complete: %d downloaded, %d skipped, %d failed, %d listing errors",
			sum.FilesDownloaded, sum.FilesSkipped, sum.FilesFailed, sum.ListingErrors),
		map[string]any{
			"run_id":         r.id.String(),
			"items":          sum.Items,
			"downloaded":     sum.FilesDownloaded,
			"skipped":        sum.FilesSkipped,
			"failed":         sum.FilesFailed,
			"listing_errors": sum.ListingErrors,
			"bytes":          sum.BytesDownloaded,
		})
	o.Logger.Infow("Run completed", "run_id", r.id, "summary", sum)
	o.setState(StateCompleted)
	return report, nil
}

func (o *Orchestrator) preflight(r *run) error {
	root := r.req.DestinationRoot
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create destination %s: %w", root, err)
	}
	if o.Opts.MinFreeBytes == 0 || o.Disk == nil {
		return nil
	}
	free, err := o.Disk.FreeBytes(root)
	if err != nil {
		o.emit(r, events.KindPreflight, zapcore.WarnLevel,
			"Could not determine free space: "+err.Error(),
			map[string]any{"path": root})
		return nil
	}
	if free < o.Opts.MinFreeBytes {
		return fmt.Errorf("destination %s has %d bytes free, need at least %d",
			root, free, o.Opts.MinFreeBytes)
	}
	return nil
}

type job struct {
	name string
	url  string
	path string
}

func (o *Orchestrator) processItem(
	ctx context.Context,
	r *run,
	item models.WorkItem,
) (res models.RunResult) {
	startTime := o.Now()
	ctx, span := o.Tracer.Start(ctx, "orchestrator.item", trace.WithAttributes(
		attribute.String("collection", item.Collection),
		attribute.String("date", item.Date.Format(time.DateOnly)),
		attribute.Int("doy", item.DayOfYear()),
	))
	defer span.End()

	res.Item = item
	defer func() {
		res.Duration = o.Now().Sub(startTime)
		o.itemsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", item.Collection)))
		o.itemDuration.Record(ctx, res.Duration.Milliseconds())
	}()

	q := listing.Query{
		BaseURL:    o.Opts.BaseURL,
		ArchiveID:  r.req.ArchiveID,
		Collection: item.Collection,
		Year:       item.Year(),
		DayOfYear:  item.DayOfYear(),
	}
	files, err := o.Lister.FetchListing(ctx, r.req.Token, q)
	if err != nil {
		res.ListingError = err
		span.RecordError(err)
		o.listingErrors.Add(ctx, 1)
		o.emit(r, events.KindListing, zapcore.WarnLevel,
			fmt.Sprintf("[API ERR] %s: %v", q.URL(), err),
			map[string]any{"url": q.URL(), "error": err.Error()})
		return res
	}
	res.FilesListed = len(files)
	o.emit(r, events.KindListing, zapcore.DebugLevel,
		fmt.Sprintf("%d files listed at %s", len(files), q.URL()),
		map[string]any{"url": q.URL(), "files": len(files)})
	if len(files) == 0 {
		return res
	}

	matched := matcher.Select(files, r.req.HourStart, r.req.HourEnd, r.req.Policy)
	res.FilesMatched = len(matched)
	span.SetAttributes(
		attribute.Int("files.listed", res.FilesListed),
		attribute.Int("files.matched", res.FilesMatched),
	)

	dir := workitems.TargetDir(r.req.DestinationRoot, item.Date, r.req.MonthLocale)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		res.FilesFailed = len(matched)
		span.RecordError(err)
		o.emit(r, events.KindDestination, zapcore.ErrorLevel,
			fmt.Sprintf("[ERR] create %s: %v", dir, err),
			map[string]any{"path": dir, "error": err.Error()})
		return res
	}

	jobs := make([]job, 0, len(matched))
	seen := make(map[string]struct{}, len(matched))
	for _, f := range matched {
		if !safeName(f.Name) {
			res.FilesFailed++
			o.emit(r, events.KindFile, zapcore.ErrorLevel,
				fmt.Sprintf("[ERR] %q: not a plain file name", f.Name),
				map[string]any{"file": f.Name, "status": fetch.StatusFailed.String()})
			continue
		}
		path := filepath.Join(dir, f.Name)
		if _, dup := seen[path]; dup {
			res.FilesSkipped++
			o.emit(r, events.KindFile, zapcore.DebugLevel,
				"[SKIP] "+f.Name+" (listed twice)",
				map[string]any{"file": f.Name, "path": path, "status": fetch.StatusSkipped.String()})
			continue
		}
		seen[path] = struct{}{}
		jobs = append(jobs, job{name: f.Name, url: q.FileURL(f.Name), path: path})
	}

	for _, out := range o.fetchAll(ctx, r, jobs) {
		switch out.Status {
		case fetch.StatusDownloaded:
			res.FilesDownloaded++
			res.BytesDownloaded += out.Bytes
		case fetch.StatusSkipped:
			res.FilesSkipped++
		default:
			res.FilesFailed++
		}
	}
	return res
}

// safeName reports whether a listed name stays inside the date folder once
// joined to it.
func safeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return name == filepath.Base(name)
}

// fetchAll fetches every job concurrently and returns once all are done,
// outcomes in job order.
func (o *Orchestrator) fetchAll(ctx context.Context, r *run, jobs []job) []fetch.Outcome {
	var sem *semaphore.Weighted
	if o.Opts.ConcurrentDownloads > 0 {
		sem = semaphore.NewWeighted(int64(o.Opts.ConcurrentDownloads))
	}
	fetchOne := func(j job) IOE.IOEither[error, fetch.Outcome] {
		return IOE.FromIO[error](func() fetch.Outcome {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					out := fetch.Outcome{
						URL:    j.url,
						Path:   j.path,
						Status: fetch.StatusFailed,
						Err:    &fetch.FetchError{Kind: fetch.KindTransport, URL: j.url, Path: j.path, Err: err},
					}
					o.emitOutcome(r, j, out)
					return out
				}
				defer sem.Release(1)
			}
			out := o.Fetcher.Fetch(ctx, r.req.Token, j.url, j.path)
			o.emitOutcome(r, j, out)
			return out
		})
	}
	outcomes, err := ET.UnwrapError(IOE.TraverseArrayPar(fetchOne)(jobs)())
	if err != nil {
		o.Logger.Errorw("Fetch batch failed", "error", err)
	}
	return outcomes
}

func (o *Orchestrator) emitOutcome(r *run, j job, out fetch.Outcome) {
	fields := map[string]any{
		"file":   j.name,
		"path":   j.path,
		"status": out.Status.String(),
	}
	switch out.Status {
	case fetch.StatusDownloaded:
		fields["bytes"] = out.Bytes
		o.emit(r, events.KindFile, zapcore.InfoLevel, "[OK] "+j.name, fields)
	case fetch.StatusSkipped:
		o.emit(r, events.KindFile, zapcore.InfoLevel, "[SKIP] "+j.name, fields)
	default:
		fields["error"] = fmt.Sprint(out.Err)
		o.emit(r, events.KindFile, zapcore.WarnLevel, fmt.Sprintf("[ERR] %s: %v", j.name, out.Err), fields)
	}
}

func (o *Orchestrator) emit(r *run, kind events.Kind, level events.Level, msg string, fields map[string]any) {
	r.sink.Emit(events.Event{
		Time:    o.Now(),
		Kind:    kind,
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}
