package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	Http "github.com/IBM/fp-go/v2/ioeither/http"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	T "github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/typing"
)

type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "ok"
	case StatusSkipped:
		return "skip"
	case StatusFailed:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one Fetch call. Err is set only for StatusFailed
// and is always a *FetchError.
type Outcome struct {
	URL      string
	Path     string
	Status   Status
	Bytes    int64
	Err      error
	Duration time.Duration
}

type Options struct {
	UserAgent string
	// Progress, when set, receives a copy of every downloaded byte.
	Progress io.Writer
}

type Fetcher struct {
	client          Http.Client
	opts            Options
	locks           pathLocks
	Logger          *zap.SugaredLogger
	Tracer          trace.Tracer
	filesTotal      metric.Int64Counter
	filesDownloaded metric.Int64Counter
	filesSkipped    metric.Int64Counter
	filesFailed     metric.Int64Counter
	bytesTotal      metric.Int64Counter
	fileDuration    metric.Int64Histogram
}

func NewFetcher(
	httpClient *http.Client,
	opts Options,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Fetcher, error) {
	f := &Fetcher{
		client: Http.MakeClient(httpClient),
		opts:   opts,
		Logger: logger,
		Tracer: tracer,
	}

	var err error
	f.filesTotal, err = meter.Int64Counter(
		"fetch.files.total",
		metric.WithDescription("Total number of files processed"),
	)
	if err != nil {
		return nil, err
	}

	f.filesDownloaded, err = meter.Int64Counter(
		"fetch.files.downloaded",
		metric.WithDescription("Number of files downloaded"),
	)
	if err != nil {
		return nil, err
	}

	f.filesSkipped, err = meter.Int64Counter(
		"fetch.files.skipped",
		metric.WithDescription("Number of files skipped because they already exist"),
	)
	if err != nil {
		return nil, err
	}

	f.filesFailed, err = meter.Int64Counter(
		"fetch.files.failed",
		metric.WithDescription("Number of failed downloads"),
	)
	if err != nil {
		return nil, err
	}

	f.bytesTotal, err = meter.Int64Counter(
		"fetch.bytes.total",
		metric.WithDescription("Total bytes actually downloaded"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	f.fileDuration, err = meter.Int64Histogram(
		"fetch.file.duration",
		metric.WithDescription("Duration of individual file download"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Fetch downloads url to path unless path already exists. The body is
// streamed into a temporary sibling file that is renamed into place only
// after a complete copy, so a failed fetch never leaves path behind.
func (f *Fetcher) Fetch(ctx context.Context, token, url, path string) Outcome {
	startTime := time.Now()
	ctx, span := f.Tracer.Start(ctx, "fetch.file", trace.WithAttributes(
		attribute.String("file.name", filepath.Base(path)),
		attribute.String("file.url", url),
	))
	defer span.End()
	f.filesTotal.Add(ctx, 1)

	if exists(path) {
		return f.skipped(ctx, span, url, path, startTime)
	}
	unlock := f.locks.lock(path)
	defer unlock()
	if exists(path) {
		return f.skipped(ctx, span, url, path, startTime)
	}

	written, err := ET.UnwrapError(IOE.Bracket(
		f.client.Do(f.request(ctx, url, token)),
		func(resp *http.Response) IOE.IOEither[error, int64] {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return IOE.Left[int64](statusError(url, path, resp.StatusCode))
			}
			return f.writeAtomic(url, path, resp.Body)
		},
		func(resp *http.Response, _ ET.Either[error, int64]) IOE.IOEither[error, T.Unit] {
			return IOE.TryCatchError(func() (T.Unit, error) { return T.Unit{}, resp.Body.Close() })
		},
	)())
	duration := time.Since(startTime)

	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			fe = &FetchError{Kind: KindTransport, URL: url, Path: path, Err: err}
		}
		span.RecordError(fe)
		span.SetStatus(codes.Error, fe.Kind.String())
		f.filesFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", fe.Kind.String()),
		))
		f.fileDuration.Record(ctx, duration.Milliseconds(), metric.WithAttributes(
			attribute.String("status", "failed"),
		))
		f.Logger.Warnw("Download failed", "url", url, "path", path, "error", fe)
		return Outcome{URL: url, Path: path, Status: StatusFailed, Err: fe, Duration: duration}
	}

	span.SetAttributes(attribute.Int64("file.bytes", written))
	f.filesDownloaded.Add(ctx, 1)
	f.bytesTotal.Add(ctx, written)
	f.fileDuration.Record(ctx, duration.Milliseconds(), metric.WithAttributes(
		attribute.String("status", "success"),
		attribute.Bool("skipped", false),
	))
	f.Logger.Debugw("Downloaded file", "path", path, "bytes", written, "duration_ms", duration.Milliseconds())
	return Outcome{URL: url, Path: path, Status: StatusDownloaded, Bytes: written, Duration: duration}
}

func (f *Fetcher) skipped(
	ctx context.Context,
	span trace.Span,
	url, path string,
	startTime time.Time,
) Outcome {
	span.SetAttributes(attribute.Bool("skipped", true))
	span.AddEvent("file_already_exists")
	f.filesSkipped.Add(ctx, 1)
	f.Logger.Debugw("File exists, skipping", "path", path)
	return Outcome{URL: url, Path: path, Status: StatusSkipped, Duration: time.Since(startTime)}
}

func (f *Fetcher) request(ctx context.Context, url, token string) IOE.IOEither[error, *http.Request] {
	return IOE.TryCatchError(func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if f.opts.UserAgent != "" {
			req.Header.Set("User-Agent", f.opts.UserAgent)
		}
		return req, nil
	})
}

func (f *Fetcher) writeAtomic(url, path string, body io.Reader) IOE.IOEither[error, int64] {
	return IOE.TryCatchError(func() (int64, error) {
		tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
		if err != nil {
			return 0, fsError(url, path, err)
		}
		tmpName := tmp.Name()
		committed := false
		defer func() {
			if !committed {
				_ = tmp.Close()
				_ = os.Remove(tmpName)
			}
		}()

		dst := &recordingWriter{w: tmp}
		var w io.Writer = dst
		if f.opts.Progress != nil {
			w = io.MultiWriter(dst, f.opts.Progress)
		}
		n, err := io.Copy(w, body)
		if err != nil {
			if dst.err != nil {
				return n, fsError(url, path, dst.err)
			}
			return n, &FetchError{Kind: KindTransport, URL: url, Path: path, Err: err}
		}
		if err := tmp.Sync(); err != nil {
			return n, fsError(url, path, err)
		}
		if err := tmp.Close(); err != nil {
			return n, fsError(url, path, err)
		}
		if err := os.Rename(tmpName, path); err != nil {
			return n, fsError(url, path, err)
		}
		committed = true
		return n, nil
	})
}

// recordingWriter remembers write failures so a failed copy can be told
// apart from a failed read.
type recordingWriter struct {
	w   io.Writer
	err error
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	if err != nil {
		r.err = err
	}
	return n, err
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func statusError(url, path string, status int) error {
	return &FetchError{Kind: KindStatus, URL: url, Path: path, Status: status}
}

func fsError(url, path string, err error) error {
	return &FetchError{Kind: KindFS, URL: url, Path: path, Err: err}
}
