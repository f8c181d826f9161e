package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ET "github.com/IBM/fp-go/v2/either"
	"github.com/IBM/fp-go/v2/function"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	Http "github.com/IBM/fp-go/v2/ioeither/http"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
	T "github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/typing"
)

const DefaultMaxBytes int64 = 32 << 20

// Query addresses one archive directory: one collection on one day.
type Query struct {
	BaseURL    string
	ArchiveID  string
	Collection string
	Year       int
	DayOfYear  int
}

// Dir is the directory URL without the .json suffix; files live below it.
func (q Query) Dir() string {
	return fmt.Sprintf("%s/%s/%s/%d/%03d",
		strings.TrimRight(q.BaseURL, "/"),
		url.PathEscape(q.ArchiveID),
		url.PathEscape(q.Collection),
		q.Year,
		q.DayOfYear,
	)
}

func (q Query) URL() string {
	return q.Dir() + ".json"
}

func (q Query) FileURL(name string) string {
	return q.Dir() + "/" + url.PathEscape(name)
}

type Options struct {
	UserAgent string
	MaxBytes  int64
}

type Client struct {
	client          Http.Client
	opts            Options
	Logger          *zap.SugaredLogger
	Tracer          trace.Tracer
	listingsTotal   metric.Int64Counter
	listingsFailed  metric.Int64Counter
	listingDuration metric.Int64Histogram
}

func NewClient(
	httpClient *http.Client,
	opts Options,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
) (*Client, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	c := &Client{
		client: Http.MakeClient(httpClient),
		opts:   opts,
		Logger: logger,
		Tracer: tracer,
	}

	var err error
	c.listingsTotal, err = meter.Int64Counter(
		"listing.requests.total",
		metric.WithDescription("Number of directory listings requested"),
	)
	if err != nil {
		return nil, err
	}

	c.listingsFailed, err = meter.Int64Counter(
		"listing.requests.failed",
		metric.WithDescription("Number of directory listings that yielded no file list"),
	)
	if err != nil {
		return nil, err
	}

	c.listingDuration, err = meter.Int64Histogram(
		"listing.request.duration",
		metric.WithDescription("Duration of a directory listing request"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// FetchListing retrieves the file list of one directory. Every failure is
// reported as a *ListingError.
func (c *Client) FetchListing(
	ctx context.Context,
	token string,
	q Query,
) ([]models.RemoteFile, error) {
	startTime := time.Now()
	listingURL := q.URL()
	ctx, span := c.Tracer.Start(ctx, "listing.fetch", trace.WithAttributes(
		attribute.String("collection", q.Collection),
		attribute.String("archive_id", q.ArchiveID),
		attribute.Int("year", q.Year),
		attribute.Int("day_of_year", q.DayOfYear),
	))
	defer span.End()

	body := IOE.Bracket(
		c.client.Do(c.request(ctx, listingURL, token)),
		func(resp *http.Response) IOE.IOEither[error, []byte] {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return IOE.Left[[]byte](statusError(listingURL, resp.StatusCode))
			}
			return IOE.TryCatchError(func() ([]byte, error) {
				return readLimited(listingURL, resp.Body, c.opts.MaxBytes)
			})
		},
		func(resp *http.Response, _ ET.Either[error, []byte]) IOE.IOEither[error, T.Unit] {
			return IOE.TryCatchError(func() (T.Unit, error) { return T.Unit{}, resp.Body.Close() })
		},
	)
	files, err := ET.UnwrapError(function.Pipe1(
		body,
		IOE.Chain(func(b []byte) IOE.IOEither[error, []models.RemoteFile] {
			return IOE.TryCatchError(func() ([]models.RemoteFile, error) {
				return Decode(listingURL, b)
			})
		}),
	)())

	durationMs := time.Since(startTime).Milliseconds()
	attrs := metric.WithAttributes(attribute.String("collection", q.Collection))
	c.listingsTotal.Add(ctx, 1, attrs)
	if err != nil {
		var le *ListingError
		if !errors.As(err, &le) {
			le = &ListingError{Kind: KindTransport, URL: listingURL, Err: err}
		}
		span.RecordError(le)
		span.SetStatus(codes.Error, le.Kind.String())
		c.listingsFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("collection", q.Collection),
			attribute.String("kind", le.Kind.String()),
		))
		c.listingDuration.Record(ctx, durationMs, metric.WithAttributes(
			attribute.String("status", "failed"),
		))
		c.Logger.Warnw("Listing failed",
			"url", listingURL,
			"kind", le.Kind.String(),
			"status", le.Status,
			"error", le.Err,
		)
		return nil, le
	}

	span.SetAttributes(attribute.Int("files", len(files)))
	c.listingDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("status", "success"),
	))
	c.Logger.Debugw("Fetched listing", "url", listingURL, "files", len(files))
	return files, nil
}

func (c *Client) request(ctx context.Context, target, token string) IOE.IOEither[error, *http.Request] {
	return IOE.TryCatchError(func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if c.opts.UserAgent != "" {
			req.Header.Set("User-Agent", c.opts.UserAgent)
		}
		return req, nil
	})
}

// readLimited reads at most limit bytes. One byte more marks the listing as
// oversized instead of handing a truncated body to the decoder.
func readLimited(target string, r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, &ListingError{Kind: KindTooLarge, URL: target, Limit: limit}
	}
	return b, nil
}

func statusError(target string, status int) error {
	return &ListingError{Kind: KindStatus, URL: target, Status: status}
}

// Decode accepts both listing shapes served by the archive: an object with a
// "content" array, or a bare array.
func Decode(target string, body []byte) ([]models.RemoteFile, error) {
	var envelope models.ListingEnvelope
	envErr := json.Unmarshal(body, &envelope)
	if envErr == nil && envelope.Content != nil {
		return *envelope.Content, nil
	}

	var files []models.RemoteFile
	arrErr := json.Unmarshal(body, &files)
	if arrErr == nil {
		return files, nil
	}

	if envErr == nil {
		envErr = errors.New(`missing "content" array`)
	}
	return nil, &ListingError{
		Kind: KindParse,
		URL:  target,
		Err:  errors.Join(envErr, arrErr),
	}
}
