package listing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(
		&http.Client{Timeout: 5 * time.Second},
		Options{UserAgent: "modis-fetcher-test"},
		tracenoop.NewTracerProvider().Tracer("test"),
		zap.NewNop().Sugar(),
		metricnoop.NewMeterProvider().Meter("test"),
	)
	require.NoError(t, err)
	return c
}

func TestQueryURLs(t *testing.T) {
	q := Query{
		BaseURL:    "https://ladsweb.modaps.eosdis.nasa.gov/archive/allData/",
		ArchiveID:  "61",
		Collection: "MYD03",
		Year:       2024,
		DayOfYear:  7,
	}
	assert.Equal(t, "https://ladsweb.modaps.eosdis.nasa.gov/archive/allData/61/MYD03/2024/007.json", q.URL())
	assert.Equal(t,
		"https://ladsweb.modaps.eosdis.nasa.gov/archive/allData/61/MYD03/2024/007/MYD03.A2024007.0000.061.hdf",
		q.FileURL("MYD03.A2024007.0000.061.hdf"),
	)
}

func TestFetchListing(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []string
		kind   ErrorKind
		fails  bool
	}{
		{
			name:   "content envelope",
			status: http.StatusOK,
			body:   `{"content":[{"name":"A.0000.hdf"},{"name":"A.0005.hdf"}]}`,
			want:   []string{"A.0000.hdf", "A.0005.hdf"},
		},
		{
			name:   "bare array",
			status: http.StatusOK,
			body:   `[{"name":"B.1200.hdf"}]`,
			want:   []string{"B.1200.hdf"},
		},
		{
			name:   "empty content",
			status: http.StatusOK,
			body:   `{"content":[]}`,
			want:   []string{},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `not here`,
			kind:   KindStatus,
			fails:  true,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			kind:   KindStatus,
			fails:  true,
		},
		{
			name:   "object without content",
			status: http.StatusOK,
			body:   `{"items":[]}`,
			kind:   KindParse,
			fails:  true,
		},
		{
			name:   "garbage",
			status: http.StatusOK,
			body:   `<html></html>`,
			kind:   KindParse,
			fails:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var gotPath, gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				mu.Unlock()
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t)
			files, err := c.FetchListing(context.Background(), "secret", Query{
				BaseURL:    srv.URL,
				ArchiveID:  "61",
				Collection: "MYD021KM",
				Year:       2024,
				DayOfYear:  123,
			})

			mu.Lock()
			assert.Equal(t, "/61/MYD021KM/2024/123.json", gotPath)
			assert.Equal(t, "Bearer secret", gotAuth)
			mu.Unlock()

			if tt.fails {
				require.Error(t, err)
				var le *ListingError
				require.True(t, errors.As(err, &le))
				assert.Equal(t, tt.kind, le.Kind)
				if tt.kind == KindStatus {
					assert.Equal(t, tt.status, le.Status)
				}
				assert.Empty(t, files)
				return
			}
			require.NoError(t, err)
			got := make([]string, 0, len(files))
			for _, f := range files {
				got = append(got, f.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchListingTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := newTestClient(t)
	files, err := c.FetchListing(context.Background(), "", Query{
		BaseURL:    base,
		ArchiveID:  "61",
		Collection: "MYD03",
		Year:       2024,
		DayOfYear:  1,
	})

	require.Error(t, err)
	var le *ListingError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, KindTransport, le.Kind)
	assert.Nil(t, files)
}

func TestFetchListingSizeLimit(t *testing.T) {
	body := `{"content":[{"name":"A.0000.hdf"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	newClient := func(limit int64) *Client {
		c, err := NewClient(
			&http.Client{Timeout: 5 * time.Second},
			Options{MaxBytes: limit},
			tracenoop.NewTracerProvider().Tracer("test"),
			zap.NewNop().Sugar(),
			metricnoop.NewMeterProvider().Meter("test"),
		)
		require.NoError(t, err)
		return c
	}
	q := Query{BaseURL: srv.URL, ArchiveID: "61", Collection: "MYD03", Year: 2024, DayOfYear: 1}

	files, err := newClient(int64(len(body))).FetchListing(context.Background(), "", q)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	files, err = newClient(int64(len(body))-1).FetchListing(context.Background(), "", q)
	require.Error(t, err)
	var le *ListingError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, KindTooLarge, le.Kind)
	assert.Equal(t, int64(len(body))-1, le.Limit)
	assert.Contains(t, le.Error(), "exceeds")
	assert.Nil(t, files)
}

func TestDecode(t *testing.T) {
	files, err := Decode("u", []byte(`{"content":[{"name":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []models.RemoteFile{{Name: "x"}}, files)

	_, err = Decode("u", []byte(`{"content":null}`))
	var le *ListingError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, KindParse, le.Kind)
}
