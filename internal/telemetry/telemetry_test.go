package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitOTELDisabledUsesNoopProviders(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "modis.log")
	tracer, meter, log, shutdown, err := InitOTEL(Config{
		Enabled:     false,
		Exporter:    "otlp",
		ServiceName: "modis-fetcher-test",
		LogFile:     logFile,
		LogLevel:    "info",
	})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	require.NotNil(t, meter)

	_, span := tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	counter, err := meter.Int64Counter("test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	log.Infow("hello", "k", "v")
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestInitOTELRejectsUnknownExporter(t *testing.T) {
	_, _, _, _, err := InitOTEL(Config{Enabled: true, Exporter: "carrier-pigeon", ServiceName: "x"})
	assert.Error(t, err)
}

func TestInitOTELOTLPRequiresEndpoint(t *testing.T) {
	_, _, _, _, err := InitOTEL(Config{Enabled: true, Exporter: "otlp", ServiceName: "x"})
	assert.Error(t, err)
}
