package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.LogLevel)
	assert.Equal(t, DefaultBaseURL, cfg.Server.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Server.Timeout)
	assert.Equal(t, 0, cfg.Server.ConcurrentDownloads)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 3, cfg.Download.HourStart)
	assert.Equal(t, 15, cfg.Download.HourEnd)
	assert.Equal(t, []string{"MYD03", "MYD021KM", "MYD35_L2"}, cfg.Download.Collections)
	assert.Equal(t, []string{"NAS29F79B", "NASFA8369"}, cfg.Download.Mounts)
	assert.Equal(t, "bucket5", cfg.Download.MatchPolicy)
	assert.Equal(t, "en", cfg.Download.MonthLocale)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  concurrent_downloads: 4
download:
  match_policy: bucket5
  month_locale: it
log:
  log_level: warn
`)
	t.Setenv("MODIS_DOWNLOAD_MATCH_POLICY", "first")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.log-level", "info", "")
	flags.String("unrelated", "x", "")
	require.NoError(t, flags.Parse([]string{"--log.log-level=debug"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Server.ConcurrentDownloads)
	assert.Equal(t, "it", cfg.Download.MonthLocale)
	assert.Equal(t, "first", cfg.Download.MatchPolicy)
	assert.Equal(t, "debug", cfg.Log.LogLevel)
}

func TestLoadUnchangedFlagKeepsFileValue(t *testing.T) {
	path := writeConfig(t, "log:\n  log_level: error\n")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.log-level", "info", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"hour window inverted", "download:\n  hour_start: 16\n  hour_end: 15\n"},
		{"too many downloads", "server:\n  concurrent_downloads: 100\n"},
		{"unknown policy", "download:\n  match_policy: latest\n"},
		{"bad log level", "log:\n  log_level: loud\n"},
		{"unknown key", "download:\n  verify_sha1: true\n"},
		{"otlp without endpoint", "telemetry:\n  enabled: true\n  exporter: otlp\n  endpoint: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.Error(t, err)
		})
	}
}
