package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/config"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/events"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/settings"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/workitems"
)

func testConfig() config.Config {
	return config.Config{
		Download: config.Download{
			Directory:   "/data/modis",
			MountRoot:   "/mnt",
			Mounts:      []string{"NAS29F79B", "NASFA8369"},
			MatchPolicy: "bucket5",
			MonthLocale: "en",
			HourStart:   3,
			HourEnd:     15,
			Collections: []string{"MYD03", "MYD021KM", "MYD35_L2"},
		},
	}
}

func TestBuildRunRequestDefaults(t *testing.T) {
	run, opts, err := buildRunRequest(
		downloadOptions{date: "2024/123", hourStart: -1, hourEnd: -1},
		testConfig(),
		settings.Settings{Token: "stored", ArchiveID: "61", DestinationFolder: "Archivio_7"},
		"",
	)
	require.NoError(t, err)
	assert.Equal(t, workitems.ModeSingle, run.DateMode)
	assert.Equal(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC), run.Bounds.Start)
	assert.Equal(t, []string{"MYD03", "MYD021KM", "MYD35_L2"}, run.Collections)
	assert.Equal(t, workitems.Destination{Kind: workitems.DestinationLocal, Path: "/data/modis"}, run.Destination)
	assert.Equal(t, 3, run.HourStart)
	assert.Equal(t, 15, run.HourEnd)
	assert.Equal(t, "stored", opts.Token)
	assert.Equal(t, "61", opts.ArchiveID)
	assert.Equal(t, models.PolicyBucket5, opts.Policy)
}

func TestBuildRunRequestFlagsWin(t *testing.T) {
	run, opts, err := buildRunRequest(
		downloadOptions{
			collections: []string{"MYD03"},
			fromMonth:   "2024-11",
			toMonth:     "2025-01",
			mount:       "NAS29F79B",
			destFolder:  "Archivio_9",
			archive:     "5200",
			token:       "flag",
			hourStart:   0,
			hourEnd:     1,
			policy:      "first",
		},
		testConfig(),
		settings.Defaults(),
		"env",
	)
	require.NoError(t, err)
	assert.Equal(t, workitems.ModeMonthRange, run.DateMode)
	assert.Equal(t, "Archivio_9", run.DestinationSubname)
	assert.Equal(t, 0, run.HourStart)
	assert.Equal(t, 1, run.HourEnd)
	assert.Equal(t, "flag", opts.Token)
	assert.Equal(t, "5200", opts.ArchiveID)
	assert.Equal(t, models.PolicyFirst, opts.Policy)

	req, err := workitems.Resolve(run, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/mnt", "NAS29F79B", "Archivio_9", "Modis"), req.DestinationRoot)
	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), req.End)
}

func TestBuildRunRequestEnvTokenBeatsSettings(t *testing.T) {
	_, opts, err := buildRunRequest(
		downloadOptions{from: "2024-05-01", to: "2024-05-02", hourStart: -1, hourEnd: -1},
		testConfig(),
		settings.Settings{Token: "stored"},
		"env",
	)
	require.NoError(t, err)
	assert.Equal(t, "env", opts.Token)
}

func TestBuildRunRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		opts downloadOptions
	}{
		{"no dates", downloadOptions{}},
		{"two date modes", downloadOptions{date: "2024-05-02", from: "2024-05-01", to: "2024-05-03"}},
		{"half range", downloadOptions{from: "2024-05-01"}},
		{"bad date", downloadOptions{date: "02/05/2024"}},
		{"unknown mount", downloadOptions{date: "2024-05-02", mount: "NAS000"}},
		{"mount and local", downloadOptions{date: "2024-05-02", mount: "NAS29F79B", local: "/tmp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.hourStart, tt.opts.hourEnd = -1, -1
			_, _, err := buildRunRequest(tt.opts, testConfig(), settings.Defaults(), "")
			assert.Error(t, err)
		})
	}
}

func TestSettingsAfterRunKeepsTypedValues(t *testing.T) {
	stored := settings.Settings{Token: "old", ArchiveID: "61", DestinationFolder: "Archivio_7"}
	assert.Equal(t, stored, settingsAfterRun(downloadOptions{}, stored))
	assert.Equal(t,
		settings.Settings{Token: "new", ArchiveID: "61", DestinationFolder: "Archivio_8"},
		settingsAfterRun(downloadOptions{token: "new", destFolder: "Archivio_8"}, stored),
	)
}

func TestSettingsSetReportsWriteFailure(t *testing.T) {
	prevServices, prevLogger := services, logger
	t.Cleanup(func() { services, logger = prevServices, prevLogger })
	logger = zap.NewNop().Sugar()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	services = &internal.Services{
		Settings: settings.NewStore(filepath.Join(blocker, "settings.json"), logger),
	}
	assert.Error(t, setSettingsCmd.RunE(setSettingsCmd, nil))

	path := filepath.Join(t.TempDir(), "settings.json")
	services = &internal.Services{Settings: settings.NewStore(path, logger)}
	require.NoError(t, setSettingsCmd.RunE(setSettingsCmd, nil))
	assert.FileExists(t, path)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", maskToken(""))
	assert.Equal(t, "*****", maskToken("short"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcd1234wxyz"))
}

func TestRendererPrintsLinesAtOrAboveLevel(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, zapcore.InfoLevel)
	at := time.Date(2024, time.May, 2, 14, 7, 0, 0, time.UTC)

	r.Emit(events.Event{Time: at, Kind: events.KindListing, Level: zapcore.DebugLevel, Message: "288 files listed"})
	r.Emit(events.Event{Time: at, Kind: events.KindFile, Level: zapcore.InfoLevel, Message: "[OK] X.0000.hdf"})
	_, _ = r.Write(make([]byte, 1<<20))

	assert.Contains(t, out.String(), "14:07 > [OK] X.0000.hdf\n")
	assert.NotContains(t, out.String(), "288 files listed")
	assert.Equal(t, int64(1<<20), r.bytes.Load())
}
