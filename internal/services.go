package internal

import (
	"io"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/config"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/diskspace"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/fetch"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/listing"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/orchestrator"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/settings"
)

type Services struct {
	Runner   RunnerInterface
	Settings SettingsInterface
}

// InitServices wires the listing client, fetcher and orchestrator from cfg.
// progress, when non-nil, receives every downloaded byte.
func InitServices(
	cfg config.Config,
	tracer trace.Tracer,
	logger *zap.SugaredLogger,
	meter metric.Meter,
	progress io.Writer,
) (*Services, error) {
	// One client for listings and files; the bearer token is set per request.
	httpClient := &http.Client{Timeout: cfg.Server.Timeout}

	lister, err := listing.NewClient(httpClient, listing.Options{
		UserAgent: cfg.Server.UserAgent,
		MaxBytes:  cfg.Server.MaxListingBytes,
	}, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	fetcher, err := fetch.NewFetcher(httpClient, fetch.Options{
		UserAgent: cfg.Server.UserAgent,
		Progress:  progress,
	}, tracer, logger, meter)
	if err != nil {
		return nil, err
	}
	runner, err := orchestrator.New(lister, fetcher, diskspace.NewChecker(), orchestrator.Options{
		BaseURL:             cfg.Server.BaseURL,
		ConcurrentDownloads: cfg.Server.ConcurrentDownloads,
		MinFreeBytes:        cfg.Download.MinFreeMB << 20,
	}, tracer, logger, meter)
	if err != nil {
		return nil, err
	}

	settingsPath := cfg.SettingsFile
	if settingsPath == "" {
		settingsPath = settings.DefaultPath()
	}
	return &Services{
		Runner:   runner,
		Settings: settings.NewStore(settingsPath, logger),
	}, nil
}
