package internal

import (
	"context"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/events"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/orchestrator"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/settings"
)

type RunnerInterface interface {
	Run(ctx context.Context, req models.DownloadRequest, sink events.Sink) (models.Report, error)
	State() orchestrator.State
}

type SettingsInterface interface {
	Load() settings.Settings
	Save(settings.Settings) bool
	Path() string
}
