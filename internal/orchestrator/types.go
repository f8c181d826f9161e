//go:generate mockgen -destination=./mocks/orchestrator.go . Lister,Fetcher,DiskChecker

package orchestrator

import (
	"context"
	"errors"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/fetch"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/listing"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
)

// Lister resolves one (collection, date) to the names in its archive directory.
type Lister interface {
	FetchListing(ctx context.Context, token string, q listing.Query) ([]models.RemoteFile, error)
}

// Fetcher downloads one file unless it already exists locally.
type Fetcher interface {
	Fetch(ctx context.Context, token, url, path string) fetch.Outcome
}

// DiskChecker reports free space at a destination.
type DiskChecker interface {
	FreeBytes(path string) (uint64, error)
}

type State int

const (
	StateIdle State = iota
	StateValidating
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

var (
	// ErrAborted wraps every error that stops a run before it completes.
	ErrAborted = errors.New("run aborted")
	// ErrBusy is returned when Run is called while another run is active.
	ErrBusy = errors.New("a run is already in progress")
)

type Options struct {
	BaseURL string
	// ConcurrentDownloads bounds fetches per work item; 0 means unbounded.
	ConcurrentDownloads int
	// MinFreeBytes aborts the run when the destination has less free space.
	// 0 disables the check.
	MinFreeBytes uint64
}
