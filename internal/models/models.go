package models

import (
	"time"

	"github.com/google/uuid"
)

// RemoteFile is one entry of an archive directory listing. The archive only
// guarantees the name.
type RemoteFile struct {
	Name string `json:"name"`
}

// ListingEnvelope is the object-shaped listing response. Content is a pointer
// so an absent key can be told apart from an empty array.
type ListingEnvelope struct {
	Content *[]RemoteFile `json:"content"`
}

type MatchPolicy string

const (
	// PolicyBucket5 selects every file whose timestamp falls on a 5-minute
	// bucket of a requested hour.
	PolicyBucket5 MatchPolicy = "bucket5"
	// PolicyFirst selects at most one file per hour, the first listed at :00 or :05.
	PolicyFirst MatchPolicy = "first"
)

// DownloadRequest is the fully resolved input of one run.
type DownloadRequest struct {
	Collections     []string    `validate:"required,min=1,dive,required"`
	Start           time.Time   `validate:"required"`
	End             time.Time   `validate:"required"`
	HourStart       int         `validate:"min=0,max=23,ltefield=HourEnd"`
	HourEnd         int         `validate:"min=0,max=23"`
	DestinationRoot string      `validate:"required"`
	ArchiveID       string      `validate:"required"`
	Token           string
	Policy          MatchPolicy `validate:"oneof=bucket5 first"`
	MonthLocale     string      `validate:"omitempty,oneof=en it"`
}

type WorkItem struct {
	Collection string
	Date       time.Time
}

func (w WorkItem) Year() int {
	return w.Date.Year()
}

func (w WorkItem) DayOfYear() int {
	return w.Date.YearDay()
}

// RunResult is the outcome of one work item.
type RunResult struct {
	Item            WorkItem
	FilesListed     int
	FilesMatched    int
	FilesDownloaded int
	FilesSkipped    int
	FilesFailed     int
	BytesDownloaded int64
	ListingError    error
	Duration        time.Duration
}

// Summary aggregates the per-item results of a run.
type Summary struct {
	Items           int
	FilesListed     int
	FilesMatched    int
	FilesDownloaded int
	FilesSkipped    int
	FilesFailed     int
	BytesDownloaded int64
	ListingErrors   int
}

type Report struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time
	Results  []RunResult
}

func (r Report) Summary() Summary {
	s := Summary{Items: len(r.Results)}
	for _, res := range r.Results {
		s.FilesListed += res.FilesListed
		s.FilesMatched += res.FilesMatched
		s.FilesDownloaded += res.FilesDownloaded
		s.FilesSkipped += res.FilesSkipped
		s.FilesFailed += res.FilesFailed
		s.BytesDownloaded += res.BytesDownloaded
		if res.ListingError != nil {
			s.ListingErrors++
		}
	}
	return s
}
