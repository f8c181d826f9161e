package report

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
)

func TestWriteCSV(t *testing.T) {
	id := uuid.MustParse("6f1c0e2a-5b7d-4c1e-9a55-0d6e8b9f2c31")
	r := models.Report{
		RunID: id,
		Results: []models.RunResult{
			{
				Item:            models.WorkItem{Collection: "MYD03", Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
				FilesListed:     288,
				FilesMatched:    2,
				FilesDownloaded: 1,
				FilesSkipped:    1,
				BytesDownloaded: 1024,
				Duration:        1500 * time.Millisecond,
			},
			{
				Item:         models.WorkItem{Collection: "MYD03", Date: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)},
				ListingError: errors.New("listing status 404"),
			},
		},
	}

	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, WriteCSV(path, r))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{
		id.String(), "MYD03", "2024-05-02", "123",
		"288", "2", "1", "1", "0", "1024", "1500", "",
	}, rows[1])
	assert.Equal(t, "007", rows[2][3])
	assert.Equal(t, "listing status 404", rows[2][11])
}

func TestWriteCSVBadPath(t *testing.T) {
	err := WriteCSV(filepath.Join(t.TempDir(), "missing", "r.csv"), models.Report{})
	assert.Error(t, err)
}
