// Package report writes run reports as CSV, one row per work item.
package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
)

var header = []string{
	"run_id", "collection", "date", "doy",
	"listed", "matched", "downloaded", "skipped", "failed",
	"bytes", "duration_ms", "listing_error",
}

// WriteCSV writes r to path, replacing any existing file.
func WriteCSV(path string, r models.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if err := Write(buf, r); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}

func Write(w io.Writer, r models.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	runID := r.RunID.String()
	for _, res := range r.Results {
		listingErr := ""
		if res.ListingError != nil {
			listingErr = res.ListingError.Error()
		}
		row := []string{
			runID,
			res.Item.Collection,
			res.Item.Date.Format(time.DateOnly),
			fmt.Sprintf("%03d", res.Item.DayOfYear()),
			strconv.Itoa(res.FilesListed),
			strconv.Itoa(res.FilesMatched),
			strconv.Itoa(res.FilesDownloaded),
			strconv.Itoa(res.FilesSkipped),
			strconv.Itoa(res.FilesFailed),
			strconv.FormatInt(res.BytesDownloaded, 10),
			strconv.FormatInt(res.Duration.Milliseconds(), 10),
			listingErr,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
