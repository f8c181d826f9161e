// Package matcher selects listed files by the HHMM timestamp token embedded in
// archive file names, e.g. MYD021KM.A2024123.0305.061.NRT.hdf.
package matcher

import (
	"fmt"
	"strings"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
)

// BucketStep is the minute spacing of granules in the archive.
const BucketStep = 5

// Token returns the dot-delimited timestamp token for hour and minute.
func Token(hour, minute int) string {
	return fmt.Sprintf(".%02d%02d.", hour, minute)
}

// Matches reports whether name carries a timestamp in the given hour. A nil
// minuteBucket accepts any multiple of BucketStep.
func Matches(name string, hour int, minuteBucket *int) bool {
	if minuteBucket != nil {
		return strings.Contains(name, Token(hour, *minuteBucket))
	}
	for m := 0; m < 60; m += BucketStep {
		if strings.Contains(name, Token(hour, m)) {
			return true
		}
	}
	return false
}

// Hours lists the scanned hours of the half-open window [start, end).
func Hours(start, end int) []int {
	if end <= start {
		return nil
	}
	hours := make([]int, 0, end-start)
	for h := start; h < end; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Select filters files for every hour in [hourStart, hourEnd) under policy.
// Under PolicyBucket5 a file is appended once per matching (hour, minute)
// query, so duplicates are possible; callers deduplicate by destination.
func Select(
	files []models.RemoteFile,
	hourStart, hourEnd int,
	policy models.MatchPolicy,
) []models.RemoteFile {
	var selected []models.RemoteFile
	for _, h := range Hours(hourStart, hourEnd) {
		switch policy {
		case models.PolicyFirst:
			if f, ok := firstInHour(files, h); ok {
				selected = append(selected, f)
			}
		default:
			for m := 0; m < 60; m += BucketStep {
				minute := m
				for _, f := range files {
					if Matches(f.Name, h, &minute) {
						selected = append(selected, f)
					}
				}
			}
		}
	}
	return selected
}

func firstInHour(files []models.RemoteFile, hour int) (models.RemoteFile, bool) {
	for _, f := range files {
		if strings.Contains(f.Name, Token(hour, 0)) || strings.Contains(f.Name, Token(hour, 5)) {
			return f, true
		}
	}
	return models.RemoteFile{}, false
}
