// Package workitems turns a user run request into the ordered list of
// (collection, date) work items and builds destination paths for them.
package workitems

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
)

type DateMode string

const (
	ModeSingle     DateMode = "single"
	ModeDayRange   DateMode = "day-range"
	ModeMonthRange DateMode = "month-range"
)

// DateBounds holds the user supplied dates. For ModeSingle only Start is
// read; for ModeMonthRange only the year and month of each bound matter.
type DateBounds struct {
	Start time.Time
	End   time.Time
}

type DestinationKind string

const (
	DestinationMount DestinationKind = "mount"
	DestinationLocal DestinationKind = "local"
)

type Destination struct {
	Kind DestinationKind
	// Name is the mount name for DestinationMount.
	Name string
	// Path is the root directory for DestinationLocal.
	Path string
}

// RunRequest is what the user surface collects before a run.
type RunRequest struct {
	Collections        []string
	DateMode           DateMode
	Bounds             DateBounds
	Destination        Destination
	DestinationSubname string
	HourStart          int
	HourEnd            int
}

type ResolveOptions struct {
	ArchiveID   string
	Token       string
	MountRoot   string
	Policy      models.MatchPolicy
	MonthLocale string
}

// ValidationError reports a request that must not start.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var validate = validator.New()

// Resolve converts a RunRequest into a DownloadRequest. Dates are expanded
// according to the date mode and the destination root is derived from the
// destination kind.
func Resolve(run RunRequest, opts ResolveOptions) (models.DownloadRequest, error) {
	start, end, err := ResolveDates(run.DateMode, run.Bounds)
	if err != nil {
		return models.DownloadRequest{}, err
	}
	root, err := DestinationRoot(run.Destination, run.DestinationSubname, opts.MountRoot)
	if err != nil {
		return models.DownloadRequest{}, err
	}
	policy := opts.Policy
	if policy == "" {
		policy = models.PolicyBucket5
	}
	return models.DownloadRequest{
		Collections:     Dedupe(run.Collections),
		Start:           start,
		End:             end,
		HourStart:       run.HourStart,
		HourEnd:         run.HourEnd,
		DestinationRoot: root,
		ArchiveID:       opts.ArchiveID,
		Token:           opts.Token,
		Policy:          policy,
		MonthLocale:     opts.MonthLocale,
	}, nil
}

// ResolveDates returns the inclusive first and last date of the request as
// UTC midnights.
func ResolveDates(mode DateMode, b DateBounds) (time.Time, time.Time, error) {
	switch mode {
	case ModeSingle:
		d := dateOnly(b.Start)
		return d, d, nil
	case ModeDayRange:
		return dateOnly(b.Start), dateOnly(b.End), nil
	case ModeMonthRange:
		first := time.Date(b.Start.Year(), b.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(b.End.Year(), b.End.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		return first, last, nil
	default:
		return time.Time{}, time.Time{}, &ValidationError{
			Field:  "DateMode",
			Reason: fmt.Sprintf("unknown date mode %q", mode),
		}
	}
}

// DestinationRoot maps a destination to its root directory. A mount
// destination lands under {mountRoot}/{name}/{subname}/Modis.
func DestinationRoot(d Destination, subname, mountRoot string) (string, error) {
	switch d.Kind {
	case DestinationMount:
		if d.Name == "" {
			return "", &ValidationError{Field: "Destination", Reason: "mount name is empty"}
		}
		if subname == "" {
			return "", &ValidationError{Field: "DestinationSubname", Reason: "destination folder is empty"}
		}
		return filepath.Join(mountRoot, d.Name, subname, "Modis"), nil
	case DestinationLocal:
		if d.Path == "" {
			return "", &ValidationError{Field: "Destination", Reason: "local path is empty"}
		}
		return filepath.Clean(d.Path), nil
	default:
		return "", &ValidationError{
			Field:  "Destination",
			Reason: fmt.Sprintf("unknown destination kind %q", d.Kind),
		}
	}
}

// Validate checks req before any work is done.
func Validate(req models.DownloadRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{
				Field:  fe.Field(),
				Reason: fmt.Sprintf("failed %q check", fe.Tag()),
				Err:    err,
			}
		}
		return &ValidationError{Reason: err.Error(), Err: err}
	}
	if dateOnly(req.Start).After(dateOnly(req.End)) {
		return &ValidationError{
			Field: "Start",
			Reason: fmt.Sprintf("start date %s is after end date %s",
				req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly)),
		}
	}
	return nil
}

// Expand validates req and lists its work items collection-major, with
// dates ascending inside each collection.
func Expand(req models.DownloadRequest) ([]models.WorkItem, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	collections := Dedupe(req.Collections)
	start, end := dateOnly(req.Start), dateOnly(req.End)
	days := int(end.Sub(start).Hours()/24) + 1

	items := make([]models.WorkItem, 0, len(collections)*days)
	for _, c := range collections {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			items = append(items, models.WorkItem{Collection: c, Date: d})
		}
	}
	return items, nil
}

// Dedupe drops repeated and blank collections, keeping first occurrences.
func Dedupe(collections []string) []string {
	seen := make(map[string]struct{}, len(collections))
	out := make([]string, 0, len(collections))
	for _, c := range collections {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

var monthNames = map[string][12]string{
	"en": {
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	},
	"it": {
		"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
		"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
	},
}

// MonthFolder returns {Month}_{Year}, e.g. May_2025 or Maggio_2025. Unknown
// locales fall back to English.
func MonthFolder(date time.Time, locale string) string {
	names, ok := monthNames[locale]
	if !ok {
		names = monthNames["en"]
	}
	return capitalize(names[date.Month()-1]) + "_" + strconv.Itoa(date.Year())
}

// TargetDir is the directory that receives the files of one date.
func TargetDir(root string, date time.Time, locale string) string {
	return filepath.Join(root, MonthFolder(date, locale))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts 2006-01-02 or the day-of-year form YYYY/DDD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if year, doy, ok := strings.Cut(s, "/"); ok {
		y, err := strconv.Atoi(year)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse year %q: %w", year, err)
		}
		d, err := strconv.Atoi(doy)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse day of year %q: %w", doy, err)
		}
		first := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		if d < 1 || d > first.AddDate(1, 0, -1).YearDay() {
			return time.Time{}, fmt.Errorf("day of year %d out of range for %d", d, y)
		}
		return first.AddDate(0, 0, d-1), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseMonth accepts 2006-01.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return t, nil
}
