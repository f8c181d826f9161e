package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/config"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/events"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/orchestrator"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/report"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/settings"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/workitems"
)

type downloadOptions struct {
	collections []string
	date        string
	from        string
	to          string
	fromMonth   string
	toMonth     string
	mount       string
	local       string
	destFolder  string
	archive     string
	token       string
	hourStart   int
	hourEnd     int
	policy      string
}

var dlOpts = downloadOptions{hourStart: -1, hourEnd: -1}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download MODIS granules for a date range and hour window",
	Example: `  modis-fetcher download --date 2024/123 --local ./modis
  modis-fetcher download --collection MYD03 --from 2024-05-01 --to 2024-05-07 --mount NAS29F79B
  modis-fetcher download --from-month 2024-11 --to-month 2025-01 --hour-start 9 --hour-end 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		stored := services.Settings.Load()
		run, resolveOpts, err := buildRunRequest(dlOpts, cfg, stored, os.Getenv("MODIS_TOKEN"))
		if err != nil {
			return err
		}
		req, err := workitems.Resolve(run, resolveOpts)
		if err != nil {
			return fmt.Errorf("could not start: %w", err)
		}
		services.Settings.Save(settingsAfterRun(dlOpts, stored))

		// Terminal output is drained on its own goroutine.
		screen := events.NewChannel(256)
		stopScreen := screen.Pump(render)
		rep, err := services.Runner.Run(ctx, req, events.Multi(screen, events.NewLogger(logger)))
		stopScreen()
		if cfg.Download.ReportCSV != "" && len(rep.Results) > 0 {
			if werr := report.WriteCSV(cfg.Download.ReportCSV, rep); werr != nil {
				logger.Errorw("Could not write report", "path", cfg.Download.ReportCSV, "error", werr)
			}
		}
		if err != nil {
			if errors.Is(err, orchestrator.ErrAborted) && len(rep.Results) == 0 {
				return fmt.Errorf("could not start: %w", err)
			}
			return err
		}
		printBreakdown(rep)
		return nil
	},
}

// buildRunRequest combines flags, configuration and stored settings. Flags
// win over the environment token, which wins over stored settings.
func buildRunRequest(
	o downloadOptions,
	c config.Config,
	st settings.Settings,
	envToken string,
) (workitems.RunRequest, workitems.ResolveOptions, error) {
	var run workitems.RunRequest

	mode, bounds, err := dateSelection(o)
	if err != nil {
		return run, workitems.ResolveOptions{}, err
	}
	run.DateMode = mode
	run.Bounds = bounds

	run.Collections = o.collections
	if len(run.Collections) == 0 {
		run.Collections = c.Download.Collections
	}

	switch {
	case o.mount != "" && o.local != "":
		return run, workitems.ResolveOptions{}, errors.New("--mount and --local are mutually exclusive")
	case o.mount != "":
		if len(c.Download.Mounts) > 0 && !slices.Contains(c.Download.Mounts, o.mount) {
			return run, workitems.ResolveOptions{}, fmt.Errorf("unknown mount %q, configured: %v", o.mount, c.Download.Mounts)
		}
		run.Destination = workitems.Destination{Kind: workitems.DestinationMount, Name: o.mount}
	case o.local != "":
		run.Destination = workitems.Destination{Kind: workitems.DestinationLocal, Path: o.local}
	default:
		run.Destination = workitems.Destination{Kind: workitems.DestinationLocal, Path: c.Download.Directory}
	}
	run.DestinationSubname = firstNonEmpty(o.destFolder, st.DestinationFolder)

	run.HourStart, run.HourEnd = c.Download.HourStart, c.Download.HourEnd
	if o.hourStart >= 0 {
		run.HourStart = o.hourStart
	}
	if o.hourEnd >= 0 {
		run.HourEnd = o.hourEnd
	}

	return run, workitems.ResolveOptions{
		ArchiveID:   firstNonEmpty(o.archive, st.ArchiveID),
		Token:       firstNonEmpty(o.token, envToken, st.Token),
		MountRoot:   c.Download.MountRoot,
		Policy:      models.MatchPolicy(firstNonEmpty(o.policy, c.Download.MatchPolicy)),
		MonthLocale: c.Download.MonthLocale,
	}, nil
}

func dateSelection(o downloadOptions) (workitems.DateMode, workitems.DateBounds, error) {
	var b workitems.DateBounds
	var err error
	switch {
	case o.date != "" && o.from == "" && o.to == "" && o.fromMonth == "" && o.toMonth == "":
		b.Start, err = workitems.ParseDate(o.date)
		b.End = b.Start
		return workitems.ModeSingle, b, err
	case o.date == "" && o.from != "" && o.to != "" && o.fromMonth == "" && o.toMonth == "":
		if b.Start, err = workitems.ParseDate(o.from); err != nil {
			return "", b, err
		}
		b.End, err = workitems.ParseDate(o.to)
		return workitems.ModeDayRange, b, err
	case o.date == "" && o.from == "" && o.to == "" && o.fromMonth != "" && o.toMonth != "":
		if b.Start, err = workitems.ParseMonth(o.fromMonth); err != nil {
			return "", b, err
		}
		b.End, err = workitems.ParseMonth(o.toMonth)
		return workitems.ModeMonthRange, b, err
	default:
		return "", b, errors.New("choose exactly one of --date, --from/--to or --from-month/--to-month")
	}
}

// settingsAfterRun keeps what the user typed for the next run.
func settingsAfterRun(o downloadOptions, st settings.Settings) settings.Settings {
	if o.token != "" {
		st.Token = o.token
	}
	if o.archive != "" {
		st.ArchiveID = o.archive
	}
	if o.destFolder != "" {
		st.DestinationFolder = o.destFolder
	}
	return st
}

func printBreakdown(rep models.Report) {
	for _, res := range rep.Results {
		status := "ok"
		if res.ListingError != nil {
			status = "listing error: " + res.ListingError.Error()
		}
		fmt.Printf("%-10s %s  listed=%d matched=%d downloaded=%d skipped=%d failed=%d  %s\n",
			res.Item.Collection,
			res.Item.Date.Format("2006-01-02"),
			res.FilesListed, res.FilesMatched, res.FilesDownloaded, res.FilesSkipped, res.FilesFailed,
			status)
	}
	sum := rep.Summary()
	fmt.Printf("run %s: %d items, %d downloaded (%d bytes), %d skipped, %d failed, %d listing errors\n",
		rep.RunID, sum.Items, sum.FilesDownloaded, sum.BytesDownloaded, sum.FilesSkipped, sum.FilesFailed, sum.ListingErrors)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	f := downloadCmd.Flags()
	f.StringSliceVar(&dlOpts.collections, "collection", nil, "Product collection, repeatable (default from config)")
	f.StringVar(&dlOpts.date, "date", "", "Single date, 2006-01-02 or YYYY/DOY")
	f.StringVar(&dlOpts.from, "from", "", "First date of a day range")
	f.StringVar(&dlOpts.to, "to", "", "Last date of a day range")
	f.StringVar(&dlOpts.fromMonth, "from-month", "", "First month of a month range, 2006-01")
	f.StringVar(&dlOpts.toMonth, "to-month", "", "Last month of a month range, 2006-01")
	f.StringVar(&dlOpts.mount, "mount", "", "Named network mount to write to")
	f.StringVar(&dlOpts.local, "local", "", "Local destination directory (default download.directory)")
	f.StringVar(&dlOpts.destFolder, "dest-folder", "", "Folder below the mount (default from settings)")
	f.StringVar(&dlOpts.archive, "archive", "", "Source archive id (default from settings)")
	f.StringVar(&dlOpts.token, "token", "", "Bearer token (default MODIS_TOKEN, then settings)")
	f.IntVar(&dlOpts.hourStart, "hour-start", -1, "First hour scanned (default download.hour_start)")
	f.IntVar(&dlOpts.hourEnd, "hour-end", -1, "Hour where scanning stops, exclusive (default download.hour_end)")
	f.StringVar(&dlOpts.policy, "policy", "", "Match policy: bucket5 or first (default download.match_policy)")
}
