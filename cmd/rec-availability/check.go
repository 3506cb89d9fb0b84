package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olliecrow/rec_availability_monitor/internal/availability"
	"github.com/olliecrow/rec_availability_monitor/internal/config"
	"github.com/olliecrow/rec_availability_monitor/internal/recgov"
	"github.com/olliecrow/rec_availability_monitor/internal/report"
	"github.com/olliecrow/rec_availability_monitor/internal/tui"
)

// checkFlags are the flags shared by permits and campsites.
type checkFlags struct {
	idFlag       string
	startDate    string
	endDate      string
	ids          []string
	stdin        bool
	weekendsOnly bool
	details      bool
	json         bool
}

func (f *checkFlags) register(cmd *cobra.Command, idUsage string) {
	fl := cmd.Flags()
	fl.StringVar(&f.startDate, "start-date", "", "first date to check, YYYY-MM-DD")
	fl.StringVar(&f.endDate, "end-date", "", "last date to check (inclusive), YYYY-MM-DD")
	fl.StringSliceVar(&f.ids, f.idFlag, nil, idUsage)
	fl.BoolVar(&f.stdin, "stdin", false, "read identifiers from stdin, one per line")
	fl.BoolVar(&f.weekendsOnly, "weekends-only", false, "only consider Friday and Saturday start dates")
	fl.BoolVar(&f.details, "details", false, "list every matching date")
	fl.BoolVar(&f.json, "json", false, "print the report as JSON")
}

// checkRun is a validated permits or campsites invocation.
type checkRun struct {
	title       string
	window      availability.DateWindow
	ids         []string
	constraints availability.Constraints
	json        bool
	newSource   func(*recgov.Client) availability.Source
}

func (a *app) permitsCmd() *cobra.Command {
	f := &checkFlags{idFlag: "permits"}
	var minPermits int
	cmd := &cobra.Command{
		Use:   "permits",
		Short: "Check permit division availability",
		Example: `  rec-availability permits --start-date 2026-06-01 --end-date 2026-06-30 --permits 233393
  echo 233393 | rec-availability permits --start-date 2026-06-01 --end-date 2026-06-30 --stdin --details`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if minPermits < 1 {
				return usagef("--min-permits must be at least 1")
			}
			run, err := a.prepare(f)
			if err != nil {
				return err
			}
			run.title = "permits"
			run.constraints.MinRemaining = minPermits
			run.newSource = func(c *recgov.Client) availability.Source {
				return recgov.NewPermitSource(c)
			}
			return a.check(cmd.Context(), run)
		},
	}
	f.register(cmd, "permit identifiers (repeatable or comma separated)")
	cmd.Flags().IntVar(&minPermits, "min-permits", 1, "minimum remaining permits for a date to count")
	return cmd
}

func (a *app) campsitesCmd() *cobra.Command {
	f := &checkFlags{idFlag: "parks"}
	var (
		nights       int
		campsiteIDs  []string
		campsiteType string
	)
	cmd := &cobra.Command{
		Use:   "campsites",
		Short: "Check campground site availability",
		Example: `  rec-availability campsites --start-date 2026-07-01 --end-date 2026-07-31 --parks 232447,232450 --nights 2
  rec-availability campsites --start-date 2026-07-01 --end-date 2026-07-31 --parks 232447 --campsite-type "tent only nonelectric"`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if nights < 1 {
				return usagef("--nights must be at least 1")
			}
			run, err := a.prepare(f)
			if err != nil {
				return err
			}
			filter := recgov.CampsiteFilter{IDs: campsiteIDs, Type: campsiteType}
			run.title = "campsites"
			run.constraints.Nights = nights
			run.newSource = func(c *recgov.Client) availability.Source {
				return recgov.NewCampgroundSource(c, filter)
			}
			return a.check(cmd.Context(), run)
		},
	}
	f.register(cmd, "campground identifiers (repeatable or comma separated)")
	cmd.Flags().IntVar(&nights, "nights", 1, "contiguous nights the same site must be free")
	cmd.Flags().StringSliceVar(&campsiteIDs, "campsite-ids", nil, "only consider these campsite identifiers")
	cmd.Flags().StringVar(&campsiteType, "campsite-type", "", "only consider sites whose type contains this text, case-insensitive")
	return cmd
}

// prepare validates dates and resolves identifiers before any network call.
func (a *app) prepare(f *checkFlags) (checkRun, error) {
	if f.startDate == "" || f.endDate == "" {
		return checkRun{}, usagef("--start-date and --end-date are required")
	}
	window, err := availability.ParseDateWindow(f.startDate, f.endDate)
	if err != nil {
		return checkRun{}, usageError{err: err}
	}
	if a.watch && f.json {
		return checkRun{}, usagef("--watch cannot be combined with --json")
	}
	if a.watch && f.stdin {
		return checkRun{}, usagef("--watch cannot be combined with --stdin")
	}

	in, err := config.SelectInput(f.ids, f.stdin, a.stdin)
	if err != nil {
		return checkRun{}, usagef("%v (--%s)", err, f.idFlag)
	}
	ids, err := in.Identifiers()
	if err != nil {
		return checkRun{}, err
	}

	return checkRun{
		window: window,
		ids:    ids,
		constraints: availability.Constraints{
			WeekendsOnly: f.weekendsOnly,
			Detailed:     f.details || f.json,
		},
		json: f.json,
	}, nil
}

func (a *app) check(ctx context.Context, run checkRun) error {
	client := a.newClient()
	fetcher := availability.NewFetcher(run.newSource(client), a.cfg.Parallelism, a.runLogger())
	defer fetcher.Close()
	notifier := report.Notifier{Command: a.cfg.NotifyCmd, Always: a.notifyAlways}

	if a.watch {
		return a.watchChecks(fetcher, notifier, run)
	}

	r := fetcher.Run(ctx, run.ids, run.window, run.constraints)
	var err error
	if run.json {
		err = report.WriteJSON(a.stdout, r)
	} else {
		err = report.WriteText(a.stdout, r, a.textStyles())
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	var errs []error
	if err := notifier.Send(ctx, report.Text(r, report.PlainStyles()), r.HasAvailability()); err != nil {
		a.logger.Error("notify failed", zap.Error(err))
		errs = append(errs, err)
	}
	if r.Failed() {
		errs = append(errs, fmt.Errorf("all %d identifier(s) failed to fetch", len(r.Summaries)))
	}
	return errors.Join(errs...)
}

func (a *app) watchChecks(fetcher *availability.Fetcher, notifier report.Notifier, run checkRun) error {
	if !isTerminal(a.stdin) || !isTerminal(a.stdout) {
		return errors.New("--watch requires a TTY")
	}
	return tui.Run(tui.Options{
		Title:     "rec availability: " + run.title,
		Interval:  a.cfg.Interval,
		NoColor:   a.noColor,
		AltScreen: !a.noAltScreen,
		Fetch: func(ctx context.Context) (*availability.Report, error) {
			r := fetcher.Run(ctx, run.ids, run.window, run.constraints)
			if r.Failed() {
				return nil, fmt.Errorf("all %d identifier(s) failed; first: %s", len(r.Summaries), r.Summaries[0].Error)
			}
			if err := notifier.Send(ctx, report.Text(r, report.PlainStyles()), r.HasAvailability()); err != nil {
				return &r, err
			}
			return &r, nil
		},
	})
}

func (a *app) textStyles() report.Styles {
	if a.noColor || !isTerminal(a.stdout) {
		return report.PlainStyles()
	}
	return report.ColorStyles()
}
