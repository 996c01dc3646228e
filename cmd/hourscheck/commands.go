package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/config"
	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/calendar"
	trackerService "github.com/cmlabs-hris/hours-watch/internal/service/tracker"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	format  string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "hourscheck",
		Short: "Check logged hours in TMetric",
		Long: `hourscheck signs in to TMetric with the configured account, reads the requested
report and prints the result.

Configuration comes from the environment (or a .env file): TMETRIC_EMAIL,
TMETRIC_PASSWORD, BROWSER_*, REPORT_*.

Examples:
  hourscheck absences                       # last REPORT_ABSENCE_WORKDAYS workdays
  hourscheck absences --from 2025-10-06 --to 2025-10-07
  hourscheck users --days 14 --format yaml
  hourscheck projects`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := formatterFor(opts.format); err != nil {
				return err
			}
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.format, "format", "json", "Output format (json|yaml)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Abort the run after this long")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log run progress to stderr")

	root.AddCommand(newAbsencesCmd(opts), newUsersCmd(opts), newProjectsCmd(opts))
	return root
}

func newAbsencesCmd(opts *rootOptions) *cobra.Command {
	var workdays int
	var from, to string

	cmd := &cobra.Command{
		Use:   "absences",
		Short: "List users with no hours logged in the window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithService(cmd, opts, func(ctx context.Context, cfg *config.Config, svc tracker.Service) (any, error) {
				req := tracker.WindowRequest{From: from, To: to}
				if err := req.Validate(); err != nil {
					return nil, err
				}
				n := cfg.Report.AbsenceWorkdays
				if workdays > 0 {
					n = workdays
				}
				window := req.Window(func() tracker.DateWindow {
					return tracker.AbsenceWindow(calendar.Today(), n)
				})
				return svc.FindEntitiesWithoutActivity(ctx, trackerService.Credentials(cfg), window)
			})
		},
	}

	cmd.Flags().IntVar(&workdays, "workdays", 0, "Number of past workdays to check (default REPORT_ABSENCE_WORKDAYS)")
	cmd.Flags().StringVar(&from, "from", "", "First day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day of the window (YYYY-MM-DD)")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("workdays", "from")
	return cmd
}

func newUsersCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Print per-user daily hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithService(cmd, opts, func(ctx context.Context, cfg *config.Config, svc tracker.Service) (any, error) {
				return svc.CollectEntityChartSeries(ctx, trackerService.Credentials(cfg), trailing(cfg, days))
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Number of calendar days ending today (default REPORT_CONTEXT_DAYS)")
	return cmd
}

func newProjectsCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Print per-project daily hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithService(cmd, opts, func(ctx context.Context, cfg *config.Config, svc tracker.Service) (any, error) {
				return svc.CollectProjectChartSeries(ctx, trackerService.Credentials(cfg), trailing(cfg, days))
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Number of calendar days ending today (default REPORT_CONTEXT_DAYS)")
	return cmd
}

func trailing(cfg *config.Config, days int) tracker.DateWindow {
	if days <= 0 {
		days = cfg.Report.ContextDays
	}
	return tracker.TrailingWindow(calendar.Today(), days)
}

type operation func(ctx context.Context, cfg *config.Config, svc tracker.Service) (any, error)

func runWithService(cmd *cobra.Command, opts *rootOptions, op operation) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	svc := trackerService.NewFromConfig(cfg, nil, nil)
	result, err := op(ctx, cfg, svc)
	if err != nil {
		return err
	}

	format, _ := formatterFor(opts.format)
	return format(cmd.OutOrStdout(), result)
}
