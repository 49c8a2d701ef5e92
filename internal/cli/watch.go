package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"edtrack/internal/archive"
	"edtrack/internal/bus"
	"edtrack/internal/config"
	"edtrack/internal/ingest"
	"edtrack/internal/journal"
	"edtrack/internal/log"
	"edtrack/internal/metrics"
	"edtrack/internal/tui"
)

func newWatchCmd(opts *options) *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild state from the journal and follow it live",
		Long: `watch replays every journal in the directory, then follows the newest
one as the game writes it. On a terminal it shows a dashboard; otherwise,
or with --headless, it runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			dashboard := !headless && isatty.IsTerminal(os.Stdout.Fd())
			if dashboard && cfg.Logging.File != "" {
				// The dashboard owns the terminal.
				if err := log.SetFileOutput(cfg.Logging.File); err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, cfg, dashboard)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "never show the dashboard")
	return cmd
}

// runWatch replays, then tails until ctx ends or the dashboard closes
func runWatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dashboard bool) error {
	theme, err := tui.LookupTheme(cfg.UI.Theme)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New(cfg.Metrics)
	l := ingest.NewLedgers(bus.New(), ingest.Options{
		MatchInterval:    cfg.Match.Interval,
		MatchMaxAttempts: cfg.Match.MaxAttempts,
	})
	defer l.Close()

	src := journal.NewDirSource(cfg.Journal.Dir)
	ctrl := ingest.NewController(l, src, m)

	if m.IsEnabled() {
		go func() {
			if err := m.Serve(ctx); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	if cfg.Archive.Enabled {
		a, err := archive.Open(ctx, cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer a.Close()
		sink := archive.NewSink(a, ctrl)
		sink.Start(ctx)
		defer sink.Stop()
	}

	if err := ctrl.Replay(ctx); err != nil {
		return fmt.Errorf("replay %s: %w", cfg.Journal.Dir, err)
	}

	tailer := journal.NewTailer(cfg.Journal.Dir, src.End())
	tailer.SetPollInterval(cfg.Journal.PollInterval)
	tailed := make(chan error, 1)
	go func() {
		tailed <- tailer.Run(ctx, func(rec journal.Record) {
			if err := ctrl.Ingest(ctx, rec); err != nil {
				log.Warn("ingest failed", "event", rec.Kind, "error", err)
			}
		})
	}()

	if !dashboard {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", cfg.Journal.Dir)
		return <-tailed
	}

	d := tui.NewDashboard(l, theme)
	go func() {
		<-ctx.Done()
		d.Stop()
	}()
	err = d.Run()
	cancel()
	if tailErr := <-tailed; err == nil {
		err = tailErr
	}
	return err
}
