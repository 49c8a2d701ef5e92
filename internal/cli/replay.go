package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"edtrack/internal/archive"
	"edtrack/internal/bus"
	"edtrack/internal/config"
	"edtrack/internal/ingest"
	"edtrack/internal/journal"
	"edtrack/internal/ledger"
)

// Summary is the replay report
type Summary struct {
	Commander         string  `json:"commander"`
	FID               string  `json:"fid"`
	System            string  `json:"system"`
	ActiveMissions    int     `json:"active_missions"`
	KillsOutstanding  int     `json:"kills_outstanding"`
	CompletedMissions int     `json:"completed_missions"`
	CargoUsed         int64   `json:"cargo_used"`
	CargoCapacity     int64   `json:"cargo_capacity"`
	MiningSessions    int     `json:"mining_sessions"`
	Refined           int     `json:"refined"`
	DataOnHold        int64   `json:"data_on_hold"`
	ExplorationSales  int     `json:"exploration_sales"`
	UnclaimedBounties int64   `json:"unclaimed_bounties"`
	UnclaimedBonds    int64   `json:"unclaimed_bonds"`
	Jumps             int     `json:"jumps"`
	Distance          float64 `json:"distance_ly"`
}

func newReplayCmd(opts *options) *cobra.Command {
	var archivePath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild state from the journal once and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if archivePath != "" {
				cfg.Archive.Enabled = true
				cfg.Archive.Path = archivePath
			}
			s, err := runReplay(cmd, cfg)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			printSummary(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "export completed history to this SQLite file")
	return cmd
}

// runReplay ingests the whole journal directory and optionally archives it
func runReplay(cmd *cobra.Command, cfg *config.Config) (Summary, error) {
	ctx := cmd.Context()
	l := ingest.NewLedgers(bus.New(), ingest.Options{
		MatchInterval:    cfg.Match.Interval,
		MatchMaxAttempts: cfg.Match.MaxAttempts,
	})
	defer l.Close()

	ctrl := ingest.NewController(l, journal.NewDirSource(cfg.Journal.Dir), nil)
	start := time.Now()
	if err := ctrl.Replay(ctx); err != nil {
		return Summary{}, fmt.Errorf("replay %s: %w", cfg.Journal.Dir, err)
	}
	elapsed := time.Since(start)

	if cfg.Archive.Enabled {
		a, err := archive.Open(ctx, cfg.Archive.Path)
		if err != nil {
			return Summary{}, err
		}
		defer a.Close()
		stats, err := a.Export(ctx, ctrl.Snapshot())
		if err != nil {
			return Summary{}, err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Archived %d missions, %d mining sessions, %d sales to %s\n",
			stats.Missions, stats.MiningSessions, stats.Sales, cfg.Archive.Path)
	}

	s := summarize(ctrl.Snapshot())
	fmt.Fprintf(cmd.ErrOrStderr(), "Replayed %s in %s\n", cfg.Journal.Dir, elapsed.Round(time.Millisecond))
	return s, nil
}

// summarize reduces a state snapshot to the report
func summarize(st ingest.State) Summary {
	s := Summary{
		Commander:         st.Profile.Name,
		FID:               st.Profile.FID,
		System:            st.Profile.CurrentSystem,
		CompletedMissions: len(st.MissionHistory),
		CargoUsed:         st.Cargo.Used,
		CargoCapacity:     st.Cargo.MaxCapacity,
		MiningSessions:    len(st.MiningHistory),
		DataOnHold:        st.SaleTotals.TotalEarnings,
		ExplorationSales:  len(st.Sales),
		UnclaimedBounties: st.Combat.UnclaimedBounties(),
		UnclaimedBonds:    st.Combat.UnclaimedBonds(),
		Jumps:             len(st.Jumps),
	}
	for _, m := range st.Missions {
		if m.Status != ledger.MissionActive {
			continue
		}
		s.ActiveMissions++
		if m.Massacre {
			s.KillsOutstanding += m.Remaining()
		}
	}
	sessions := st.MiningHistory
	if st.Mining != nil {
		s.MiningSessions++
		sessions = append(sessions, *st.Mining)
	}
	for _, session := range sessions {
		s.Refined += session.TotalRefined()
	}
	for _, j := range st.Jumps {
		s.Distance += j.Distance
	}
	return s
}

func printSummary(w io.Writer, s Summary) {
	if s.FID == "" {
		fmt.Fprintln(w, "No commander found in the journal")
		return
	}
	fmt.Fprintf(w, "CMDR %s (%s) in %s\n", s.Commander, s.FID, orDash(s.System))
	fmt.Fprintf(w, "  Missions: %d active, %d kills outstanding, %d completed\n", s.ActiveMissions, s.KillsOutstanding, s.CompletedMissions)
	fmt.Fprintf(w, "  Cargo: %d/%d t\n", s.CargoUsed, s.CargoCapacity)
	fmt.Fprintf(w, "  Mining: %d sessions, %d t refined\n", s.MiningSessions, s.Refined)
	fmt.Fprintf(w, "  Exploration: %d cr on hold, %d sales\n", s.DataOnHold, s.ExplorationSales)
	fmt.Fprintf(w, "  Combat: %d cr bounties, %d cr bonds unclaimed\n", s.UnclaimedBounties, s.UnclaimedBonds)
	fmt.Fprintf(w, "  Travel: %d jumps, %.1f ly\n", s.Jumps, s.Distance)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
