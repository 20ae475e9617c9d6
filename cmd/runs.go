package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect conversion run history",
	Long:  "Commands for listing, viewing, and summarizing conversion runs recorded in the ledger.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversion runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		sessionID, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:    model.RunStatus(status),
			SessionID: sessionID,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		var cutoff time.Time
		if since > 0 {
			cutoff = time.Now().Add(-since)
		}
		formatRunStats(os.Stdout, computeRunStats(runs, cutoff))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, recoverable, failed)")
	runsListCmd.Flags().String("session", "", "filter by session ID")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total       int
	Complete    int
	Recoverable int
	Failed      int
	Running     int
	Local       int
	Units       int
	Completed   int
	AvgDurSecs  float64
}

// computeRunStats computes aggregate statistics over runs created at or
// after cutoff. A zero cutoff includes everything.
func computeRunStats(runs []model.Run, cutoff time.Time) runStats {
	var s runStats

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		if !cutoff.IsZero() && r.CreatedAt.Before(cutoff) {
			continue
		}
		s.Total++
		s.Units += r.Units
		s.Completed += r.Completed
		if r.Mode == model.ModeLocalFallback {
			s.Local++
		}
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
		case model.RunStatusRecoverable:
			s.Recoverable++
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Running++
		}
		if r.FinishedAt != nil {
			totalDur += r.FinishedAt.Sub(r.CreatedAt)
			durCount++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSESSION\tMODE\tSTATUS\tUNITS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t------\t-----\t-------\t--------")

	for _, r := range runs {
		dur := "-"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.CreatedAt).Round(time.Second).String()
		}

		sess := truncateID(r.SessionID)
		if sess == "" {
			sess = "cli"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			truncateID(r.ID),
			sess,
			r.Mode,
			r.Status,
			r.Completed,
			r.Units,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Recoverable:\t%d\n", s.Recoverable)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Local mode:\t%d\n", s.Local)
	_, _ = fmt.Fprintf(w, "Files transcribed:\t%d/%d\n", s.Completed, s.Units)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
