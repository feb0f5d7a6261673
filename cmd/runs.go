package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/monitoring"
	"github.com/sells-group/formfill-cli/internal/report"
	"github.com/sells-group/formfill-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List fill run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		formURL, _ := cmd.Flags().GetString("form")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(status),
			FormURL: formURL,
			Limit:   limit,
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

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		output, _ := cmd.Flags().GetString("output")
		return writeOutput(os.Stdout, output, run, func(w io.Writer) error {
			return formatRunText(w, run)
		})
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run health over a lookback window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		hours := int(since.Hours())
		if hours <= 0 {
			hours = cfg.Monitoring.LookbackWindowHours
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		alerts := monitoring.NewAlerter(cfg.Monitoring).Evaluate(snap)

		output, _ := cmd.Flags().GetString("output")
		return writeOutput(os.Stdout, output, map[string]any{"metrics": snap, "alerts": alerts}, func(w io.Writer) error {
			formatStats(w, snap, alerts)
			return nil
		})
	},
}

func formatStats(w io.Writer, snap *monitoring.MetricsSnapshot, alerts []monitoring.Alert) {
	fmt.Fprintf(w, "Runs (last %dh): %d total, %d complete, %d failed, %d active\n",
		snap.LookbackHours, snap.RunsTotal, snap.RunsComplete, snap.RunsFailed, snap.RunsActive)
	fmt.Fprintf(w, "Failure rate: %.1f%%\n", snap.FailRate*100)
	fmt.Fprintf(w, "Questions: %d, unresolved: %d (%.1f%%), warnings: %d\n",
		snap.Questions, snap.Unresolved, snap.UnresolvedRate*100, snap.Warnings)
	fmt.Fprintf(w, "Estimated cost: $%.4f, avg tokens/run: %d\n", snap.CostUSD, snap.AvgTokens)
	for _, a := range alerts {
		fmt.Fprintf(w, "ALERT [%s] %s\n", a.Severity, a.Message)
	}
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tFORM\tCREATED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Status,
			truncate(r.FormURL, 70),
			r.CreatedAt.Local().Format(time.DateTime),
			truncate(r.Error, 50),
		)
	}
	_ = tw.Flush()
}

func formatRunText(w io.Writer, run *model.Run) error {
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(w, "Created: %s\n", run.CreatedAt.Local().Format(time.DateTime))
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	if run.Result == nil {
		return nil
	}
	fmt.Fprintln(w)
	_, err := io.WriteString(w, report.Summary(run.Result))
	return err
}

func init() {
	runsCmd.Flags().String("status", "", "filter by status (queued, fetching, parsing, resolving, complete, failed)")
	runsCmd.Flags().String("form", "", "filter by normalized form URL")
	runsCmd.Flags().Int("limit", store.DefaultListLimit, "maximum runs to list")
	runsShowCmd.Flags().StringP("output", "o", formatJSON, "output format: json, yaml or text")
	runsStatsCmd.Flags().Duration("since", 0, "lookback window (default from monitoring.lookback_window_hours)")
	runsStatsCmd.Flags().StringP("output", "o", formatText, "output format: json, yaml or text")

	runsCmd.AddCommand(runsShowCmd, runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}
