package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rarpack/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous pack runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unsupported format %q (use table, json, or yaml)", format)
			}

			store, err := history.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			if strings.TrimSpace(runID) != "" {
				return printJobs(cmd, store, strings.TrimSpace(runID), format)
			}
			return printRuns(cmd, store, limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, or yaml")
	cmd.Flags().StringVar(&runID, "run", "", "List the jobs of one run")
	return cmd
}

func printRuns(cmd *cobra.Command, store *history.Store, limit int, format string) error {
	runs, err := store.ListRuns(context.WithoutCancel(cmd.Context()), limit)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return writeJSON(cmd, runs)
	case "yaml":
		return writeYAML(cmd, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Status,
			run.OutputMode,
			fmt.Sprintf("%d/%d", run.Completed, run.Total),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Dropped),
			formatDuration(run.Duration()),
		})
	}
	headers := []string{"Run", "Started", "Status", "Mode", "Done", "Failed", "Dropped", "Duration"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
	return nil
}

func printJobs(cmd *cobra.Command, store *history.Store, runID, format string) error {
	records, err := store.Jobs(context.WithoutCancel(cmd.Context()), runID)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return writeJSON(cmd, records)
	case "yaml":
		return writeYAML(cmd, records)
	}
	if len(records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No jobs recorded for run %s\n", runID)
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		result := "ok"
		if !rec.Succeeded {
			result = fmt.Sprintf("exit %d", rec.ExitCode)
			if rec.ErrorKind != "" {
				result = rec.ErrorKind
			}
		}
		rows = append(rows, []string{strconv.Itoa(rec.Slot), rec.SourcePath, rec.ArchiveName, result})
	}
	headers := []string{"Slot", "Source", "Archive", "Result"}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignRight}))
	return nil
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
