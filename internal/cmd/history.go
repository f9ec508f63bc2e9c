package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/dicomsort/internal/display"
	"github.com/harrison/dicomsort/internal/ledger"
)

// NewHistoryCommand creates the 'dicomsort history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sort jobs",
		Long: `List the sort jobs recorded in the history database, most recent first.

Use "dicomsort history show <job-id>" for the details of one job. A unique
prefix of the job ID is enough.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of jobs to list (0 = all)")

	cmd.AddCommand(newHistoryShowCommand())
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one recorded job",
		Long: `Display a recorded job including:
  - Job folder, output folder and pattern
  - Status, counts and duration
  - Skipped files
  - Placed files (with --files)`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryShow,
	}
	cmd.Flags().Bool("files", false, "List every placed file")
	return cmd
}

// openLedger opens the history database, or returns nil when none exists yet.
func openLedger(cmd *cobra.Command) (*ledger.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.History.DBPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		return nil, nil
	}
	store, err := ledger.NewStore(cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	store, err := openLedger(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(output, "No jobs recorded.")
		return nil
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	jobs, err := store.ListJobs(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(output, "No jobs recorded.")
		return nil
	}

	table := display.NewTable("ID", "STARTED", "STATUS", "PATTERN", "PLACED", "SKIPPED", "FAILED", "SOURCE")
	for _, j := range jobs {
		table.AddRow(
			shortID(j.ID),
			j.StartedAt.Local().Format("2006-01-02 15:04"),
			j.Status,
			jobPattern(j),
			strconv.Itoa(j.Placed),
			strconv.Itoa(j.Skipped),
			strconv.Itoa(j.Failed),
			j.SourceDir,
		)
	}
	return table.Render(output)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	store, err := openLedger(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%s: %w", args[0], ledger.ErrJobNotFound)
	}
	defer store.Close()

	ctx := cmd.Context()
	job, err := store.GetJob(ctx, args[0])
	if err != nil {
		return err
	}
	skips, err := store.Skips(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("get skipped files: %w", err)
	}

	printJob(output, job)

	if len(skips) > 0 {
		color.New(color.FgYellow).Fprintf(output, "\nSkipped files (%d):\n", len(skips))
		for _, sk := range skips {
			line := fmt.Sprintf("  %s: %s", sk.Source, sk.Reason)
			if sk.Detail != "" {
				line += " (" + sk.Detail + ")"
			}
			fmt.Fprintln(output, line)
		}
	}

	if showFiles, _ := cmd.Flags().GetBool("files"); showFiles {
		placements, err := store.Placements(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("get placements: %w", err)
		}
		fmt.Fprintf(output, "\nPlaced files (%d):\n", len(placements))
		table := display.NewTable("SOURCE", "DESTINATION")
		for _, p := range placements {
			table.AddRow(p.Source, p.RelativePath)
		}
		if err := table.Render(output); err != nil {
			return err
		}
	}

	return nil
}

// printJob formats the header of a recorded job
func printJob(w io.Writer, job *ledger.JobRecord) {
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "=== Job %s ===\n\n", job.ID)
	fmt.Fprintf(w, "Status:         %s\n", statusColor(job.Status).Sprint(job.Status))
	fmt.Fprintf(w, "Source:         %s\n", job.SourceDir)
	fmt.Fprintf(w, "Output:         %s\n", job.OutputRoot)
	fmt.Fprintf(w, "Pattern:        %s\n", jobPattern(job))
	if job.PatternName != "" {
		gray.Fprintf(w, "                %s\n", job.Pattern)
	}
	fmt.Fprintf(w, "Mode:           %s\n", job.Mode)
	fmt.Fprintf(w, "On missing tag: %s\n", job.Policy)
	fmt.Fprintf(w, "Started:        %s\n", job.StartedAt.Local().Format(time.DateTime))
	if job.FinishedAt != nil {
		fmt.Fprintf(w, "Duration:       %s\n", job.Duration)
	}
	fmt.Fprintf(w, "Files scanned:  %d\n", job.Scanned)
	fmt.Fprintf(w, "Planned:        %d\n", job.Planned)
	fmt.Fprintf(w, "Placed:         %d\n", job.Placed)
	fmt.Fprintf(w, "Skipped:        %d\n", job.Skipped)
	fmt.Fprintf(w, "Failed:         %d\n", job.Failed)
	if job.ErrorMessage != "" {
		color.New(color.FgRed).Fprintf(w, "Error:          %s\n", job.ErrorMessage)
	}
}

func statusColor(status string) *color.Color {
	switch status {
	case ledger.StatusCompleted:
		return color.New(color.FgGreen)
	case ledger.StatusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

func jobPattern(job *ledger.JobRecord) string {
	if job.PatternName != "" {
		return job.PatternName
	}
	return job.Pattern
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
