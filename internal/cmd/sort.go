package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/harrison/dicomsort/internal/config"
	"github.com/harrison/dicomsort/internal/dicomtag"
	"github.com/harrison/dicomsort/internal/display"
	"github.com/harrison/dicomsort/internal/ledger"
	"github.com/harrison/dicomsort/internal/logger"
	"github.com/harrison/dicomsort/internal/metadata"
	"github.com/harrison/dicomsort/internal/registry"
	"github.com/harrison/dicomsort/internal/report"
	"github.com/harrison/dicomsort/internal/resolver"
	"github.com/harrison/dicomsort/internal/sorter"
)

// newRecordReader returns the reader used for job folders. Tests replace it.
var newRecordReader = func() metadata.Reader {
	return metadata.NewDICOMReader()
}

// NewSortCommand creates the sort command
func NewSortCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort <job_dir> <pattern_name>",
		Short: "Sort the DICOM files of a job folder using a stored pattern",
		Long: `Sort every DICOM file found under job_dir into the output folder, using
the paths produced by the named pattern.

Files are read in lexicographic path order, so counters are reproducible for
an unchanged job folder. The job is planned in full before any file is
touched: collisions (including a file placed where another needs a folder),
over-long paths and (by default) missing tags or empty path segments reject
the whole job. Files that are not DICOM are skipped and reported.

Examples:
  dicomsort sort /data/job42 idis
  dicomsort sort /data/job42 nucmed --output_folder /data/sorted --move
  dicomsort sort /data/job42 idis --dry-run --report plan.html
  dicomsort sort /data/job42 idis --on-missing-tag skip`,
		Args: cobra.ExactArgs(2),
		RunE: runSort,
	}

	cmd.Flags().String("output_folder", "", "Output folder (default: <job_dir>_sorted)")
	cmd.Flags().Bool("move", false, "Move files instead of copying them")
	cmd.Flags().Bool("dry-run", false, "Plan the job and report it without touching any file")
	cmd.Flags().String("on-missing-tag", "", "What to do with records lacking a tag: abort, skip, collect")
	cmd.Flags().String("report", "", "Write a job report (.md, or .html/.htm for HTML)")
	cmd.Flags().Int("max-path-length", -1, "Reject destinations longer than this (0 = no limit, -1 = use config)")
	cmd.Flags().Bool("no-history", false, "Do not record this job in the history database")

	return cmd
}

func runSort(cmd *cobra.Command, args []string) error {
	jobDir, patternName := args[0], args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var modePtr, onMissingPtr *string
	if move, _ := cmd.Flags().GetBool("move"); move {
		mode := config.ModeMove
		modePtr = &mode
	}
	if cmd.Flags().Changed("on-missing-tag") {
		onMissing, _ := cmd.Flags().GetString("on-missing-tag")
		onMissingPtr = &onMissing
	}
	var noHistoryPtr *bool
	if cmd.Flags().Changed("no-history") {
		noHistory, _ := cmd.Flags().GetBool("no-history")
		noHistoryPtr = &noHistory
	}
	cfg.MergeWithFlags(nil, modePtr, onMissingPtr, noHistoryPtr)
	if maxLen, _ := cmd.Flags().GetInt("max-path-length"); cmd.Flags().Changed("max-path-length") && maxLen >= 0 {
		cfg.Sort.MaxPathLength = maxLen
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	info, err := os.Stat(jobDir)
	if err != nil {
		return fmt.Errorf("job folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("job folder %s is not a directory", jobDir)
	}

	reg, err := registry.Open(cfg.PatternsFile)
	if err != nil {
		return fmt.Errorf("failed to open pattern registry: %w", err)
	}
	p, err := reg.Load(patternName)
	if err != nil {
		if errors.Is(err, registry.ErrPatternNotFound) {
			return fmt.Errorf("unknown pattern %q (see \"dicomsort pattern list\")", patternName)
		}
		return err
	}

	dict, err := dicomtag.NewStandardDictionary()
	if err != nil {
		return fmt.Errorf("failed to load tag dictionary: %w", err)
	}
	res := resolver.New(dict, resolver.WithSanitizer(resolver.Sanitizer{Substitute: cfg.SubstituteRune()}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	loggers := []sorter.Logger{logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)}

	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		loggers = append(loggers, fileLog)
	}

	var recorder *ledger.Recorder
	if cfg.History.Enabled {
		store, err := ledger.NewStore(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer store.Close()
		recorder = ledger.NewRecorder(ctx, store)
		loggers = append(loggers, recorder)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outputFolder, _ := cmd.Flags().GetString("output_folder")
	opts := sorter.Options{
		OutputRoot:    outputFolder,
		Mode:          sorter.Mode(cfg.Sort.Mode),
		OnMissingTag:  sorter.MissingTagPolicy(cfg.Sort.OnMissingTag),
		DryRun:        dryRun,
		MaxPathLength: cfg.Sort.MaxPathLength,
		Extensions:    cfg.Sort.Extensions,
	}

	s := sorter.New(newRecordReader(), res, sorter.WithLogger(logger.NewMultiLogger(loggers...)))
	result, runErr := s.Run(ctx, jobDir, p, opts)

	if recorder != nil {
		if err := recorder.Err(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to record job history: %v\n", err)
		}
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" && result != nil {
		if err := report.WriteFile(reportPath, result); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportPath)
		}
	}

	if runErr != nil {
		if w, ok := display.WarningForError(runErr); ok {
			w.Display(cmd.ErrOrStderr())
		}
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("sort interrupted: %w", runErr)
		}
		return fmt.Errorf("sort failed: %w", runErr)
	}

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "\nDry-run mode: %d file(s) would be placed under %s\n", len(result.Planned), result.Job.OutputRoot)
	}
	return nil
}
