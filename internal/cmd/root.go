package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/dicomsort/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for dicomsort
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dicomsort",
		Short: "Sort DICOM files into folders named after their tags",
		Long: `dicomsort copies or moves the DICOM files of a job folder into a new
folder tree whose paths are built from each file's own tags.

Paths are described by patterns such as

  (PatientID)/(StudyDescription)/(count:SOPInstanceUID).dcm

where (Tag) is replaced by the tag value and (count:Tag) by a sequence
number assigned per distinct value. Patterns are stored by name in the
pattern registry (see "dicomsort pattern").

Configuration is read from $DICOMSORT_HOME/config.yaml (default
~/.dicomsort/config.yaml). CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: $DICOMSORT_HOME/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	// Add subcommands
	cmd.AddCommand(NewSortCommand())
	cmd.AddCommand(NewPatternCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// loadConfig loads the configuration named by --config, or config.yaml in
// the dicomsort home, and applies --log-level. Relative paths inside the
// configuration are resolved against the home directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	home, err := config.GetHome()
	if err != nil {
		return nil, err
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.ConfigPath(home)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	cfg.ResolvePaths(home)

	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &logLevel
	}
	cfg.MergeWithFlags(logLevelPtr, nil, nil, nil)

	return cfg, nil
}
