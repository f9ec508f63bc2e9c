package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/dicomsort/internal/dicomtag"
	"github.com/harrison/dicomsort/internal/display"
	"github.com/harrison/dicomsort/internal/pattern"
	"github.com/harrison/dicomsort/internal/registry"
)

// NewPatternCommand creates the 'dicomsort pattern' parent command
func NewPatternCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Manage stored path patterns",
		Long: `Commands for listing, adding and removing named path patterns.

Patterns are kept in the pattern registry file (patterns_file in the
configuration). A new registry starts with the built-in patterns
"idis" and "nucmed".`,
	}

	cmd.AddCommand(newPatternListCommand())
	cmd.AddCommand(newPatternListTagsCommand())
	cmd.AddCommand(newPatternAddCommand())
	cmd.AddCommand(newPatternRemoveCommand())
	cmd.AddCommand(newPatternShowCommand())

	return cmd
}

// openRegistry opens the pattern registry named by the configuration.
func openRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	reg, err := registry.Open(cfg.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern registry: %w", err)
	}
	return reg, nil
}

func newPatternListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			entries, err := reg.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No patterns stored.")
				return nil
			}

			table := display.NewTable("NAME", "PATTERN")
			for _, e := range entries {
				table.AddRow(e.Name, e.Source)
			}
			return table.Render(cmd.OutOrStdout())
		},
	}
}

func newPatternListTagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list_dicomtags [filter]",
		Short: "List the tag names that can be used in patterns",
		Long: `List the common tag keywords with their (group,element) codes.

An optional filter keeps only keywords containing it (case-insensitive).
Listed keywords match regardless of case. Any other keyword of the DICOM
standard dictionary also works in patterns, spelled exactly as in the
standard (e.g. AcquisitionDeviceProcessingDescription); pass it as the
filter to check it. Any tag may also be referenced by code, e.g. (0010,0020).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dict, err := dicomtag.NewStandardDictionary()
			if err != nil {
				return fmt.Errorf("failed to load tag dictionary: %w", err)
			}

			filter := ""
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}

			table := display.NewTable("KEYWORD", "TAG")
			listed := false
			for _, e := range dict.Entries() {
				if filter != "" && !strings.Contains(strings.ToLower(e.Keyword), filter) {
					continue
				}
				table.AddRow(e.Keyword, "("+e.Key.String()+")")
				listed = listed || strings.ToLower(e.Keyword) == filter
			}
			// An exact keyword known only to the library
			if filter != "" && !listed {
				if e, ok := dict.Lookup(args[0]); ok {
					table.AddRow(e.Keyword, "("+e.Key.String()+")")
				}
			}
			if table.Len() == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No tag keywords match %q.\n", filter)
				return nil
			}
			return table.Render(cmd.OutOrStdout())
		},
	}
}

func newPatternAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <pattern>",
		Short: "Parse a pattern and store it under a name",
		Long: `Parse a pattern and store it in the registry. A pattern with a syntax
error is rejected and nothing is stored.

Examples:
  dicomsort pattern add simple "(PatientID)/(Modality)/(count:SOPInstanceUID).dcm"
  dicomsort pattern add idis "(0010,0020)/(count:SOPInstanceUID)" --force`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")

			p, err := reg.Save(args[0], args[1], force)
			if err != nil {
				if errors.Is(err, registry.ErrPatternExists) {
					return fmt.Errorf("%w (use --force to replace it)", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved pattern %s (%d element(s), %d counter(s))\n", p.Name, len(p.Elements), p.Counters())
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Replace an existing pattern with the same name")
	return cmd
}

func newPatternRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a stored pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			if err := reg.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed pattern %s\n", args[0])
			return nil
		},
	}
}

func newPatternShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a stored pattern and its parsed elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			p, err := reg.Load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:    %s\n", p.Name)
			fmt.Fprintf(out, "Pattern: %s\n\n", p.Source)

			table := display.NewTable("#", "ELEMENT")
			for i, e := range p.Elements {
				table.AddRow(fmt.Sprintf("%d", i+1), pattern.Describe(e))
			}
			return table.Render(out)
		},
	}
}
