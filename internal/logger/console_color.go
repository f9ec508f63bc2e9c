package logger

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/harrison/dicomsort/internal/sorter"
)

// colorScheme defines consistent colors for summary counts.
// Green: placed files
// Red: failures and collisions
// Yellow: skipped files
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	header  *color.Color
}

// newColorScheme creates the standard color scheme for summaries.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		header:  color.New(color.Bold),
	}
}

// metric formats "label: value". A nil scheme produces plain text; c picks
// the value color when non-zero counts deserve attention.
func (s *colorScheme) metric(label string, value interface{}, c *color.Color) string {
	if s == nil {
		return fmt.Sprintf("%s: %v", label, value)
	}
	valueText := fmt.Sprintf("%v", value)
	if c != nil {
		valueText = c.Sprint(valueText)
	}
	return fmt.Sprintf("%s: %s", s.label.Sprint(label), valueText)
}

func (s *colorScheme) pick(n int, c func(*colorScheme) *color.Color) *color.Color {
	if s == nil || n == 0 {
		return nil
	}
	return c(s)
}

// summaryLines renders the job summary, colorized when scheme is non-nil.
func summaryLines(r *sorter.Result, scheme *colorScheme) []string {
	header := "=== Sort Summary ==="
	if scheme != nil {
		header = scheme.header.Sprint(header)
	}

	status := "completed"
	switch {
	case r.Err != nil:
		status = "failed"
	case r.Job.DryRun:
		status = "dry run"
	}
	var statusColor *color.Color
	if scheme != nil {
		statusColor = scheme.success
		if r.Err != nil {
			statusColor = scheme.fail
		} else if r.Job.DryRun {
			statusColor = scheme.warn
		}
	}

	lines := []string{
		header,
		scheme.metric("Job", r.Job.ID, nil),
		scheme.metric("Status", status, statusColor),
		scheme.metric("Files scanned", r.Scanned, nil),
		scheme.metric("Planned", len(r.Planned), nil),
		scheme.metric("Placed", len(r.Placed), scheme.pick(len(r.Placed), func(s *colorScheme) *color.Color { return s.success })),
		scheme.metric("Skipped", len(r.Skipped), scheme.pick(len(r.Skipped), func(s *colorScheme) *color.Color { return s.warn })),
		scheme.metric("Failed", len(r.Failures), scheme.pick(len(r.Failures), func(s *colorScheme) *color.Color { return s.fail })),
	}
	if len(r.Collisions) > 0 {
		lines = append(lines, scheme.metric("Collisions", len(r.Collisions),
			scheme.pick(len(r.Collisions), func(s *colorScheme) *color.Color { return s.fail })))
	}
	lines = append(lines, scheme.metric("Duration", formatDuration(r.Duration), nil))

	if len(r.Failures) > 0 {
		lines = append(lines, "Failed records:")
		for _, f := range r.Failures {
			lines = append(lines, fmt.Sprintf("  - %s", f.Error()))
		}
	}
	if r.Err != nil {
		lines = append(lines, scheme.metric("Error", r.Err, statusColor))
	}
	return lines
}
