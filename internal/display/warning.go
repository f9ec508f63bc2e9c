package display

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/dicomsort/internal/sorter"
)

// maxListedFiles caps the number of files printed under one warning.
const maxListedFiles = 20

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}

		shown := w.Files
		if len(shown) > maxListedFiles {
			shown = shown[:maxListedFiles]
		}
		for i, file := range shown {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
		if rest := len(w.Files) - len(shown); rest > 0 {
			b.WriteString(fmt.Sprintf("      ... and %d more\n", rest))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// CollisionWarning describes destinations claimed by more than one file.
func CollisionWarning(collisions []sorter.Collision) Warning {
	var files []string
	message := "The pattern does not tell these files apart."
	for _, c := range collisions {
		files = append(files, c.String())
		if c.Folder {
			message = "The pattern does not tell these files apart, or places a file where another file needs a folder."
		}
	}
	return Warning{
		Title:      fmt.Sprintf("%d destination(s) claimed by more than one file, nothing was placed", len(collisions)),
		Message:    message,
		Files:      files,
		Suggestion: "Add a distinguishing element such as (count:SOPInstanceUID) to the pattern.",
	}
}

// PathTooLongWarning describes destinations over the path length limit.
func PathTooLongWarning(err *sorter.PathTooLongError) Warning {
	return Warning{
		Title:      fmt.Sprintf("%d destination path(s) longer than %d characters, nothing was placed", len(err.Paths), err.Limit),
		Files:      err.Paths,
		Suggestion: "Use a shorter output folder, shorten the pattern, or raise sort.max_path_length.",
	}
}

// MissingTagWarning describes records that failed on a missing tag.
func MissingTagWarning(err *sorter.JobError) Warning {
	files := make([]string, 0, len(err.Records))
	for _, rec := range err.Records {
		files = append(files, rec.Error())
	}
	return Warning{
		Title:      fmt.Sprintf("%d of %d record(s) could not be resolved, nothing was placed", len(err.Records), err.Total),
		Files:      files,
		Suggestion: "Run with --on-missing-tag skip to sort the remaining records.",
	}
}

// WarningForError returns a warning explaining a rejected sort plan, or
// false when err needs no extra explanation.
func WarningForError(err error) (Warning, bool) {
	var collision *sorter.CollisionError
	if errors.As(err, &collision) {
		return CollisionWarning(collision.Collisions), true
	}

	var tooLong *sorter.PathTooLongError
	if errors.As(err, &tooLong) {
		return PathTooLongWarning(tooLong), true
	}

	var jobErr *sorter.JobError
	if errors.As(err, &jobErr) && jobErr.Phase == sorter.PhasePlan && len(jobErr.Records) > 0 {
		return MissingTagWarning(jobErr), true
	}

	return Warning{}, false
}
