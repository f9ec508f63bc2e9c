// Package report writes a human-readable summary of a sort job as Markdown,
// or as HTML rendered from that Markdown.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/harrison/dicomsort/internal/filelock"
	"github.com/harrison/dicomsort/internal/sorter"
)

// Format is the output format of a report.
type Format int

const (
	// FormatMarkdown writes the Markdown source.
	FormatMarkdown Format = iota
	// FormatHTML renders the Markdown to an HTML document.
	FormatHTML
)

// maxListed bounds each per-file section of the report.
const maxListed = 1000

// FormatFor picks the format from a file extension: .html and .htm render
// HTML, everything else is Markdown.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

// Markdown builds the report for result.
func Markdown(result *sorter.Result) []byte {
	var b bytes.Buffer
	job := result.Job

	fmt.Fprintf(&b, "# Sort report %s\n\n", job.ID)

	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) { fmt.Fprintf(&b, "| %s | %s |\n", k, cell(v)) }
	row("Status", status(result))
	row("Source", job.SourceDir)
	row("Output", job.OutputRoot)
	if job.PatternName != "" {
		row("Pattern name", job.PatternName)
	}
	row("Pattern", "`"+job.Pattern+"`")
	row("Mode", string(job.Mode))
	row("On missing tag", string(job.Policy))
	row("Started", job.StartedAt.Format("2006-01-02 15:04:05 MST"))
	row("Duration", result.Duration.Round(time.Millisecond).String())
	b.WriteString("\n")

	b.WriteString("## Counts\n\n")
	fmt.Fprintf(&b, "- Files scanned: %d\n", result.Scanned)
	fmt.Fprintf(&b, "- Planned: %d\n", len(result.Planned))
	fmt.Fprintf(&b, "- Placed: %d\n", len(result.Placed))
	fmt.Fprintf(&b, "- Skipped: %d\n", len(result.Skipped))
	fmt.Fprintf(&b, "- Failed: %d\n", len(result.Failures))
	fmt.Fprintf(&b, "- Collisions: %d\n\n", len(result.Collisions))

	if result.Err != nil {
		fmt.Fprintf(&b, "## Error\n\n```\n%s\n```\n\n", result.Err)
	}

	if len(result.Collisions) > 0 {
		b.WriteString("## Collisions\n\n")
		collisions := append([]sorter.Collision(nil), result.Collisions...)
		sort.Slice(collisions, func(i, j int) bool { return collisions[i].Destination < collisions[j].Destination })
		for _, c := range collisions {
			if c.Folder {
				fmt.Fprintf(&b, "- `%s` (file and folder)\n", c.Destination)
			} else {
				fmt.Fprintf(&b, "- `%s`\n", c.Destination)
			}
			for _, src := range c.Sources {
				fmt.Fprintf(&b, "  - `%s`\n", src)
			}
		}
		b.WriteString("\n")
	}

	if len(result.Failures) > 0 {
		b.WriteString("## Failures\n\n| Source | Error |\n|---|---|\n")
		for i, f := range result.Failures {
			if i == maxListed {
				fmt.Fprintf(&b, "\n_... and %d more_\n", len(result.Failures)-maxListed)
				break
			}
			fmt.Fprintf(&b, "| %s | %s |\n", cell(f.Source), cell(f.Err.Error()))
		}
		b.WriteString("\n")
	}

	if len(result.Skipped) > 0 {
		b.WriteString("## Skipped\n\n| Source | Reason |\n|---|---|\n")
		for i, sk := range result.Skipped {
			if i == maxListed {
				fmt.Fprintf(&b, "\n_... and %d more_\n", len(result.Skipped)-maxListed)
				break
			}
			reason := string(sk.Reason)
			if sk.Err != nil {
				reason += ": " + sk.Err.Error()
			}
			fmt.Fprintf(&b, "| %s | %s |\n", cell(sk.Source), cell(reason))
		}
		b.WriteString("\n")
	}

	placements, heading := result.Placed, "Placed files"
	if job.DryRun || len(result.Placed) == 0 {
		placements, heading = result.Planned, "Planned files"
	}
	if len(placements) > 0 {
		fmt.Fprintf(&b, "## %s\n\n| Source | Destination |\n|---|---|\n", heading)
		for i, p := range placements {
			if i == maxListed {
				fmt.Fprintf(&b, "\n_... and %d more_\n", len(placements)-maxListed)
				break
			}
			fmt.Fprintf(&b, "| %s | %s |\n", cell(p.Source), cell(p.RelativePath))
		}
		b.WriteString("\n")
	}

	return b.Bytes()
}

// HTML renders the report for result as a standalone HTML document.
func HTML(result *sorter.Result) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)

	var body bytes.Buffer
	if err := md.Convert(Markdown(result), &body); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>Sort report %s</title>\n", result.Job.ID)
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

// Write renders result in the given format to w.
func Write(w io.Writer, result *sorter.Result, format Format) error {
	data := Markdown(result)
	if format == FormatHTML {
		var err error
		if data, err = HTML(result); err != nil {
			return err
		}
	}
	_, err := w.Write(data)
	return err
}

// WriteFile writes the report to path, choosing the format from its
// extension. The file is replaced atomically.
func WriteFile(path string, result *sorter.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, result, FormatFor(path)); err != nil {
		return err
	}
	if err := filelock.AtomicWrite(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func status(result *sorter.Result) string {
	switch {
	case result.Err != nil:
		return "failed"
	case result.Job.DryRun:
		return "dry run"
	default:
		return "completed"
	}
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.NewReplacer("\r\n", " ", "\n", " ").Replace(s)
}
