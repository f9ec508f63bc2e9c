package display

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/harrison/dicomsort/internal/sorter"
	"github.com/stretchr/testify/assert"
)

func TestWarningDisplay(t *testing.T) {
	tests := []struct {
		name     string
		warning  Warning
		contains []string
		excludes []string
	}{
		{
			name:     "title only",
			warning:  Warning{Title: "Something happened"},
			contains: []string{"Warning: Something happened\n"},
			excludes: []string{"Affected", "Suggestion"},
		},
		{
			name:     "single file",
			warning:  Warning{Title: "T", Files: []string{"a.dcm"}},
			contains: []string{"    Affected file:\n", "      1. a.dcm\n"},
		},
		{
			name: "all fields",
			warning: Warning{
				Title:      "T",
				Message:    "details",
				Files:      []string{"a.dcm", "b.dcm"},
				Suggestion: "do this",
			},
			contains: []string{"    details\n", "Affected files:", "      2. b.dcm\n", "    Suggestion:\n    do this\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.warning.Display(&buf)
			out := buf.String()
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestWarningDisplayTruncatesLongLists(t *testing.T) {
	var files []string
	for i := 0; i < maxListedFiles+5; i++ {
		files = append(files, fmt.Sprintf("f%d.dcm", i))
	}

	var buf bytes.Buffer
	Warning{Title: "T", Files: files}.Display(&buf)

	out := buf.String()
	assert.Contains(t, out, fmt.Sprintf("%d. f%d.dcm", maxListedFiles, maxListedFiles-1))
	assert.NotContains(t, out, fmt.Sprintf("f%d.dcm", maxListedFiles))
	assert.Contains(t, out, "... and 5 more")
}

func TestWarningForError(t *testing.T) {
	collisions := []sorter.Collision{{Destination: "/out/P1/CT.dcm", Sources: []string{"/in/a", "/in/b"}}}

	tests := []struct {
		name     string
		err      error
		ok       bool
		contains string
	}{
		{
			name:     "collision",
			err:      fmt.Errorf("sort: %w", &sorter.CollisionError{Collisions: collisions}),
			ok:       true,
			contains: "/out/P1/CT.dcm <- /in/a, /in/b",
		},
		{
			name: "file and folder",
			err: &sorter.CollisionError{Collisions: []sorter.Collision{
				{Destination: "/out/1234", Sources: []string{"/in/a", "/in/b"}, Folder: true},
			}},
			ok:       true,
			contains: "/out/1234 <- /in/a, /in/b (file and folder)",
		},
		{
			name:     "path too long",
			err:      &sorter.PathTooLongError{Limit: 10, Paths: []string{"/very/long/path"}},
			ok:       true,
			contains: "longer than 10 characters",
		},
		{
			name: "missing tags",
			err: &sorter.JobError{Phase: sorter.PhasePlan, Total: 3, Records: []*sorter.RecordError{
				{Source: "/in/b", Err: errors.New("tag (PatientID) not present in record")},
			}},
			ok:       true,
			contains: "1 of 3 record(s) could not be resolved",
		},
		{
			name: "placement failure",
			err:  &sorter.JobError{Phase: sorter.PhasePlace, Total: 3, Records: []*sorter.RecordError{{Source: "/in/b", Err: sorter.ErrDestinationExists}}},
			ok:   false,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := WarningForError(tt.err)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			var buf bytes.Buffer
			w.Display(&buf)
			assert.Contains(t, buf.String(), tt.contains)
		})
	}
}

func TestTableRender(t *testing.T) {
	table := NewTable("NAME", "PATTERN")
	table.AddRow("idis", "(0010,0020)/(count:SOPInstanceUID)")
	table.AddRow("a-much-longer-name", "(PatientID)")
	table.AddRow("short")

	var buf bytes.Buffer
	assert.NoError(t, table.Render(&buf))
	assert.Equal(t, 3, table.Len())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	// Second column starts at the same offset on every row
	col := strings.Index(lines[0], "PATTERN")
	assert.Equal(t, col, strings.Index(lines[1], "(0010"))
	assert.Equal(t, col, strings.Index(lines[2], "(PatientID)"))
	assert.Equal(t, "short", strings.TrimSpace(lines[3]))
}
