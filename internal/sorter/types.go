// Package sorter drives a sort job: it enumerates the records in a job
// folder, resolves each one against a pattern, checks the resulting plan and
// places the files under the output folder.
package sorter

import (
	"strings"
	"time"

	"github.com/harrison/dicomsort/internal/counter"
	"github.com/harrison/dicomsort/internal/pattern"
)

// Mode is how files are placed in the output folder.
type Mode string

const (
	// ModeCopy copies files, leaving the job folder untouched.
	ModeCopy Mode = "copy"
	// ModeMove moves files out of the job folder.
	ModeMove Mode = "move"
)

// MissingTagPolicy decides what a job does with records lacking a tag.
type MissingTagPolicy string

const (
	// PolicyAbort ends the job at the first record with a missing tag.
	PolicyAbort MissingTagPolicy = "abort"
	// PolicySkip skips the record and continues.
	PolicySkip MissingTagPolicy = "skip"
	// PolicyCollect gathers every failing record and fails the job after planning.
	PolicyCollect MissingTagPolicy = "collect"
)

// LockFileName is the lock held inside the output folder while a job places files.
const LockFileName = ".dicomsort.lock"

// Options configures one sort job.
type Options struct {
	// OutputRoot is the destination folder. Empty means "<job_dir>_sorted".
	OutputRoot string
	// Mode is copy (default) or move.
	Mode Mode
	// OnMissingTag is abort (default), skip or collect.
	OnMissingTag MissingTagPolicy
	// DryRun plans the job without touching the file system.
	DryRun bool
	// MaxPathLength rejects destinations longer than this (0 = no limit).
	MaxPathLength int
	// Extensions limits the files considered (empty = all files).
	Extensions []string
}

// Job identifies one sort invocation.
type Job struct {
	ID          string
	SourceDir   string
	OutputRoot  string
	PatternName string
	Pattern     string
	Mode        Mode
	Policy      MissingTagPolicy
	DryRun      bool
	StartedAt   time.Time
}

// Placement maps one source file to its destination.
type Placement struct {
	Source       string
	RelativePath string
	Destination  string
}

// SkipReason explains why a record was left out of a job.
type SkipReason string

const (
	SkipNotDICOM     SkipReason = "not a DICOM file"
	SkipMissingTag   SkipReason = "missing tag"
	SkipEmptySegment SkipReason = "empty path segment"
)

// Skipped is a record that was not placed.
type Skipped struct {
	Source string
	Reason SkipReason
	Err    error
}

// Collision is a destination claimed by more than one source. When Folder
// is set, the first source would be written at Destination while the second
// needs Destination as a folder.
type Collision struct {
	Destination string
	Sources     []string
	Folder      bool
}

// String renders the collision as "destination <- sources".
func (c Collision) String() string {
	s := c.Destination + " <- " + strings.Join(c.Sources, ", ")
	if c.Folder {
		s += " (file and folder)"
	}
	return s
}

// Plan is the outcome of resolving every record of a job.
type Plan struct {
	Job        Job
	Pattern    *pattern.Pattern
	Placements []Placement
	Skipped    []Skipped
	Failures   []*RecordError
	Collisions []Collision
	Counters   []counter.Assignment
	Scanned    int
}

// Result summarises a finished (or failed) job.
type Result struct {
	Job        Job
	Planned    []Placement
	Placed     []Placement
	Skipped    []Skipped
	Failures   []*RecordError
	Collisions []Collision
	Scanned    int
	Duration   time.Duration
	Err        error
}

// Succeeded reports whether the job completed without error.
func (r *Result) Succeeded() bool {
	return r.Err == nil
}

// Logger receives job progress events.
type Logger interface {
	LogJobStart(job Job)
	LogRecordPlanned(p Placement)
	LogRecordPlaced(p Placement)
	LogRecordSkipped(s Skipped)
	LogSummary(result *Result)
}

type noopLogger struct{}

func (noopLogger) LogJobStart(Job)            {}
func (noopLogger) LogRecordPlanned(Placement) {}
func (noopLogger) LogRecordPlaced(Placement)  {}
func (noopLogger) LogRecordSkipped(Skipped)   {}
func (noopLogger) LogSummary(*Result)         {}
