package sorter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollision is matched by every CollisionError.
	ErrCollision = errors.New("destination collision")
	// ErrPathTooLong is matched by every PathTooLongError.
	ErrPathTooLong = errors.New("destination path too long")
	// ErrDestinationExists is returned when a placement would overwrite a file.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrOutputIsSource is returned when the output folder is the job folder itself.
	ErrOutputIsSource = errors.New("output folder must differ from job folder")
	// ErrEmptySegment is returned for a resolved path with an empty folder or file name.
	ErrEmptySegment = errors.New("empty path segment")
)

// JobPhase is the phase of a job in which an error occurred.
type JobPhase int

const (
	// PhasePlan covers reading and resolving records.
	PhasePlan JobPhase = iota
	// PhasePlace covers writing files to the output folder.
	PhasePlace
)

// String returns the string representation of JobPhase.
func (p JobPhase) String() string {
	switch p {
	case PhasePlan:
		return "plan"
	case PhasePlace:
		return "place"
	default:
		return "unknown"
	}
}

// RecordError is a failure tied to one source file.
type RecordError struct {
	Source string
	Err    error
}

// Error implements the error interface for RecordError.
func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// JobError aggregates record failures of one phase.
type JobError struct {
	Phase   JobPhase
	Records []*RecordError
	Total   int
}

// Error implements the error interface for JobError.
func (e *JobError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("sort failed in %s phase: %d/%d records failed",
		e.Phase, len(e.Records), e.Total))

	if len(e.Records) > 0 {
		sb.WriteString(":")
		for _, rec := range e.Records {
			sb.WriteString(fmt.Sprintf("\n  - %s", rec.Error()))
		}
	}
	return sb.String()
}

// Unwrap exposes the record errors to errors.Is and errors.As.
func (e *JobError) Unwrap() []error {
	if len(e.Records) == 0 {
		return nil
	}
	errs := make([]error, len(e.Records))
	for i, rec := range e.Records {
		errs[i] = rec
	}
	return errs
}

// CollisionError lists destinations claimed by more than one source.
type CollisionError struct {
	Collisions []Collision
}

// Error implements the error interface for CollisionError.
func (e *CollisionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d destination(s) would be written by more than one file", len(e.Collisions)))
	for _, c := range e.Collisions {
		sb.WriteString("\n  - " + c.String())
	}
	return sb.String()
}

// Is lets errors.Is(err, ErrCollision) match.
func (e *CollisionError) Is(target error) bool {
	return target == ErrCollision
}

// PathTooLongError reports destinations exceeding the configured limit.
type PathTooLongError struct {
	Limit int
	Paths []string
}

// Error implements the error interface for PathTooLongError.
func (e *PathTooLongError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d destination path(s) longer than %d characters", len(e.Paths), e.Limit))
	for _, p := range e.Paths {
		sb.WriteString(fmt.Sprintf("\n  - %s (%d)", p, len(p)))
	}
	return sb.String()
}

// Is lets errors.Is(err, ErrPathTooLong) match.
func (e *PathTooLongError) Is(target error) bool {
	return target == ErrPathTooLong
}

// IsCollision checks if the error is or wraps a CollisionError.
func IsCollision(err error) bool {
	var ce *CollisionError
	return errors.As(err, &ce)
}
