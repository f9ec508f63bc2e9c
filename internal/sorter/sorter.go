package sorter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/dicomsort/internal/counter"
	"github.com/harrison/dicomsort/internal/filelock"
	"github.com/harrison/dicomsort/internal/fileutil"
	"github.com/harrison/dicomsort/internal/metadata"
	"github.com/harrison/dicomsort/internal/pattern"
	"github.com/harrison/dicomsort/internal/resolver"
)

// Sorter runs sort jobs. Records are processed one at a time in the
// lexicographic order of their source paths, which fixes counter numbering
// for an unchanged job folder.
type Sorter struct {
	reader   metadata.Reader
	resolver *resolver.Resolver
	logger   Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Sorter.
type Option func(*Sorter)

// WithLogger sets the job event logger.
func WithLogger(l Logger) Option {
	return func(s *Sorter) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sorter) {
		s.now = now
	}
}

// WithIDGenerator overrides job ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Sorter) {
		s.newID = fn
	}
}

// New creates a Sorter reading records with reader and resolving paths with res.
func New(reader metadata.Reader, res *resolver.Resolver, opts ...Option) *Sorter {
	s := &Sorter{
		reader:   reader,
		resolver: res,
		logger:   noopLogger{},
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultOutputRoot returns "<job_dir>_sorted".
func DefaultOutputRoot(sourceDir string) string {
	return filepath.Clean(sourceDir) + "_sorted"
}

func (o Options) withDefaults(sourceDir string) Options {
	if o.OutputRoot == "" {
		o.OutputRoot = DefaultOutputRoot(sourceDir)
	}
	if o.Mode == "" {
		o.Mode = ModeCopy
	}
	if o.OnMissingTag == "" {
		o.OnMissingTag = PolicyAbort
	}
	return o
}

func (o Options) validate() error {
	switch o.Mode {
	case ModeCopy, ModeMove:
	default:
		return fmt.Errorf("invalid mode %q", o.Mode)
	}
	switch o.OnMissingTag {
	case PolicyAbort, PolicySkip, PolicyCollect:
	default:
		return fmt.Errorf("invalid missing-tag policy %q", o.OnMissingTag)
	}
	if o.MaxPathLength < 0 {
		return fmt.Errorf("max path length must be >= 0, got %d", o.MaxPathLength)
	}
	return nil
}

// Plan reads and resolves every record in sourceDir without touching the
// output folder. A fresh counter tracker is used for each call.
//
// The returned Plan is non-nil whenever the job got as far as scanning, even
// when an error is returned, so callers can report what was found.
func (s *Sorter) Plan(ctx context.Context, sourceDir string, p *pattern.Pattern, opts Options) (*Plan, error) {
	if p == nil {
		return nil, errors.New("pattern is required")
	}
	opts = opts.withDefaults(sourceDir)
	if err := opts.validate(); err != nil {
		return nil, err
	}

	sourceAbs, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve job folder %s: %w", sourceDir, err)
	}
	outputAbs, err := filepath.Abs(opts.OutputRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve output folder %s: %w", opts.OutputRoot, err)
	}
	if sourceAbs == outputAbs {
		return nil, ErrOutputIsSource
	}

	plan := &Plan{
		Job: Job{
			ID:          s.newID(),
			SourceDir:   sourceAbs,
			OutputRoot:  outputAbs,
			PatternName: p.Name,
			Pattern:     p.Source,
			Mode:        opts.Mode,
			Policy:      opts.OnMissingTag,
			DryRun:      opts.DryRun,
			StartedAt:   s.now(),
		},
		Pattern: p,
	}

	scan, err := fileutil.ScanDirectory(sourceAbs, fileutil.ScanOptions{
		Extensions:   opts.Extensions,
		Recursive:    true,
		ExcludePaths: []string{outputAbs},
	})
	if err != nil {
		return plan, fmt.Errorf("scan job folder: %w", err)
	}
	if len(scan.Errors) > 0 {
		return plan, fmt.Errorf("scan job folder: %w", errors.Join(scan.Errors...))
	}
	plan.Scanned = len(scan.Files)

	s.logger.LogJobStart(plan.Job)

	tracker := counter.NewTracker()
	for _, source := range scan.Files {
		if err := ctx.Err(); err != nil {
			return plan, err
		}

		rec, err := s.reader.Read(source)
		if err != nil {
			if errors.Is(err, metadata.ErrNotDICOM) {
				s.skip(plan, Skipped{Source: source, Reason: SkipNotDICOM, Err: err})
				continue
			}
			return plan, &RecordError{Source: source, Err: err}
		}

		rel, err := s.resolve(p.Elements, rec, tracker)
		if err != nil {
			reason := SkipMissingTag
			switch {
			case errors.Is(err, resolver.ErrTagNotFound):
			case errors.Is(err, ErrEmptySegment):
				reason = SkipEmptySegment
			default:
				return plan, &RecordError{Source: source, Err: err}
			}
			switch opts.OnMissingTag {
			case PolicySkip:
				s.skip(plan, Skipped{Source: source, Reason: reason, Err: err})
				continue
			case PolicyCollect:
				plan.Failures = append(plan.Failures, &RecordError{Source: source, Err: err})
				continue
			default:
				plan.Failures = append(plan.Failures, &RecordError{Source: source, Err: err})
				return plan, &JobError{Phase: PhasePlan, Records: plan.Failures, Total: plan.Scanned}
			}
		}

		dest, err := destination(outputAbs, rel)
		if err != nil {
			return plan, &RecordError{Source: source, Err: err}
		}

		placement := Placement{Source: source, RelativePath: rel, Destination: dest}
		plan.Placements = append(plan.Placements, placement)
		s.logger.LogRecordPlanned(placement)
	}

	plan.Counters = tracker.Snapshot()

	if len(plan.Failures) > 0 {
		return plan, &JobError{Phase: PhasePlan, Records: plan.Failures, Total: plan.Scanned}
	}

	plan.Collisions = findCollisions(outputAbs, plan.Placements)
	if len(plan.Collisions) > 0 {
		return plan, &CollisionError{Collisions: plan.Collisions}
	}

	if opts.MaxPathLength > 0 {
		var long []string
		for _, pl := range plan.Placements {
			if len(pl.Destination) > opts.MaxPathLength {
				long = append(long, pl.Destination)
			}
		}
		if len(long) > 0 {
			return plan, &PathTooLongError{Limit: opts.MaxPathLength, Paths: long}
		}
	}

	return plan, nil
}

// Execute places every file of plan. Placement stops at the first error or
// when ctx is cancelled; files already placed stay where they are.
func (s *Sorter) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	start := s.now()
	result := newResult(plan)

	if plan.Job.DryRun {
		result.Duration = s.now().Sub(start)
		return result, nil
	}

	lock, err := filelock.Acquire(plan.Job.OutputRoot, LockFileName)
	if err != nil {
		result.Err = fmt.Errorf("lock output folder: %w", err)
		return result, result.Err
	}
	defer lock.Release()

	for _, pl := range plan.Placements {
		if err := ctx.Err(); err != nil {
			result.Err = err
			break
		}
		if err := place(pl.Source, pl.Destination, plan.Job.Mode); err != nil {
			recErr := &RecordError{Source: pl.Source, Err: err}
			result.Failures = append(result.Failures, recErr)
			result.Err = &JobError{Phase: PhasePlace, Records: []*RecordError{recErr}, Total: len(plan.Placements)}
			break
		}
		result.Placed = append(result.Placed, pl)
		s.logger.LogRecordPlaced(pl)
	}

	result.Duration = s.now().Sub(start)
	return result, result.Err
}

// Run plans and then executes a job. The Result is always non-nil once
// planning has started, and its Err mirrors the returned error.
func (s *Sorter) Run(ctx context.Context, sourceDir string, p *pattern.Pattern, opts Options) (*Result, error) {
	start := s.now()

	plan, err := s.Plan(ctx, sourceDir, p, opts)
	if plan == nil {
		return nil, err
	}

	var result *Result
	if err != nil {
		result = newResult(plan)
		result.Err = err
	} else {
		result, err = s.Execute(ctx, plan)
	}

	result.Duration = s.now().Sub(start)
	s.logger.LogSummary(result)
	return result, err
}

// resolve resolves rec against elements. A path with an empty folder or
// file name is rejected before tracker is touched, so the record does not
// take a sequence number.
func (s *Sorter) resolve(elements []pattern.Element, rec metadata.Record, tracker *counter.Tracker) (string, error) {
	preview, err := s.resolver.Resolve(elements, rec, counter.NewTracker())
	if err != nil {
		return "", err
	}
	for _, seg := range strings.Split(strings.ReplaceAll(preview, `\`, "/"), "/") {
		if seg == "" {
			return "", fmt.Errorf("resolved path %q: %w", preview, ErrEmptySegment)
		}
	}
	return s.resolver.Resolve(elements, rec, tracker)
}

func (s *Sorter) skip(plan *Plan, sk Skipped) {
	plan.Skipped = append(plan.Skipped, sk)
	s.logger.LogRecordSkipped(sk)
}

func newResult(plan *Plan) *Result {
	return &Result{
		Job:        plan.Job,
		Planned:    plan.Placements,
		Skipped:    plan.Skipped,
		Failures:   plan.Failures,
		Collisions: plan.Collisions,
		Scanned:    plan.Scanned,
	}
}

// destination joins a resolved relative path onto root. Both '/' and '\'
// act as separators in rel. The result must stay inside root.
func destination(root, rel string) (string, error) {
	rel = strings.ReplaceAll(rel, `\`, "/")
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return "", errors.New("pattern resolved to an empty path")
	}

	dest := filepath.Join(root, filepath.FromSlash(rel))
	if dest == root || !fileutil.IsWithin(dest, root) {
		return "", fmt.Errorf("resolved path %q escapes the output folder", rel)
	}
	return dest, nil
}

// caseInsensitive folds destinations before comparing them, matching the
// default file systems of these platforms.
var caseInsensitive = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

func pathKey(p string) string {
	if caseInsensitive {
		return strings.ToLower(p)
	}
	return p
}

// findCollisions returns every destination claimed by more than one
// placement, and every destination that another placement needs as a
// folder under root. The result is sorted by destination.
func findCollisions(root string, placements []Placement) []Collision {
	type claim struct {
		dest    string
		sources []string
	}
	files := make(map[string]*claim)
	for _, pl := range placements {
		k := pathKey(pl.Destination)
		c, ok := files[k]
		if !ok {
			c = &claim{dest: pl.Destination}
			files[k] = c
		}
		c.sources = append(c.sources, pl.Source)
	}

	var collisions []Collision
	for _, c := range files {
		if len(c.sources) > 1 {
			collisions = append(collisions, Collision{Destination: c.dest, Sources: c.sources})
		}
	}

	// First source needing each folder below root
	folders := make(map[string]string)
	for _, pl := range placements {
		for dir := filepath.Dir(pl.Destination); dir != root && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			k := pathKey(dir)
			if _, seen := folders[k]; seen {
				break
			}
			folders[k] = pl.Source
		}
	}
	for k, c := range files {
		if src, ok := folders[k]; ok {
			collisions = append(collisions, Collision{Destination: c.dest, Sources: []string{c.sources[0], src}, Folder: true})
		}
	}

	sort.Slice(collisions, func(i, j int) bool {
		if collisions[i].Destination != collisions[j].Destination {
			return collisions[i].Destination < collisions[j].Destination
		}
		return !collisions[i].Folder && collisions[j].Folder
	})
	return collisions
}
