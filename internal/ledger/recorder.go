package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/harrison/dicomsort/internal/sorter"
)

// Recorder writes job events to a Store as they happen. It implements
// sorter.Logger. Write errors do not interrupt the job; the first one is
// kept and returned by Err.
type Recorder struct {
	store *Store
	ctx   context.Context

	mu    sync.Mutex
	jobID string
	errs  []error
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(ctx context.Context, store *Store) *Recorder {
	return &Recorder{store: store, ctx: context.WithoutCancel(ctx)}
}

// LogJobStart inserts the job row.
func (r *Recorder) LogJobStart(job sorter.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobID = job.ID
	r.keep(r.store.RecordJob(r.ctx, job))
}

// LogRecordPlanned is a no-op; only placed files are stored.
func (r *Recorder) LogRecordPlanned(sorter.Placement) {}

// LogRecordPlaced inserts a placement row.
func (r *Recorder) LogRecordPlaced(p sorter.Placement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobID == "" {
		return
	}
	r.keep(r.store.RecordPlacement(r.ctx, r.jobID, p))
}

// LogRecordSkipped inserts a skipped record row.
func (r *Recorder) LogRecordSkipped(sk sorter.Skipped) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobID == "" {
		return
	}
	r.keep(r.store.RecordSkip(r.ctx, r.jobID, sk))
}

// LogSummary stores the job outcome.
func (r *Recorder) LogSummary(result *sorter.Result) {
	if result == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobID == "" {
		return
	}
	r.keep(r.store.FinishJob(r.ctx, result))
}

// Err returns every write error seen so far, joined.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

func (r *Recorder) keep(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}
