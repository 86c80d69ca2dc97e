package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/snapdish/recipegen-be/internal/blobstore"
	"github.com/snapdish/recipegen-be/internal/events"
)

// Default tuning. All of these are configuration knobs, not load-bearing
// magic numbers; the values match the order of magnitude the product shipped
// with.
const (
	DefaultStaleAfter    = 10 * time.Minute
	DefaultCompletedCap  = 20
	DefaultMigrationKeep = 10
	DefaultBlobSizeCap   = 4 << 20
	DefaultRecipeCount   = 3
	DefaultSaveTimeout   = 10 * time.Second
)

// Config holds the orchestrator's tuning knobs.
type Config struct {
	// StaleAfter is how old an active job may be before startup fails it
	// out as a crash artifact.
	StaleAfter time.Duration
	// CompletedCap bounds how many completed jobs are persisted. The
	// in-memory completed list is not truncated; only the blob is.
	CompletedCap int
	// MigrationKeep is how many jobs survive an oversized-blob migration.
	MigrationKeep int
	// BlobSizeCap is the hard cap on the persisted blob's size.
	BlobSizeCap int
	// Pacing are the cosmetic stage delays.
	Pacing PacingDelays
	// RecipeCount is how many recipes each request asks for.
	RecipeCount int
	// SaveTimeout bounds each persistence write.
	SaveTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.CompletedCap <= 0 {
		c.CompletedCap = DefaultCompletedCap
	}
	if c.MigrationKeep <= 0 {
		c.MigrationKeep = DefaultMigrationKeep
	}
	if c.BlobSizeCap <= 0 {
		c.BlobSizeCap = DefaultBlobSizeCap
	}
	if c.RecipeCount <= 0 {
		c.RecipeCount = DefaultRecipeCount
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = DefaultSaveTimeout
	}
}

// Options holds the orchestrator's dependencies.
type Options struct {
	Store     blobstore.Store
	Generator Generator
	Events    events.Publisher
	Logger    *slog.Logger
	Config    Config
	// Now is the wall clock; overridable in tests.
	Now func() time.Time
}

// StartParams are the inputs of one generation request.
type StartParams struct {
	AnalysisID   string
	Ingredients  []string
	Thumbnail    []byte
	RecipeType   string
	CustomPrompt string
}

// Orchestrator owns the active and completed job collections and the
// cancellable execution handle for every running pipeline. All collection
// state is guarded by one mutex: the collections themselves are the shared
// resource, so jobs do not get individual locks. The only real concurrency
// is between pipeline runs, which touch disjoint jobs and re-enter the
// orchestrator through the same mutex.
type Orchestrator struct {
	mu        sync.Mutex
	active    []*Job
	completed []*Job
	handles   map[string]context.CancelFunc

	pipeline *Pipeline
	store    blobstore.Store
	events   events.Publisher
	logger   *slog.Logger
	config   Config
	now      func() time.Time

	wg         sync.WaitGroup
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// NewOrchestrator wires an orchestrator. Call Restore before accepting
// requests to run the startup sequence.
func NewOrchestrator(opts Options) *Orchestrator {
	cfg := opts.Config
	cfg.applyDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	eventsPub := opts.Events
	if eventsPub == nil {
		eventsPub = events.Nop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Orchestrator{
		handles:    map[string]context.CancelFunc{},
		pipeline:   NewPipeline(opts.Generator, cfg.Pacing, cfg.RecipeCount, logger),
		store:      opts.Store,
		events:     eventsPub,
		logger:     logger,
		config:     cfg,
		now:        now,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Restore runs the startup sequence, strictly ordered: migrate an oversized
// legacy blob, load and partition the persisted jobs, reap stale actives,
// then resume the survivors with fresh pipeline runs. Run exactly once,
// before any Start call.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if err := Migrate(ctx, o.store, MigrateConfig{
		SizeCap: o.config.BlobSizeCap,
		Keep:    o.config.MigrationKeep,
	}, o.logger); err != nil {
		return fmt.Errorf("storage migration failed: %w", err)
	}

	blob, err := o.store.Load(ctx)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			o.logger.Info("No persisted jobs found")
			return nil
		}
		return fmt.Errorf("failed to load persisted jobs: %w", err)
	}

	jobs, err := DecodeJobs(blob)
	if err != nil {
		// Corruption from an incompatible prior format. Discard rather
		// than fail startup; this is never surfaced as a job error.
		o.logger.Warn("Discarding undecodable jobs blob",
			slog.String("error", err.Error()),
		)
		return nil
	}

	o.mu.Lock()
	for _, j := range jobs {
		if j.Status.IsProcessing() {
			o.active = append(o.active, j)
		} else {
			o.completed = append(o.completed, j)
		}
	}

	resumed, reaped := o.reapStaleLocked()
	o.saveLocked()
	o.mu.Unlock()

	for _, event := range reaped {
		o.publish(event)
	}

	for _, job := range resumed {
		o.logger.Info("Resuming interrupted job",
			slog.String("job_id", job.ID),
			slog.Time("created_at", job.CreatedAt),
		)
		o.launch(job)
	}

	o.logger.Info("Job collections restored",
		slog.Int("active", len(resumed)),
		slog.Int("completed", len(o.Completed())),
	)
	return nil
}

// reapStaleLocked fails out every active job older than the staleness
// threshold and returns the survivors, reset to thinking and ready to be
// relaunched, along with the transition events for the reaped jobs. An
// active job surviving a restart can only exist because a prior process died
// mid-run: each job runs to completion within one process lifetime, so
// nothing legitimately holds a job active across a restart. Stale ones are
// failed rather than resumed as-is, because trusting their partial state
// could emit a false finish.
func (o *Orchestrator) reapStaleLocked() ([]*Job, []events.Event) {
	now := o.now()
	var survivors []*Job
	var remaining []*Job
	var reaped []events.Event

	for _, j := range o.active {
		if now.Sub(j.CreatedAt) > o.config.StaleAfter {
			o.logger.Warn("Reaping stale job",
				slog.String("job_id", j.ID),
				slog.Time("created_at", j.CreatedAt),
			)
			t := now
			j.Status = StatusError
			j.ErrorMessage = msgInterrupted
			j.CompletedAt = &t
			o.completed = append([]*Job{j}, o.completed...)
			reaped = append(reaped, o.eventLocked(j))
			continue
		}
		// Fresh pipeline run, exactly as start: the pass begins again at
		// thinking rather than trusting the persisted stage.
		j.Status = StatusThinking
		remaining = append(remaining, j)
		survivors = append(survivors, j)
	}

	o.active = remaining
	return survivors, reaped
}

// Start constructs a job, persists it and launches its pipeline run. It
// returns a snapshot of the job immediately without blocking on completion.
func (o *Orchestrator) Start(params StartParams) *Job {
	job := NewJob(
		params.AnalysisID,
		params.Ingredients,
		params.Thumbnail,
		params.RecipeType,
		params.CustomPrompt,
		o.now().UTC(),
	)

	o.mu.Lock()
	o.active = append([]*Job{job}, o.active...)
	o.saveLocked()
	event := o.eventLocked(job)
	o.mu.Unlock()
	o.publish(event)

	o.logger.Info("Generation job started",
		slog.String("job_id", job.ID),
		slog.String("analysis_id", job.AnalysisID),
		slog.Int("ingredient_count", len(job.Ingredients)),
	)

	// Snapshot before launch: once the pipeline goroutine is running it owns
	// the job's mutable fields.
	snapshot := job.Clone()
	o.launch(job)
	return snapshot
}

// launch binds a fresh cancellable handle to the job and runs its pipeline
// on its own goroutine.
func (o *Orchestrator) launch(job *Job) {
	jobCtx, cancel := context.WithCancel(o.baseCtx)

	o.mu.Lock()
	o.handles[job.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.releaseHandle(job.ID)
		o.pipeline.Run(jobCtx, o, job)
	}()
}

// releaseHandle drops the job's cancel handle after a run ends, whether the
// run completed naturally or was cancelled. The cancel func is always
// invoked to free the derived context.
func (o *Orchestrator) releaseHandle(jobID string) {
	o.mu.Lock()
	cancel, ok := o.handles[jobID]
	if ok {
		delete(o.handles, jobID)
	}
	o.mu.Unlock()
	if ok {
		cancel()
	}
}

// Cancel stops the job's pipeline run and removes the job from the active
// collection. Idempotent: cancelling an unknown or already-completed id is
// a no-op. A cancelled job is gone, not retryable.
func (o *Orchestrator) Cancel(jobID string) {
	o.mu.Lock()
	cancel, hadHandle := o.handles[jobID]
	if hadHandle {
		delete(o.handles, jobID)
	}
	removed := removeJob(&o.active, jobID)
	if removed != nil {
		o.saveLocked()
	}
	o.mu.Unlock()

	if hadHandle {
		cancel()
	}
	if removed != nil {
		o.logger.Info("Generation job cancelled",
			slog.String("job_id", jobID),
		)
	}
}

// Retry moves an errored job from completed back to active as a fresh
// lifecycle pass reusing the same identity and inputs, and relaunches its
// pipeline. It is a no-op (returning nil) unless the job is currently in
// completed with status error.
func (o *Orchestrator) Retry(jobID string) *Job {
	o.mu.Lock()
	job := findJob(o.completed, jobID)
	if job == nil || job.Status != StatusError {
		o.mu.Unlock()
		return nil
	}

	removeJob(&o.completed, jobID)
	job.Status = StatusThinking
	job.ErrorMessage = ""
	job.CompletedAt = nil
	o.active = append([]*Job{job}, o.active...)
	o.saveLocked()
	event := o.eventLocked(job)
	o.mu.Unlock()
	o.publish(event)

	o.logger.Info("Generation job retried",
		slog.String("job_id", jobID),
	)

	// Snapshot before launch, as in Start.
	snapshot := job.Clone()
	o.launch(job)
	return snapshot
}

// Delete removes a job from the completed collection. Active jobs are not
// deletable; cancel them instead.
func (o *Orchestrator) Delete(jobID string) {
	o.mu.Lock()
	removed := removeJob(&o.completed, jobID)
	if removed != nil {
		o.saveLocked()
	}
	o.mu.Unlock()
}

// ClearCompleted removes every completed job.
func (o *Orchestrator) ClearCompleted() {
	o.mu.Lock()
	o.completed = nil
	o.saveLocked()
	o.mu.Unlock()
}

// Job looks a job up across both collections. Returns nil when unknown.
func (o *Orchestrator) Job(jobID string) *Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	if j := findJob(o.active, jobID); j != nil {
		return j.Clone()
	}
	if j := findJob(o.completed, jobID); j != nil {
		return j.Clone()
	}
	return nil
}

// Active returns a snapshot of the active collection, most recent first.
func (o *Orchestrator) Active() []*Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneJobs(o.active)
}

// Completed returns a snapshot of the completed collection, most recent
// first.
func (o *Orchestrator) Completed() []*Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneJobs(o.completed)
}

// Shutdown cancels every running pipeline and waits for them to observe the
// cancellation. In-flight jobs stay persisted as active; the next startup
// resumes or reaps them.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.logger.Info("Shutting down orchestrator")
	o.baseCancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("Orchestrator shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("orchestrator shutdown timed out: %w", ctx.Err())
	}
}

// advance applies a status mutation to a job that is still active, then
// persists and notifies. It returns false when the job is no longer in the
// active collection, which is how a pipeline run learns it has been
// cancelled out from under it: the mutation is simply dropped, never racing
// the canceller.
func (o *Orchestrator) advance(jobID string, mutate func(*Job)) bool {
	o.mu.Lock()
	job := findJob(o.active, jobID)
	if job == nil {
		o.mu.Unlock()
		return false
	}
	mutate(job)
	o.saveLocked()
	event := o.eventLocked(job)
	o.mu.Unlock()

	o.publish(event)
	return true
}

// completeFinished moves the job from active to completed with its recipes.
func (o *Orchestrator) completeFinished(jobID string, recipes []Recipe) {
	o.complete(jobID, func(j *Job) {
		j.Status = StatusFinished
		j.Recipes = recipes
	})
}

// completeError moves the job from active to completed with a failure
// message.
func (o *Orchestrator) completeError(jobID string, message string) {
	o.complete(jobID, func(j *Job) {
		j.Status = StatusError
		j.ErrorMessage = message
	})
}

// complete performs the atomic active-to-completed move: mutate, stamp
// completedAt, reinsert at the head of completed, persist, notify. A job
// already gone from active (cancelled) is left untouched.
func (o *Orchestrator) complete(jobID string, mutate func(*Job)) {
	o.mu.Lock()
	job := removeJob(&o.active, jobID)
	if job == nil {
		o.mu.Unlock()
		return
	}

	mutate(job)
	t := o.now()
	job.CompletedAt = &t
	o.completed = append([]*Job{job}, o.completed...)
	o.saveLocked()
	event := o.eventLocked(job)
	o.mu.Unlock()
	o.publish(event)

	o.logger.Info("Generation job completed",
		slog.String("job_id", jobID),
		slog.String("status", string(job.Status)),
	)
}

// saveLocked persists the full snapshot of both collections as one blob,
// with the strip-and-cap policy applied. Best effort: a failed save is
// logged, not retried, and never rolls back the in-memory change that
// triggered it. Callers must hold o.mu so every save captures a consistent
// snapshot of both collections together.
func (o *Orchestrator) saveLocked() {
	blob, err := EncodeSnapshot(o.active, o.completed, o.config.CompletedCap, o.config.BlobSizeCap)
	if err != nil {
		o.logger.Error("Failed to encode jobs snapshot",
			slog.String("error", err.Error()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.config.SaveTimeout)
	defer cancel()

	if err := o.store.Save(ctx, blob); err != nil {
		o.logger.Error("Failed to persist jobs snapshot",
			slog.String("error", err.Error()),
		)
	}
}

// eventLocked snapshots a status-transition event. Callers must hold o.mu so
// the snapshot is consistent with the collections.
func (o *Orchestrator) eventLocked(job *Job) events.Event {
	return events.Event{
		JobID:        job.ID,
		AnalysisID:   job.AnalysisID,
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
		CompletedAt:  job.CompletedAt,
		OccurredAt:   o.now(),
	}
}

// publish emits one transition event. Best effort, and always called after
// o.mu is released so a slow broker never stalls the collections.
func (o *Orchestrator) publish(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.Warn("Failed to publish job event",
			slog.String("job_id", event.JobID),
			slog.String("error", err.Error()),
		)
	}
}

func findJob(jobs []*Job, jobID string) *Job {
	for _, j := range jobs {
		if j.ID == jobID {
			return j
		}
	}
	return nil
}

func removeJob(jobs *[]*Job, jobID string) *Job {
	for i, j := range *jobs {
		if j.ID == jobID {
			*jobs = append((*jobs)[:i], (*jobs)[i+1:]...)
			return j
		}
	}
	return nil
}

func cloneJobs(jobs []*Job) []*Job {
	out := make([]*Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Clone())
	}
	return out
}
