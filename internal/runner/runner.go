// Package runner tracks deletion jobs: it assigns ids, runs the engine
// asynchronously, records each run and updates metrics.
package runner

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"turbo-delete/internal/database"
	"turbo-delete/internal/engine"
	"turbo-delete/internal/metrics"
	"turbo-delete/internal/report"
	"turbo-delete/internal/safety"
)

// State of a job
type State string

const (
	StateRunning  State = "running"
	StateDone     State = "done"
	StateRejected State = "rejected"
	StateFailed   State = "failed"
)

const defaultMaxFinished = 256

// RunStore persists finished runs
type RunStore interface {
	RecordRun(run database.RunRecord, skipped []database.SkippedRecord) error
}

// Job is a point-in-time view of one deletion
type Job struct {
	ID         string               `json:"id"`
	Target     string               `json:"target"`
	State      State                `json:"state"`
	Outcome    string               `json:"outcome,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Status     string               `json:"status,omitempty"`
	Progress   report.ProgressEvent `json:"progress"`
	Summary    *engine.Summary      `json:"summary,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Options configures a Runner
type Options struct {
	Store  RunStore
	Logger zerolog.Logger
	// Events returns an extra sink for each job, e.g. a broadcast hub
	Events func(jobID string) report.Sink
	// MaxFinished bounds how many finished jobs stay queryable in memory
	MaxFinished int
}

// Runner runs deletions and keeps their state
type Runner struct {
	engine *engine.Engine
	store  RunStore
	events func(string) report.Sink
	logger zerolog.Logger

	mu          sync.RWMutex
	jobs        map[string]*Job
	finished    []string
	maxFinished int
	wg          sync.WaitGroup
}

// New creates a Runner around eng
func New(eng *engine.Engine, opts Options) *Runner {
	metrics.Init()
	keep := opts.MaxFinished
	if keep <= 0 {
		keep = defaultMaxFinished
	}
	return &Runner{
		engine:      eng,
		store:       opts.Store,
		events:      opts.Events,
		logger:      opts.Logger.With().Str("component", "runner").Logger(),
		jobs:        make(map[string]*Job),
		maxFinished: keep,
	}
}

// Submit starts a deletion in the background and returns its job id and a
// channel that receives the engine result once recording is complete.
func (r *Runner) Submit(target string, sink report.Sink) (string, <-chan engine.Result) {
	id := uuid.NewString()
	job := &Job{ID: id, Target: target, State: StateRunning, StartedAt: time.Now()}

	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()

	sinks := []report.Sink{&tracker{r: r, id: id}, sink}
	if r.events != nil {
		sinks = append(sinks, r.events(id))
	}
	all := report.Multi(sinks...)

	metrics.JobsActive.Inc()
	out := make(chan engine.Result, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(out)
		defer metrics.JobsActive.Dec()

		res := <-r.engine.Start(target, all)
		r.finish(id, res)
		out <- res
	}()
	return id, out
}

// Run is Submit followed by waiting for the result
func (r *Runner) Run(target string, sink report.Sink) (string, *engine.Summary, error) {
	id, ch := r.Submit(target, sink)
	res := <-ch
	return id, res.Summary, res.Err
}

// Get returns a snapshot of a job
func (r *Runner) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Jobs returns snapshots of all known jobs
func (r *Runner) Jobs() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	return out
}

// Wait blocks until every submitted job has finished
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Classify maps an engine result to a job state and a stored outcome
func Classify(s *engine.Summary, err error) (State, string) {
	switch {
	case err == nil && s != nil && s.Skipped > 0:
		return StateDone, database.OutcomePartial
	case err == nil:
		return StateDone, database.OutcomeDone
	case errors.Is(err, safety.ErrSafetyViolation):
		return StateRejected, database.OutcomeRejected
	case errors.Is(err, engine.ErrPathNotFound):
		return StateFailed, database.OutcomeNotFound
	default:
		return StateFailed, database.OutcomeFailed
	}
}

func (r *Runner) finish(id string, res engine.Result) {
	state, outcome := Classify(res.Summary, res.Err)
	now := time.Now()

	r.mu.Lock()
	job := r.jobs[id]
	job.State = state
	job.Outcome = outcome
	job.FinishedAt = &now
	job.Summary = res.Summary
	if res.Err != nil {
		job.Error = res.Err.Error()
	}
	snapshot := *job
	r.finished = append(r.finished, id)
	for len(r.finished) > r.maxFinished {
		delete(r.jobs, r.finished[0])
		r.finished = r.finished[1:]
	}
	r.mu.Unlock()

	if s := res.Summary; s != nil {
		metrics.RecordDeletion(outcome, s.Total, s.Processed, s.Skipped, s.Elapsed)
	} else {
		metrics.RecordOutcome(outcome)
	}

	log := r.logger.With().Str("job_id", id).Str("target", snapshot.Target).Str("outcome", outcome).Logger()
	if res.Err != nil {
		log.Warn().Err(res.Err).Msg("job finished with error")
	} else {
		log.Info().Msg("job finished")
	}

	if r.store == nil {
		return
	}
	run, skipped := toRecords(snapshot)
	if err := r.store.RecordRun(run, skipped); err != nil {
		metrics.ErrorsTotal.Inc()
		log.Error().Err(err).Msg("failed to record run")
	}
}

func toRecords(j Job) (database.RunRecord, []database.SkippedRecord) {
	run := database.RunRecord{
		ID:           j.ID,
		StartedAt:    j.StartedAt,
		Target:       j.Target,
		Outcome:      j.Outcome,
		ErrorMessage: j.Error,
	}
	s := j.Summary
	if s == nil {
		return run, nil
	}
	run.Total = int64(s.Total)
	run.Files = int64(s.Files)
	run.Dirs = int64(s.Dirs)
	run.Processed = int64(s.Processed)
	run.Skipped = int64(s.Skipped)
	run.ElapsedSeconds = s.Seconds()
	run.RootRemoved = s.RootRemoved

	skipped := make([]database.SkippedRecord, 0, len(s.SkippedItems))
	for _, it := range s.SkippedItems {
		skipped = append(skipped, database.SkippedRecord{RunID: j.ID, Path: it.Path, Kind: it.Kind, Error: it.Error})
	}
	return run, skipped
}

// tracker mirrors the latest events into the job snapshot
type tracker struct {
	r  *Runner
	id string
}

func (t *tracker) Status(msg string) {
	t.r.mu.Lock()
	if j, ok := t.r.jobs[t.id]; ok {
		j.Status = msg
	}
	t.r.mu.Unlock()
}

func (t *tracker) Progress(ev report.ProgressEvent) {
	t.r.mu.Lock()
	if j, ok := t.r.jobs[t.id]; ok {
		j.Progress = ev
	}
	t.r.mu.Unlock()
}
