package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turbo-delete/internal/database"
	"turbo-delete/internal/engine"
	"turbo-delete/internal/fsops"
	"turbo-delete/internal/report"
	"turbo-delete/internal/safety"
)

type memStore struct {
	mu      sync.Mutex
	runs    []database.RunRecord
	skipped []database.SkippedRecord
	err     error
}

func (m *memStore) RecordRun(run database.RunRecord, skipped []database.SkippedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	m.skipped = append(m.skipped, skipped...)
	return m.err
}

func newEngine(d fsops.Deleter) *engine.Engine {
	return engine.New(engine.Options{
		Workers: 2,
		Guard:   safety.NewValidator(safety.DefaultSystemRoot, nil),
		Deleter: d,
		Logger:  zerolog.Nop(),
	})
}

func makeTree(t *testing.T, files int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for i := 0; i < files; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", fmt.Sprintf("f%d", i)), []byte("x"), 0o644))
	}
	return dir
}

func TestRunRecordsSuccessfulJob(t *testing.T) {
	store := &memStore{}
	r := New(newEngine(nil), Options{Store: store, Logger: zerolog.Nop()})
	target := makeTree(t, 5)

	rec := &report.Recorder{}
	id, summary, err := r.Run(target, rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, uint64(6), summary.Processed)

	job, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateDone, job.State)
	assert.Equal(t, database.OutcomeDone, job.Outcome)
	assert.NotNil(t, job.FinishedAt)
	assert.True(t, job.Progress.Done)
	assert.Contains(t, job.Status, "Done in")

	require.Len(t, store.runs, 1)
	assert.Equal(t, id, store.runs[0].ID)
	assert.Equal(t, int64(6), store.runs[0].Total)
	assert.True(t, store.runs[0].RootRemoved)
	assert.NotEmpty(t, rec.Statuses())
}

func TestRunPartialFailureRecordsSkippedItems(t *testing.T) {
	store := &memStore{}
	target := makeTree(t, 3)
	locked := filepath.Join(target, "sub", "f1")
	fake := &fsops.FakeDeleter{Fail: map[string]error{locked: errors.New("locked")}, Next: fsops.OSDeleter{}}

	r := New(newEngine(fake), Options{Store: store, Logger: zerolog.Nop()})
	id, summary, err := r.Run(target, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), summary.Skipped)

	job, _ := r.Get(id)
	assert.Equal(t, StateDone, job.State)
	assert.Equal(t, database.OutcomePartial, job.Outcome)

	require.Len(t, store.runs, 1)
	assert.Equal(t, database.OutcomePartial, store.runs[0].Outcome)
	// the locked file and the directory holding it
	require.Len(t, store.skipped, 2)
	assert.Equal(t, locked, store.skipped[0].Path)
	assert.Equal(t, id, store.skipped[0].RunID)
}

func TestRunRejectedTarget(t *testing.T) {
	store := &memStore{}
	r := New(newEngine(nil), Options{Store: store, Logger: zerolog.Nop()})

	id, summary, err := r.Run(`C:\Windows`, nil)
	require.ErrorIs(t, err, safety.ErrSafetyViolation)
	assert.Nil(t, summary)

	job, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateRejected, job.State)
	assert.Contains(t, job.Error, "SAFETY ALERT")

	require.Len(t, store.runs, 1)
	assert.Equal(t, database.OutcomeRejected, store.runs[0].Outcome)
	assert.Contains(t, store.runs[0].ErrorMessage, "SAFETY ALERT")
}

func TestStoreFailureDoesNotFailJob(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	r := New(newEngine(nil), Options{Store: store, Logger: zerolog.Nop()})

	_, _, err := r.Run(makeTree(t, 1), nil)
	assert.NoError(t, err)
}

func TestEventsSinkReceivesJobID(t *testing.T) {
	var mu sync.Mutex
	sinks := map[string]*report.Recorder{}
	r := New(newEngine(nil), Options{
		Logger: zerolog.Nop(),
		Events: func(id string) report.Sink {
			mu.Lock()
			defer mu.Unlock()
			rec := &report.Recorder{}
			sinks[id] = rec
			return rec
		},
	})

	id, ch := r.Submit(makeTree(t, 2), nil)
	res := <-ch
	require.NoError(t, res.Err)

	mu.Lock()
	rec := sinks[id]
	mu.Unlock()
	require.NotNil(t, rec)
	assert.Contains(t, rec.Statuses(), "Scanning...")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		summary *engine.Summary
		err     error
		state   State
		outcome string
	}{
		{"clean", &engine.Summary{}, nil, StateDone, database.OutcomeDone},
		{"partial", &engine.Summary{Skipped: 2}, nil, StateDone, database.OutcomePartial},
		{"rejected", nil, safety.ErrDriveRoot, StateRejected, database.OutcomeRejected},
		{"not found", nil, fmt.Errorf("%w: /x", engine.ErrPathNotFound), StateFailed, database.OutcomeNotFound},
		{"other", nil, errors.New("boom"), StateFailed, database.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, outcome := Classify(tt.summary, tt.err)
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestFinishedJobsArePruned(t *testing.T) {
	r := New(newEngine(nil), Options{Logger: zerolog.Nop(), MaxFinished: 2})

	var ids []string
	for i := 0; i < 4; i++ {
		id, _, err := r.Run(makeTree(t, 1), nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	r.Wait()

	assert.Len(t, r.Jobs(), 2)
	_, ok := r.Get(ids[0])
	assert.False(t, ok)
	_, ok = r.Get(ids[3])
	assert.True(t, ok)
}

func TestRunWithSQLiteStore(t *testing.T) {
	db, err := database.NewDeletionDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	r := New(newEngine(nil), Options{Store: db, Logger: zerolog.Nop()})
	id, _, err := r.Run(makeTree(t, 3), nil)
	require.NoError(t, err)

	run, err := db.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, database.OutcomeDone, run.Outcome)
	assert.Equal(t, int64(4), run.Processed)
}
