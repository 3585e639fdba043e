package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turbo-delete/internal/fsops"
	"turbo-delete/internal/report"
	"turbo-delete/internal/safety"
)

func newTestEngine(t *testing.T, d fsops.Deleter, opts ...func(*Options)) *Engine {
	t.Helper()
	o := Options{
		Workers: 4,
		Guard:   safety.NewValidator(safety.DefaultSystemRoot, nil),
		Deleter: d,
		Logger:  zerolog.Nop(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o)
}

// makeFiles creates n files directly under dir and returns their paths
func makeFiles(t *testing.T, dir string, n int) []string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("file-%04d.txt", i))
		require.NoError(t, os.WriteFile(paths[i], []byte("data"), 0o644))
	}
	return paths
}

func progressDuringPhases(events []report.ProgressEvent) []uint64 {
	var out []uint64
	for _, ev := range events {
		if !ev.Done {
			out = append(out, ev.Current)
		}
	}
	return out
}

func TestDeleteTreeCountsEveryEntry(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	makeFiles(t, target, 3)
	makeFiles(t, filepath.Join(target, "a"), 4)
	makeFiles(t, filepath.Join(target, "a", "b", "c"), 2)
	require.NoError(t, os.MkdirAll(filepath.Join(target, "empty", "deeper"), 0o755))
	// 9 files; dirs: a, a/b, a/b/c, empty, empty/deeper
	const n, m = 9, 5

	rec := &report.Recorder{}
	s, err := newTestEngine(t, nil).Delete(target, rec)
	require.NoError(t, err)

	assert.Equal(t, uint64(n+m), s.Total)
	assert.Equal(t, uint64(n), s.Files)
	assert.Equal(t, uint64(m), s.Dirs)
	assert.Equal(t, s.Total, s.Processed+s.Skipped)
	assert.Zero(t, s.Skipped)
	assert.True(t, s.RootRemoved)
	assert.GreaterOrEqual(t, s.Seconds(), 0.0)

	events := rec.ProgressEvents()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, report.ProgressEvent{Total: n + m, Current: n + m, CurrentFile: DoneMarker, Done: true}, last)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStatusSequence(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	makeFiles(t, target, 2)

	rec := &report.Recorder{}
	_, err := newTestEngine(t, nil).Delete(target, rec)
	require.NoError(t, err)

	statuses := rec.Statuses()
	require.Len(t, statuses, 4)
	assert.Equal(t, "Taking ownership (this may take a while)...", statuses[0])
	assert.Equal(t, "Scanning...", statuses[1])
	assert.Equal(t, "Found 2 items. Deleting...", statuses[2])
	assert.Regexp(t, `^Done in \d+\.\d{2}s$`, statuses[3])
}

func TestSafetyViolationsTouchNothing(t *testing.T) {
	protected := t.TempDir()
	keep := makeFiles(t, protected, 1)[0]

	guard := safety.NewValidator(`C:\Windows`, []string{protected})
	targets := []string{`C:\`, `D:\`, `C:\Windows`, `c:/windows/`, `C:\Users`, `C:\Program Files (x86)`, "/", protected}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			fake := &fsops.FakeDeleter{}
			rec := &report.Recorder{}
			e := newTestEngine(t, fake, func(o *Options) { o.Guard = guard })

			s, err := e.Delete(target, rec)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, safety.ErrSafetyViolation)
			assert.True(t, strings.HasPrefix(err.Error(), "SAFETY ALERT"))
			assert.Empty(t, fake.Calls())
			assert.Empty(t, rec.Statuses())
			assert.Empty(t, rec.ProgressEvents())
		})
	}

	_, err := os.Stat(keep)
	assert.NoError(t, err)
}

func TestSystemRootFromEnvironmentRejected(t *testing.T) {
	t.Setenv(safety.SystemRootEnv, `D:\OS`)
	fake := &fsops.FakeDeleter{}
	e := New(Options{Deleter: fake, Logger: zerolog.Nop()})

	_, err := e.Delete(`d:\os\`, nil)
	assert.ErrorIs(t, err, safety.ErrSystemRoot)
	assert.Empty(t, fake.Calls())
}

func TestMissingTarget(t *testing.T) {
	fake := &fsops.FakeDeleter{}
	_, err := newTestEngine(t, fake).Delete(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathNotFound)
	assert.Empty(t, fake.Calls())
}

func TestDirectoriesRemovedAfterDescendants(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	for _, d := range []string{"a", "a/b", "a/b/c", "a/b/c/d", "x", "x/y"} {
		makeFiles(t, filepath.Join(target, filepath.FromSlash(d)), 3)
	}

	fake := &fsops.FakeDeleter{Next: fsops.OSDeleter{}}
	s, err := newTestEngine(t, fake, func(o *Options) { o.Workers = 8 }).Delete(target, nil)
	require.NoError(t, err)
	require.Zero(t, s.Skipped)

	removed := fake.Removed()
	order := make(map[string]int, len(removed))
	for i, p := range removed {
		order[p] = i
	}
	for p, i := range order {
		for q, k := range order {
			if strings.HasPrefix(q, p+string(filepath.Separator)) {
				assert.Less(t, k, i, "%s removed before its descendant %s", p, q)
			}
		}
	}
	assert.Equal(t, target, removed[len(removed)-1])
}

func TestProgressIsMonotonic(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	for i := 0; i < 6; i++ {
		makeFiles(t, filepath.Join(target, fmt.Sprintf("d%d", i)), 120)
	}

	rec := &report.Recorder{}
	_, err := newTestEngine(t, nil, func(o *Options) { o.Workers = 16 }).Delete(target, rec)
	require.NoError(t, err)

	events := rec.ProgressEvents()
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Current, events[i-1].Current)
		assert.Equal(t, uint64(726), events[i].Total)
	}
}

func TestEmitterDeliversEveryBoundary(t *testing.T) {
	rec := &report.Recorder{}
	em := &emitter{sink: rec, total: 1000, batch: 100}

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				em.advance("f", true)
			}
		}()
	}
	wg.Wait()
	em.finish()

	var want []uint64
	for n := uint64(100); n <= 1000; n += 100 {
		want = append(want, n)
	}
	events := rec.ProgressEvents()
	assert.Equal(t, want, progressDuringPhases(events))
	assert.Equal(t, report.ProgressEvent{Total: 1000, Current: 1000, CurrentFile: DoneMarker, Done: true}, events[len(events)-1])
}

func TestEmptyDirectoryTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(target, 0o755))

	rec := &report.Recorder{}
	s, err := newTestEngine(t, nil).Delete(target, rec)
	require.NoError(t, err)

	assert.Zero(t, s.Total)
	assert.Zero(t, s.Skipped)
	assert.True(t, s.RootRemoved)
	assert.Equal(t, []report.ProgressEvent{{CurrentFile: DoneMarker, Done: true}}, rec.ProgressEvents())
	assert.Contains(t, rec.Statuses(), "Found 0 items. Deleting...")
}

func TestTwoHundredFiftyFiles(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	makeFiles(t, target, 250)

	rec := &report.Recorder{}
	s, err := newTestEngine(t, nil, func(o *Options) { o.Workers = 1 }).Delete(target, rec)
	require.NoError(t, err)

	assert.Zero(t, s.Skipped)
	assert.Equal(t, []uint64{100, 200, 250}, progressDuringPhases(rec.ProgressEvents()))
}

func TestTwoHundredFiftyFilesParallel(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	makeFiles(t, target, 250)

	rec := &report.Recorder{}
	s, err := newTestEngine(t, nil, func(o *Options) { o.Workers = 8 }).Delete(target, rec)
	require.NoError(t, err)

	assert.Zero(t, s.Skipped)
	assert.Equal(t, []uint64{100, 200, 250}, progressDuringPhases(rec.ProgressEvents()))
}

func TestOneLockedFileAmongFifty(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	paths := makeFiles(t, target, 50)
	locked := paths[17]

	fake := &fsops.FakeDeleter{
		Fail: map[string]error{locked: errors.New("file is being used by another process")},
		Next: fsops.OSDeleter{},
	}
	rec := &report.Recorder{}
	s, err := newTestEngine(t, fake).Delete(target, rec)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), s.Skipped)
	assert.Equal(t, uint64(49), s.Processed)
	assert.False(t, s.RootRemoved)
	require.Len(t, s.SkippedItems, 1)
	assert.Equal(t, locked, s.SkippedItems[0].Path)
	assert.Equal(t, "file", s.SkippedItems[0].Kind)
	assert.Contains(t, rec.LastStatus(), ". Skipped 1 items (locked/access denied).")

	_, statErr := os.Stat(locked)
	assert.NoError(t, statErr)
}

// TestDirectoryPhaseHasNoFinalItemEvent pins the directory phase behaviour:
// it emits only on batch boundaries and the closing event closes the gap.
func TestDirectoryPhaseHasNoFinalItemEvent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	for i := 0; i < 150; i++ {
		require.NoError(t, os.MkdirAll(filepath.Join(target, fmt.Sprintf("d%03d", i)), 0o755))
	}

	rec := &report.Recorder{}
	s, err := newTestEngine(t, nil).Delete(target, rec)
	require.NoError(t, err)
	require.Equal(t, uint64(150), s.Dirs)

	events := rec.ProgressEvents()
	assert.Equal(t, []uint64{100}, progressDuringPhases(events))
	assert.Equal(t, report.ProgressEvent{Total: 150, Current: 150, CurrentFile: DoneMarker, Done: true}, events[len(events)-1])
}

func TestSingleFileTarget(t *testing.T) {
	file := makeFiles(t, t.TempDir(), 1)[0]

	rec := &report.Recorder{}
	s, err := newTestEngine(t, nil).Delete(file, rec)
	require.NoError(t, err)

	assert.Zero(t, s.Total)
	assert.True(t, s.RootRemoved)
	assert.NotContains(t, rec.Statuses(), "Scanning...")
	assert.NotContains(t, rec.Statuses(), "Taking ownership (this may take a while)...")
	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr))
}

type recordingReclaimer struct {
	paths []string
	err   error
}

func (r *recordingReclaimer) Reclaim(path string) error {
	r.paths = append(r.paths, path)
	return r.err
}

func TestReclaimFailureIsNotFatal(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	makeFiles(t, target, 3)

	rc := &recordingReclaimer{err: errors.New("access denied")}
	s, err := newTestEngine(t, nil, func(o *Options) { o.Reclaimer = rc }).Delete(target, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{target}, rc.paths)
	assert.Zero(t, s.Skipped)
	assert.True(t, s.RootRemoved)
}

func TestLinkTargetWithTrailingSeparator(t *testing.T) {
	work := t.TempDir()
	precious := filepath.Join(work, "precious")
	kept := makeFiles(t, precious, 3)
	link := filepath.Join(work, "link")
	if err := os.Symlink(precious, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	rc := &recordingReclaimer{}
	rec := &report.Recorder{}
	s, err := newTestEngine(t, nil, func(o *Options) { o.Reclaimer = rc }).Delete(link+string(filepath.Separator), rec)
	require.NoError(t, err)

	assert.Zero(t, s.Total)
	assert.True(t, s.RootRemoved)
	assert.Empty(t, rc.paths)
	assert.NotContains(t, rec.Statuses(), "Scanning...")
	for _, p := range kept {
		assert.FileExists(t, p)
	}
	_, statErr := os.Lstat(link)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSkipOwnership(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	makeFiles(t, target, 2)

	rc := &recordingReclaimer{}
	rec := &report.Recorder{}
	_, err := newTestEngine(t, nil, func(o *Options) {
		o.Reclaimer = rc
		o.SkipOwnership = true
	}).Delete(target, rec)
	require.NoError(t, err)

	assert.Empty(t, rc.paths)
	assert.Equal(t, "Scanning...", rec.Statuses()[0])
}

func TestSkippedItemsAreCapped(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	paths := makeFiles(t, target, 5)

	fail := make(map[string]error)
	for _, p := range paths {
		fail[p] = errors.New("denied")
	}
	fake := &fsops.FakeDeleter{Fail: fail, Next: fsops.OSDeleter{}}
	s, err := newTestEngine(t, fake, func(o *Options) { o.MaxSkippedItems = 2 }).Delete(target, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), s.Skipped)
	assert.Len(t, s.SkippedItems, 2)
}

func TestStartDeliversResult(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tree")
	makeFiles(t, target, 10)

	ch := newTestEngine(t, nil).Start(target, nil)
	select {
	case res, ok := <-ch:
		require.True(t, ok)
		require.NoError(t, res.Err)
		assert.Equal(t, uint64(10), res.Summary.Processed)
	case <-time.After(10 * time.Second):
		t.Fatal("deletion did not finish")
	}

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after the result")
}
