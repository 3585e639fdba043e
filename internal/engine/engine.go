// Package engine implements the turbo-delete pipeline: safety gate, ownership
// reclaim, tree walk, parallel file removal, deepest-first directory removal
// and root finalization.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"turbo-delete/internal/fsops"
	"turbo-delete/internal/privilege"
	"turbo-delete/internal/report"
	"turbo-delete/internal/safety"
	"turbo-delete/internal/walker"
)

const (
	// DefaultBatchSize is the progress emission interval
	DefaultBatchSize = 100
	// DefaultMaxSkippedItems bounds the skipped items kept in a Summary
	DefaultMaxSkippedItems = 1000

	// DoneMarker is the current_file of the closing progress event
	DoneMarker = "Done"
)

// ErrPathNotFound is returned when the target does not exist
var ErrPathNotFound = fsops.ErrPathNotFound

// Guard authorizes a deletion target before any mutation
type Guard interface {
	ValidateDeleteTarget(path string) error
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Workers         int
	BatchSize       int
	MaxSkippedItems int
	SkipOwnership   bool

	Guard     Guard
	Reclaimer privilege.Reclaimer
	Deleter   fsops.Deleter
	Logger    zerolog.Logger
}

// Engine runs deletions. It holds no per-call state and may be shared.
type Engine struct {
	workers         int
	batchSize       uint64
	maxSkippedItems int
	skipOwnership   bool

	guard     Guard
	reclaimer privilege.Reclaimer
	deleter   fsops.Deleter
	logger    zerolog.Logger
}

// SkippedItem is an entry whose removal failed
type SkippedItem struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Summary describes a finished deletion
type Summary struct {
	Target       string        `json:"target"`
	Total        uint64        `json:"total"`
	Files        uint64        `json:"files"`
	Dirs         uint64        `json:"dirs"`
	Processed    uint64        `json:"processed"`
	Skipped      uint64        `json:"skipped"`
	SkippedItems []SkippedItem `json:"skipped_items,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
	RootRemoved  bool          `json:"root_removed"`
}

// Seconds returns the elapsed wall-clock time in seconds
func (s *Summary) Seconds() float64 {
	return s.Elapsed.Seconds()
}

// Result carries the outcome of an asynchronous deletion
type Result struct {
	Summary *Summary
	Err     error
}

// New creates an Engine. A nil Guard uses the default validator resolved
// from the SystemRoot environment variable and a nil Reclaimer the one for
// the host platform.
func New(opts Options) *Engine {
	e := &Engine{
		workers:         opts.Workers,
		batchSize:       uint64(opts.BatchSize),
		maxSkippedItems: opts.MaxSkippedItems,
		skipOwnership:   opts.SkipOwnership,
		guard:           opts.Guard,
		reclaimer:       opts.Reclaimer,
		deleter:         opts.Deleter,
		logger:          opts.Logger.With().Str("component", "engine").Logger(),
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.batchSize == 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.maxSkippedItems <= 0 {
		e.maxSkippedItems = DefaultMaxSkippedItems
	}
	if e.guard == nil {
		e.guard = safety.NewValidator(safety.SystemRootFromEnv(safety.SystemRootEnv), nil)
	}
	if e.reclaimer == nil {
		e.reclaimer = privilege.New(opts.Logger)
	}
	if e.deleter == nil {
		e.deleter = fsops.OSDeleter{}
	}
	return e
}

// Start runs Delete on its own goroutine. The channel receives exactly one
// Result and is then closed.
func (e *Engine) Start(target string, sink report.Sink) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		s, err := e.Delete(target, sink)
		ch <- Result{Summary: s, Err: err}
	}()
	return ch
}

// Delete removes target and everything beneath it. Only a safety violation
// or a missing target fail the call, and both are returned before anything
// is touched. Individual removal failures are counted in Summary.Skipped.
func (e *Engine) Delete(target string, sink report.Sink) (*Summary, error) {
	if sink == nil {
		sink = report.Discard
	}
	log := e.logger.With().Str("target", target).Logger()

	if err := e.guard.ValidateDeleteTarget(target); err != nil {
		log.Warn().Err(err).Msg("deletion rejected")
		return nil, err
	}
	// A trailing separator would make Lstat resolve a link to its target
	target = filepath.Clean(target)

	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, target)
		}
		return nil, fmt.Errorf("stat target: %w", err)
	}

	j := newJob(e.maxSkippedItems)
	isDir := info.IsDir()

	if isDir && !e.skipOwnership {
		sink.Status("Taking ownership (this may take a while)...")
		if err := e.reclaimer.Reclaim(target); err != nil {
			log.Warn().Err(err).Msg("ownership reclaim incomplete")
		}
	}

	var files, dirs []walker.Entry
	if isDir {
		sink.Status("Scanning...")
		files, dirs = walker.Split(walker.Walk(target, walker.Options{Workers: e.workers}))
	}
	j.total = uint64(len(files) + len(dirs))
	sink.Status(fmt.Sprintf("Found %d items. Deleting...", j.total))
	log.Info().Int("files", len(files)).Int("dirs", len(dirs)).Msg("deletion started")

	em := &emitter{sink: sink, total: j.total, batch: e.batchSize}
	e.removeFiles(j, files, em)
	e.removeDirs(j, dirs, em)
	rootRemoved := e.finalize(target, log)

	elapsed := time.Since(j.start)
	em.finish()

	skipped := j.skipped.Load()
	status := fmt.Sprintf("Done in %.2fs", elapsed.Seconds())
	if skipped > 0 {
		status += fmt.Sprintf(". Skipped %d items (locked/access denied).", skipped)
	}
	sink.Status(status)

	summary := &Summary{
		Target:       target,
		Total:        j.total,
		Files:        uint64(len(files)),
		Dirs:         uint64(len(dirs)),
		Processed:    j.processed.Load(),
		Skipped:      skipped,
		SkippedItems: j.items(),
		Elapsed:      elapsed,
		RootRemoved:  rootRemoved,
	}
	log.Info().
		Uint64("processed", summary.Processed).
		Uint64("skipped", summary.Skipped).
		Bool("root_removed", rootRemoved).
		Dur("elapsed", elapsed).
		Msg("deletion finished")
	return summary, nil
}

// removeFiles deletes files across a bounded worker pool. Progress is
// emitted when the attempt count hits a batch boundary or the total.
func (e *Engine) removeFiles(j *job, files []walker.Entry, em *emitter) {
	if len(files) == 0 {
		return
	}
	work := make(chan walker.Entry)
	var g errgroup.Group
	for i := 0; i < min(e.workers, len(files)); i++ {
		g.Go(func() error {
			for f := range work {
				e.removeOne(j, f)
				em.advance(f.Name, true)
			}
			return nil
		})
	}
	for _, f := range files {
		work <- f
	}
	close(work)
	_ = g.Wait()
}

// removeDirs deletes directories sequentially, deepest first, so each one
// is already empty when its turn comes.
func (e *Engine) removeDirs(j *job, dirs []walker.Entry, em *emitter) {
	sort.SliceStable(dirs, func(a, b int) bool {
		return dirs[a].Depth > dirs[b].Depth
	})
	for _, d := range dirs {
		e.removeOne(j, d)
		em.advance(d.Name, false)
	}
}

func (e *Engine) removeOne(j *job, entry walker.Entry) {
	_ = e.deleter.ClearReadOnly(entry.Path)
	if err := e.deleter.Remove(entry.Path); err != nil {
		j.skip(entry, err)
		return
	}
	j.processed.Add(1)
}

// finalize removes the target itself if it is still present
func (e *Engine) finalize(target string, log zerolog.Logger) bool {
	if _, err := os.Lstat(target); err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	_ = e.deleter.ClearReadOnly(target)
	if err := e.deleter.Remove(target); err != nil {
		log.Warn().Err(err).Msg("target not removed")
		return false
	}
	return true
}

// emitter counts completed attempts and reports batch boundaries. Counting
// and emitting happen under one lock, so every boundary reaches the sink
// exactly once and current never decreases.
type emitter struct {
	mu        sync.Mutex
	completed uint64
	batch     uint64
	total     uint64
	sink      report.Sink
}

// advance records one attempt on name. With atTotal set, reaching the total
// also emits.
func (em *emitter) advance(name string, atTotal bool) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.completed++
	if em.completed%em.batch == 0 || (atTotal && em.completed == em.total) {
		em.send(em.completed, name, false)
	}
}

// finish emits the closing event
func (em *emitter) finish() {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.send(em.total, DoneMarker, true)
}

func (em *emitter) send(current uint64, name string, done bool) {
	em.sink.Progress(report.ProgressEvent{
		Total:       em.total,
		Current:     current,
		CurrentFile: name,
		Done:        done,
	})
}
