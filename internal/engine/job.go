package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"turbo-delete/internal/walker"
)

// job is the transient state of one Delete call. processed counts
// successful removals and skipped counts failures. Attempts are counted by
// the emitter.
type job struct {
	total     uint64
	processed atomic.Uint64
	skipped   atomic.Uint64
	start     time.Time

	mu           sync.Mutex
	maxItems     int
	skippedItems []SkippedItem
}

func newJob(maxItems int) *job {
	return &job{start: time.Now(), maxItems: maxItems}
}

func (j *job) skip(entry walker.Entry, err error) {
	j.skipped.Add(1)
	j.mu.Lock()
	if len(j.skippedItems) < j.maxItems {
		j.skippedItems = append(j.skippedItems, SkippedItem{
			Path:  entry.Path,
			Kind:  entry.Kind.String(),
			Error: err.Error(),
		})
	}
	j.mu.Unlock()
}

func (j *job) items() []SkippedItem {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]SkippedItem(nil), j.skippedItems...)
}
