// Package walker enumerates every descendant of a deletion target.
package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Kind tags a walked node
type Kind int

const (
	File Kind = iota
	Dir
)

func (k Kind) String() string {
	if k == Dir {
		return "directory"
	}
	return "file"
}

// Entry is one discovered filesystem node. Depth is 1 for direct children of the root.
type Entry struct {
	Path  string
	Name  string
	Depth int
	Kind  Kind
}

// Options controls walk parallelism
type Options struct {
	// Workers bounds the number of directories read concurrently.
	// Zero means runtime.NumCPU().
	Workers int
}

type collector struct {
	mu      sync.Mutex
	entries []Entry
}

func (c *collector) add(batch []Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, batch...)
	c.mu.Unlock()
}

// Walk returns every descendant of root, unordered. The root itself is not
// included. Links and reparse points are reported as files and never
// followed. Hidden entries are included. Directories that cannot be read
// contribute whatever entries were read before the failure.
func Walk(root string, opts Options) []Entry {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	root = filepath.Clean(root)
	info, err := os.Lstat(root)
	if err != nil || !info.IsDir() {
		return nil
	}

	c := &collector{}
	var g errgroup.Group
	g.SetLimit(workers)

	var visit func(dir string, depth int)
	visit = func(dir string, depth int) {
		dirents, _ := os.ReadDir(dir)
		if len(dirents) == 0 {
			return
		}

		batch := make([]Entry, 0, len(dirents))
		for _, d := range dirents {
			e := Entry{
				Path:  filepath.Join(dir, d.Name()),
				Name:  d.Name(),
				Depth: depth,
				Kind:  File,
			}
			if d.IsDir() {
				e.Kind = Dir
			}
			batch = append(batch, e)
		}
		c.add(batch)

		for _, e := range batch {
			if e.Kind != Dir {
				continue
			}
			sub := e.Path
			// Fall back to reading inline when every worker slot is busy so
			// a goroutine never waits on a slot held by its own ancestors.
			if !g.TryGo(func() error {
				visit(sub, depth+1)
				return nil
			}) {
				visit(sub, depth+1)
			}
		}
	}

	g.Go(func() error {
		visit(root, 1)
		return nil
	})
	_ = g.Wait()

	return c.entries
}

// Split partitions entries into files and directories
func Split(entries []Entry) (files, dirs []Entry) {
	for _, e := range entries {
		if e.Kind == Dir {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	return files, dirs
}
