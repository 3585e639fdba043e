// Package listing enumerates a single directory level.
package listing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"turbo-delete/internal/fsops"
)

// ErrPathNotFound is returned when the directory does not exist
var ErrPathNotFound = fsops.ErrPathNotFound

// Entry is one child of a listed directory. Size is nil for directories
// and for entries whose metadata could not be read.
type Entry struct {
	Name  string  `json:"name"`
	Path  string  `json:"path"`
	IsDir bool    `json:"is_dir"`
	Size  *uint64 `json:"size,omitempty"`
}

// ListDir returns the children of path, directories first, then by name
func ListDir(path string) ([]Entry, error) {
	dirents, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		e := Entry{
			Name:  d.Name(),
			Path:  filepath.Join(path, d.Name()),
			IsDir: d.IsDir(),
		}
		if !e.IsDir {
			if info, err := d.Info(); err == nil {
				size := uint64(info.Size())
				e.Size = &size
			}
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
