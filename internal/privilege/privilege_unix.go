//go:build !windows

package privilege

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const ownerRWX = 0o700

type posixReclaimer struct {
	logger   zerolog.Logger
	canChown bool
	uid, gid int
}

func newPlatform(logger zerolog.Logger) Reclaimer {
	return &posixReclaimer{
		logger:   logger,
		canChown: canChown(),
		uid:      os.Getuid(),
		gid:      os.Getgid(),
	}
}

// Reclaim chowns every entry to the current user when the process may do so,
// then adds owner rwx to each directory before it is read so that its
// children can be listed and unlinked.
func (r *posixReclaimer) Reclaim(root string) error {
	var failed int
	var firstErr error
	note := func(err error) {
		failed++
		if firstErr == nil {
			firstErr = err
		}
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			note(err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if r.canChown {
			if err := os.Lchown(path, r.uid, r.gid); err != nil {
				note(err)
			}
		}
		if d.IsDir() {
			if err := addOwnerRWX(path); err != nil {
				note(err)
			}
		}
		return nil
	})
	if walkErr != nil {
		note(walkErr)
	}

	if failed > 0 {
		r.logger.Debug().Str("path", root).Int("failed", failed).Msg("ownership reclaim incomplete")
		return fmt.Errorf("reclaim %s: %d entries not reclaimed: %w", root, failed, firstErr)
	}
	return nil
}

func addOwnerRWX(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode&ownerRWX == ownerRWX {
		return nil
	}
	return os.Chmod(path, mode|ownerRWX)
}
