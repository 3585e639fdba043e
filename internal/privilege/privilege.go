// Package privilege grants the current process removal rights over a tree.
package privilege

import (
	"github.com/rs/zerolog"
)

// Reclaimer recursively takes ownership of a tree and grants the current
// principal full control. It is best-effort: a returned error describes
// what could not be reclaimed and is never fatal to a deletion.
type Reclaimer interface {
	Reclaim(path string) error
}

type noop struct{}

func (noop) Reclaim(string) error { return nil }

// Noop does nothing
var Noop Reclaimer = noop{}

// New returns the reclaimer for the host platform
func New(logger zerolog.Logger) Reclaimer {
	return newPlatform(logger.With().Str("component", "privilege").Logger())
}
