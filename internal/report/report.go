package report

import (
	"sync"

	"github.com/rs/zerolog"
)

// ProgressEvent is a point-in-time snapshot, not a delta
type ProgressEvent struct {
	Total       uint64 `json:"total"`
	Current     uint64 `json:"current"`
	CurrentFile string `json:"current_file"`
	Done        bool   `json:"done,omitempty"`
}

// Sink receives status labels and progress snapshots from a deletion.
// Calls are fire-and-forget. Implementations must be safe for concurrent use
// and must not block for long.
type Sink interface {
	Status(msg string)
	Progress(ev ProgressEvent)
}

type discard struct{}

func (discard) Status(string)         {}
func (discard) Progress(ProgressEvent) {}

// Discard drops every event
var Discard Sink = discard{}

type multi []Sink

// Multi fans every event out to all non-nil sinks in order
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Status(msg string) {
	for _, s := range m {
		s.Status(msg)
	}
}

func (m multi) Progress(ev ProgressEvent) {
	for _, s := range m {
		s.Progress(ev)
	}
}

// Recorder keeps every event it receives, in arrival order
type Recorder struct {
	mu       sync.Mutex
	statuses []string
	progress []ProgressEvent
}

func (r *Recorder) Status(msg string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, msg)
	r.mu.Unlock()
}

func (r *Recorder) Progress(ev ProgressEvent) {
	r.mu.Lock()
	r.progress = append(r.progress, ev)
	r.mu.Unlock()
}

// Statuses returns a copy of the recorded status labels
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// ProgressEvents returns a copy of the recorded progress snapshots
func (r *Recorder) ProgressEvents() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressEvent(nil), r.progress...)
}

// LastStatus returns the most recent status label, or "" if none
func (r *Recorder) LastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

// LogSink writes status labels at info and progress snapshots at debug
type LogSink struct {
	Logger zerolog.Logger
}

// NewLogSink returns a sink tagged with the given component name
func NewLogSink(logger zerolog.Logger, component string) *LogSink {
	return &LogSink{Logger: logger.With().Str("component", component).Logger()}
}

func (l *LogSink) Status(msg string) {
	l.Logger.Info().Msg(msg)
}

func (l *LogSink) Progress(ev ProgressEvent) {
	l.Logger.Debug().
		Uint64("current", ev.Current).
		Uint64("total", ev.Total).
		Str("current_file", ev.CurrentFile).
		Bool("done", ev.Done).
		Msg("progress")
}
