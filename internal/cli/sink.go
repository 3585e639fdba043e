// Package cli renders deletion progress and query results for the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"turbo-delete/internal/report"
)

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConsoleSink prints deletion events. On a terminal it draws a progress
// bar; otherwise it writes one line per event.
type ConsoleSink struct {
	out         io.Writer
	interactive bool

	mu   sync.Mutex
	bar  *pterm.ProgressbarPrinter
	last uint64
}

// NewConsoleSink creates a sink writing to out
func NewConsoleSink(out io.Writer, interactive bool) *ConsoleSink {
	return &ConsoleSink{out: out, interactive: interactive}
}

func (c *ConsoleSink) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.interactive {
		fmt.Fprintln(c.out, msg)
		return
	}
	if c.bar != nil {
		c.bar.UpdateTitle(msg)
		return
	}
	pterm.Info.WithWriter(c.out).Println(msg)
}

func (c *ConsoleSink) Progress(ev report.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.interactive {
		fmt.Fprintf(c.out, "%d/%d %s\n", ev.Current, ev.Total, ev.CurrentFile)
		return
	}

	if c.bar == nil && ev.Total > 0 && !ev.Done {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(int(ev.Total)).
			WithTitle("Deleting").
			WithWriter(c.out).
			WithRemoveWhenDone(true).
			Start()
		if err == nil {
			c.bar = bar
		}
	}
	if c.bar != nil && ev.Current > c.last {
		c.bar.Add(int(ev.Current - c.last))
		c.last = ev.Current
	}
	if ev.Done {
		c.finish()
	}
}

// finish stops the bar; callers hold mu
func (c *ConsoleSink) finish() {
	if c.bar != nil {
		_, _ = c.bar.Stop()
		c.bar = nil
	}
}

// Close stops a progress bar left running
func (c *ConsoleSink) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish()
}

var _ report.Sink = (*ConsoleSink)(nil)
