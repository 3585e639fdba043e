package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turbo-delete/internal/database"
	"turbo-delete/internal/disk"
	"turbo-delete/internal/engine"
	"turbo-delete/internal/listing"
	"turbo-delete/internal/report"
)

func TestPlainSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, false)

	sink.Status("Scanning...")
	sink.Progress(report.ProgressEvent{Total: 250, Current: 100, CurrentFile: "f99.tmp"})
	sink.Progress(report.ProgressEvent{Total: 250, Current: 250, CurrentFile: engine.DoneMarker, Done: true})
	sink.Close()

	assert.Equal(t, "Scanning...\n100/250 f99.tmp\n250/250 Done\n", buf.String())
}

func TestInteractiveSinkDrawsAndStops(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, true)

	sink.Status("Found 3 items. Deleting...")
	assert.Contains(t, buf.String(), "Found 3 items. Deleting...")

	sink.Progress(report.ProgressEvent{Total: 3, Current: 2, CurrentFile: "b"})
	require.NotNil(t, sink.bar)
	assert.Equal(t, uint64(2), sink.last)

	sink.Progress(report.ProgressEvent{Total: 3, Current: 3, CurrentFile: engine.DoneMarker, Done: true})
	assert.Nil(t, sink.bar)
	sink.Close()
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(tt.input), &out, "Delete /tmp/x?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Delete /tmp/x? [y/N]: ", out.String())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("closed") }

func TestConfirmReadError(t *testing.T) {
	_, err := Confirm(failingReader{}, &bytes.Buffer{}, "?")
	assert.Error(t, err)
}

func TestFormatDrives(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatDrives(&buf, []disk.Drive{
		{Name: "sda1", MountPoint: "/", TotalSpace: 100 << 30, AvailableSpace: 25 << 30},
	}))
	out := buf.String()
	assert.Contains(t, out, "MOUNT")
	assert.Contains(t, out, "100 GiB")
	assert.Contains(t, out, "25 GiB")
	assert.Contains(t, out, "75.0%")
}

func TestFormatEntries(t *testing.T) {
	size := uint64(2048)
	var buf bytes.Buffer
	require.NoError(t, FormatEntries(&buf, []listing.Entry{
		{Name: "node_modules", IsDir: true},
		{Name: "index.js", Size: &size},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "node_modules/")
	assert.Contains(t, lines[1], "2.0 KiB")
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	FormatSummary(&buf, &engine.Summary{
		Target: "/data/old", Total: 1500, Files: 1400, Dirs: 100,
		Processed: 1497, Skipped: 3, Elapsed: 1500 * time.Millisecond,
		SkippedItems: []engine.SkippedItem{{Path: "/data/old/a.lock", Kind: "file", Error: "busy"}},
	})
	out := buf.String()
	assert.Contains(t, out, "Removed 1,497 of 1,500 entries (1,400 files, 100 directories) in 1.50s")
	assert.Contains(t, out, "/data/old/a.lock (file): busy")
	assert.Contains(t, out, "... and 2 more")
	assert.Contains(t, out, "/data/old was not removed")

	buf.Reset()
	FormatSummary(&buf, &engine.Summary{Total: 1, Processed: 1, RootRemoved: true})
	assert.NotContains(t, buf.String(), "Skipped")
}

func TestFormatRunsAndStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatRuns(&buf, nil))
	assert.Equal(t, "No runs recorded.\n", buf.String())

	buf.Reset()
	require.NoError(t, FormatRuns(&buf, []database.RunRecord{{
		ID: "r1", StartedAt: time.Now().Add(-time.Hour), Target: "/tmp/x",
		Outcome: database.OutcomePartial, Processed: 12000, Skipped: 2, ElapsedSeconds: 0.5,
	}}))
	assert.Contains(t, buf.String(), "12,000")
	assert.Contains(t, buf.String(), "1 hour ago")

	buf.Reset()
	FormatStats(&buf, 7, &database.RunStats{
		TotalRuns: 2, EntriesRemoved: 10, ByOutcome: map[string]int{database.OutcomeDone: 2},
	})
	assert.Contains(t, buf.String(), "Run Statistics (Last 7 days)")
	assert.Contains(t, buf.String(), "done")

	buf.Reset()
	FormatSkipped(&buf, nil)
	assert.Equal(t, "No skipped entries.\n", buf.String())
}

func TestFormatDatabaseStats(t *testing.T) {
	var buf bytes.Buffer
	FormatDatabaseStats(&buf, "/var/lib/history.db", map[string]interface{}{
		"total_runs":          int64(1500),
		"total_skipped_items": int64(3),
		"database_size_bytes": int64(8192),
	})
	out := buf.String()
	assert.Contains(t, out, "/var/lib/history.db")
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "8.0 KiB")
	assert.NotContains(t, out, "Oldest Run")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
