package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"turbo-delete/internal/database"
	"turbo-delete/internal/disk"
	"turbo-delete/internal/engine"
	"turbo-delete/internal/listing"
)

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatDrives prints one row per drive
func FormatDrives(w io.Writer, drives []disk.Drive) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MOUNT\tNAME\tSIZE\tFREE\tUSED")
	for _, d := range drives {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\n",
			d.MountPoint, d.Name,
			humanize.IBytes(d.TotalSpace), humanize.IBytes(d.AvailableSpace),
			d.UsedPercent())
	}
	return tw.Flush()
}

// FormatEntries prints a directory listing
func FormatEntries(w io.Writer, entries []listing.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		size := "-"
		name := e.Name
		if e.IsDir {
			name += "/"
		} else if e.Size != nil {
			size = humanize.IBytes(*e.Size)
		}
		fmt.Fprintf(tw, "%s\t%s\n", size, name)
	}
	return tw.Flush()
}

// FormatSummary prints the result of one deletion
func FormatSummary(w io.Writer, s *engine.Summary) {
	fmt.Fprintf(w, "Removed %s of %s entries (%s files, %s directories) in %.2fs\n",
		humanize.Comma(int64(s.Processed)), humanize.Comma(int64(s.Total)),
		humanize.Comma(int64(s.Files)), humanize.Comma(int64(s.Dirs)), s.Seconds())
	if s.Skipped == 0 {
		return
	}
	fmt.Fprintf(w, "Skipped %s entries:\n", humanize.Comma(int64(s.Skipped)))
	for _, it := range s.SkippedItems {
		fmt.Fprintf(w, "  %s (%s): %s\n", it.Path, it.Kind, it.Error)
	}
	if hidden := int(s.Skipped) - len(s.SkippedItems); hidden > 0 {
		fmt.Fprintf(w, "  ... and %s more\n", humanize.Comma(int64(hidden)))
	}
	if !s.RootRemoved {
		fmt.Fprintf(w, "%s was not removed\n", s.Target)
	}
}

// FormatRuns prints run history rows
func FormatRuns(w io.Writer, runs []database.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tOUTCOME\tREMOVED\tSKIPPED\tTIME\tTARGET\tID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2fs\t%s\t%s\n",
			humanize.Time(r.StartedAt), r.Outcome,
			humanize.Comma(r.Processed), humanize.Comma(r.Skipped),
			r.ElapsedSeconds, r.Target, r.ID)
	}
	return tw.Flush()
}

// FormatStats prints aggregated history statistics
func FormatStats(w io.Writer, days int, s *database.RunStats) {
	fmt.Fprintf(w, "Run Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", s.StartDate.Format(time.DateOnly), s.EndDate.Format(time.DateOnly))
	fmt.Fprintf(w, "Total Runs:       %s\n", humanize.Comma(int64(s.TotalRuns)))
	fmt.Fprintf(w, "Entries Removed:  %s\n", humanize.Comma(s.EntriesRemoved))
	fmt.Fprintf(w, "Entries Skipped:  %s\n", humanize.Comma(s.EntriesSkipped))
	fmt.Fprintf(w, "Time Spent:       %.2fs\n", s.TotalSeconds)
	if len(s.ByOutcome) == 0 {
		return
	}
	fmt.Fprintln(w, "\nBy Outcome:")
	for _, outcome := range []string{
		database.OutcomeDone, database.OutcomePartial, database.OutcomeRejected,
		database.OutcomeNotFound, database.OutcomeFailed,
	} {
		if n, ok := s.ByOutcome[outcome]; ok {
			fmt.Fprintf(w, "  %-10s %d\n", outcome, n)
		}
	}
}

// FormatSkipped prints the entries a run could not remove
func FormatSkipped(w io.Writer, items []database.SkippedRecord) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No skipped entries.")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "%s (%s): %s\n", it.Path, it.Kind, it.Error)
	}
}

// FormatDatabaseStats prints the size and record range of the history database
func FormatDatabaseStats(w io.Writer, path string, stats map[string]interface{}) {
	fmt.Fprintf(w, "Database:       %s\n", path)
	if n, ok := stats["total_runs"].(int64); ok {
		fmt.Fprintf(w, "Runs:           %s\n", humanize.Comma(n))
	}
	if n, ok := stats["total_skipped_items"].(int64); ok {
		fmt.Fprintf(w, "Skipped Items:  %s\n", humanize.Comma(n))
	}
	if n, ok := stats["database_size_bytes"].(int64); ok && n >= 0 {
		fmt.Fprintf(w, "Size:           %s\n", humanize.IBytes(uint64(n)))
	}
	if t, ok := stats["oldest_record"].(time.Time); ok {
		fmt.Fprintf(w, "Oldest Run:     %s\n", t.Local().Format(time.DateTime))
	}
	if t, ok := stats["newest_record"].(time.Time); ok {
		fmt.Fprintf(w, "Newest Run:     %s\n", t.Local().Format(time.DateTime))
	}
}
