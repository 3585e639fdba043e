package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Deletion subsystem metrics
var (
	// DeletionDuration tracks wall-clock time of whole deletions
	DeletionDuration prometheus.Histogram

	// DeletionEntries tracks how many entries each deletion walked
	DeletionEntries prometheus.Histogram

	// DeletionsTotal counts deletion requests by outcome
	// (done, partial, rejected, not_found, failed)
	DeletionsTotal *prometheus.CounterVec

	// EntriesRemovedTotal counts successfully removed entries
	EntriesRemovedTotal prometheus.Counter

	// EntriesSkippedTotal counts entries whose removal failed
	EntriesSkippedTotal prometheus.Counter

	// LastRunTimestamp records the Unix time the last deletion finished
	LastRunTimestamp prometheus.Gauge

	// JobsActive tracks deletions currently running
	JobsActive prometheus.Gauge
)

func initDeletionMetrics() {
	DeletionDuration = NewDurationHistogram(
		"turbodelete_deletion_duration_seconds",
		"Duration of deletions in seconds.",
	)

	DeletionEntries = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "turbodelete_deletion_entries",
		Help:    "Number of entries found under each deletion target.",
		Buckets: EntryBuckets,
	})

	DeletionsTotal = NewCounterVec(
		"turbodelete_deletions_total",
		"Total deletion requests by outcome.",
		[]string{"outcome"},
	)

	EntriesRemovedTotal = NewCounter(
		"turbodelete_entries_removed_total",
		"Total files and directories removed.",
	)

	EntriesSkippedTotal = NewCounter(
		"turbodelete_entries_skipped_total",
		"Total files and directories that could not be removed.",
	)

	LastRunTimestamp = NewGauge(
		"turbodelete_last_run_timestamp",
		"Timestamp of the last finished deletion (Unix epoch seconds).",
	)

	JobsActive = NewGauge(
		"turbodelete_jobs_active",
		"Number of deletions currently running.",
	)
}

func registerDeletionMetrics() {
	prometheus.MustRegister(DeletionDuration)
	prometheus.MustRegister(DeletionEntries)
	prometheus.MustRegister(DeletionsTotal)
	prometheus.MustRegister(EntriesRemovedTotal)
	prometheus.MustRegister(EntriesSkippedTotal)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(JobsActive)
}

// RecordDeletion updates all deletion metrics for one finished run
func RecordDeletion(outcome string, total, removed, skipped uint64, elapsed time.Duration) {
	DeletionsTotal.WithLabelValues(outcome).Inc()
	DeletionDuration.Observe(elapsed.Seconds())
	DeletionEntries.Observe(float64(total))
	EntriesRemovedTotal.Add(float64(removed))
	EntriesSkippedTotal.Add(float64(skipped))
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordOutcome counts a request that never reached the delete phases
func RecordOutcome(outcome string) {
	DeletionsTotal.WithLabelValues(outcome).Inc()
}
