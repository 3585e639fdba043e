package database

import (
	"database/sql"
	"errors"
	"time"
)

const runColumns = `
	id, started_at, target, outcome, total, files, dirs,
	processed, skipped, elapsed_seconds, root_removed, error_message`

// GetRun returns one run by id
func (d *DeletionDB) GetRun(id string) (*RunRecord, error) {
	records, err := d.queryRuns("SELECT"+runColumns+" FROM runs WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRunNotFound
	}
	return &records[0], nil
}

// GetRecentRuns returns the N most recent runs
func (d *DeletionDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	return d.queryRuns("SELECT"+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ?", limit)
}

// GetRunsByOutcome returns runs with the given outcome
func (d *DeletionDB) GetRunsByOutcome(outcome string, limit int) ([]RunRecord, error) {
	return d.queryRuns("SELECT"+runColumns+" FROM runs WHERE outcome = ? ORDER BY started_at DESC LIMIT ?", outcome, limit)
}

// GetRunsByPath returns runs whose target matches a LIKE pattern
func (d *DeletionDB) GetRunsByPath(pathPattern string, limit int) ([]RunRecord, error) {
	return d.queryRuns("SELECT"+runColumns+" FROM runs WHERE target LIKE ? ORDER BY started_at DESC LIMIT ?", pathPattern, limit)
}

// GetRunsByDateRange returns runs started within a time range
func (d *DeletionDB) GetRunsByDateRange(start, end time.Time) ([]RunRecord, error) {
	return d.queryRuns("SELECT"+runColumns+" FROM runs WHERE started_at BETWEEN ? AND ? ORDER BY started_at DESC",
		start.UTC(), end.UTC())
}

// GetRecentRunsPaginated returns paginated recent runs with total count
func (d *DeletionDB) GetRecentRunsPaginated(limit, offset int) ([]RunRecord, int, error) {
	var totalCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	records, err := d.queryRuns("SELECT"+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?", limit, offset)
	return records, totalCount, err
}

// GetSkippedItems returns the entries a run could not remove
func (d *DeletionDB) GetSkippedItems(runID string) ([]SkippedRecord, error) {
	rows, err := d.db.Query("SELECT run_id, path, kind, error FROM skipped_items WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SkippedRecord
	for rows.Next() {
		var s SkippedRecord
		var errMsg sql.NullString
		if err := rows.Scan(&s.RunID, &s.Path, &s.Kind, &errMsg); err != nil {
			return nil, err
		}
		s.Error = errMsg.String
		items = append(items, s)
	}
	return items, rows.Err()
}

// RunStats holds aggregated statistics
type RunStats struct {
	TotalRuns      int            `json:"total_runs"`
	EntriesRemoved int64          `json:"entries_removed"`
	EntriesSkipped int64          `json:"entries_skipped"`
	TotalSeconds   float64        `json:"total_seconds"`
	ByOutcome      map[string]int `json:"by_outcome"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
}

// GetRunStats returns statistics for runs in the last `days` days
func (d *DeletionDB) GetRunStats(days int) (*RunStats, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	stats := &RunStats{
		StartDate: since,
		EndDate:   now,
		ByOutcome: make(map[string]int),
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(processed), 0),
			COALESCE(SUM(skipped), 0),
			COALESCE(SUM(elapsed_seconds), 0)
		FROM runs
		WHERE started_at >= ?
	`, since).Scan(&stats.TotalRuns, &stats.EntriesRemoved, &stats.EntriesSkipped, &stats.TotalSeconds)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query("SELECT outcome, COUNT(*) FROM runs WHERE started_at >= ? GROUP BY outcome", since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats.ByOutcome[outcome] = count
	}
	return stats, rows.Err()
}

// DeleteOldRecords removes runs older than the given number of days.
// Their skipped items go with them.
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec("DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryRuns executes a runs query and scans the results
func (d *DeletionDB) queryRuns(query string, args ...interface{}) ([]RunRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.StartedAt, &r.Target, &r.Outcome,
			&r.Total, &r.Files, &r.Dirs, &r.Processed, &r.Skipped,
			&r.ElapsedSeconds, &r.RootRemoved, &errMsg,
		)
		if err != nil {
			return nil, err
		}
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}

	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return records, nil
}
