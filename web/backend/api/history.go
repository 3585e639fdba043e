package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"turbo-delete/internal/database"
	"turbo-delete/web/backend/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
	defaultStatDays = 7
)

// HistoryStore is the read side of the run history
type HistoryStore interface {
	GetRun(id string) (*database.RunRecord, error)
	GetRecentRunsPaginated(limit, offset int) ([]database.RunRecord, int, error)
	GetRunsByOutcome(outcome string, limit int) ([]database.RunRecord, error)
	GetRunsByPath(pathPattern string, limit int) ([]database.RunRecord, error)
	GetSkippedItems(runID string) ([]database.SkippedRecord, error)
	GetRunStats(days int) (*database.RunStats, error)
	DeleteOldRecords(olderThanDays int) (int64, error)
}

// HistoryResponse is the API response for run history
type HistoryResponse struct {
	Runs       []database.RunRecord `json:"runs"`
	TotalCount int                  `json:"total_count"`
	PageSize   int                  `json:"page_size"`
	Page       int                  `json:"page"`
	HasMore    bool                 `json:"has_more"`
}

// RunDetail is a run with the entries it could not remove
type RunDetail struct {
	database.RunRecord
	SkippedItems []database.SkippedRecord `json:"skipped_items"`
}

// HistoryHandler handles GET /history. Filters: outcome, path (LIKE pattern).
func (h *Handlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	q := r.URL.Query()
	limit := positiveInt(q.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := positiveInt(q.Get("page"), 1)
	offset := (page - 1) * limit

	var (
		runs  []database.RunRecord
		total int
		err   error
	)
	switch {
	case q.Get("outcome") != "":
		runs, err = h.History.GetRunsByOutcome(q.Get("outcome"), limit)
		total, page, offset = len(runs), 1, 0
	case q.Get("path") != "":
		runs, err = h.History.GetRunsByPath(q.Get("path"), limit)
		total, page, offset = len(runs), 1, 0
	default:
		runs, total, err = h.History.GetRecentRunsPaginated(limit, offset)
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("query history")
		respondError(w, "failed to query history", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []database.RunRecord{}
	}

	respondJSON(w, HistoryResponse{
		Runs:       runs,
		TotalCount: total,
		PageSize:   limit,
		Page:       page,
		HasMore:    offset+len(runs) < total,
	}, http.StatusOK)
}

// RunHandler handles GET /history/{id}
func (h *Handlers) RunHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	id := mux.Vars(r)["id"]
	run, err := h.History.GetRun(id)
	if errors.Is(err, database.ErrRunNotFound) {
		respondError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Str("run_id", id).Msg("get run")
		respondError(w, "failed to query history", http.StatusInternalServerError)
		return
	}

	skipped, err := h.History.GetSkippedItems(id)
	if err != nil {
		h.Logger.Error().Err(err).Str("run_id", id).Msg("get skipped items")
		respondError(w, "failed to query history", http.StatusInternalServerError)
		return
	}
	if skipped == nil {
		skipped = []database.SkippedRecord{}
	}
	respondJSON(w, RunDetail{RunRecord: *run, SkippedItems: skipped}, http.StatusOK)
}

// StatsHandler handles GET /history/stats?days=
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	stats, err := h.History.GetRunStats(positiveInt(r.URL.Query().Get("days"), defaultStatDays))
	if err != nil {
		h.Logger.Error().Err(err).Msg("run stats")
		respondError(w, "failed to query history", http.StatusInternalServerError)
		return
	}
	respondJSON(w, stats, http.StatusOK)
}

// PurgeHandler handles POST /history/purge?days= and removes older runs
func (h *Handlers) PurgeHandler(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}

	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days < 1 {
		respondError(w, "days must be a positive integer", http.StatusBadRequest)
		return
	}

	removed, err := h.History.DeleteOldRecords(days)
	if err != nil {
		h.Logger.Error().Err(err).Msg("purge history")
		respondError(w, "failed to purge history", http.StatusInternalServerError)
		return
	}
	h.Logger.Info().Int64("removed", removed).Int("older_than_days", days).Str("user", username(r)).Msg("history purged")
	respondJSON(w, map[string]int64{"removed": removed}, http.StatusOK)
}

func (h *Handlers) requireHistory(w http.ResponseWriter) bool {
	if h.History == nil {
		respondError(w, "run history is not available", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func positiveInt(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}

func username(r *http.Request) string {
	if claims, ok := middleware.GetClaims(r); ok {
		return claims.Username
	}
	return ""
}
