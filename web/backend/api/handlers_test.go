package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turbo-delete/internal/database"
	"turbo-delete/internal/disk"
	"turbo-delete/internal/listing"
	"turbo-delete/internal/metrics"
)

type fakeHistory struct {
	runs []database.RunRecord
	err  error
}

func (f *fakeHistory) GetRun(id string) (*database.RunRecord, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, database.ErrRunNotFound
}

func (f *fakeHistory) GetRecentRunsPaginated(limit, offset int) ([]database.RunRecord, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	end := min(offset+limit, len(f.runs))
	if offset >= end {
		return nil, len(f.runs), nil
	}
	return f.runs[offset:end], len(f.runs), nil
}

func (f *fakeHistory) GetRunsByOutcome(outcome string, limit int) ([]database.RunRecord, error) {
	var out []database.RunRecord
	for _, r := range f.runs {
		if r.Outcome == outcome && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeHistory) GetRunsByPath(string, int) ([]database.RunRecord, error) { return nil, f.err }

func (f *fakeHistory) GetSkippedItems(string) ([]database.SkippedRecord, error) { return nil, f.err }

func (f *fakeHistory) GetRunStats(days int) (*database.RunStats, error) {
	return &database.RunStats{TotalRuns: len(f.runs)}, f.err
}

func (f *fakeHistory) DeleteOldRecords(int) (int64, error) { return 0, f.err }

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDrivesHandler(t *testing.T) {
	metrics.Init()
	h := &Handlers{Logger: zerolog.Nop(), Drives: func() ([]disk.Drive, error) {
		return []disk.Drive{{Name: "data", MountPoint: "/srv/data", TotalSpace: 1000, AvailableSpace: 250}}, nil
	}}

	rec := serve(h.DrivesHandler, "/api/v1/drives")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"data","mount_point":"/srv/data","total_space":1000,"available_space":250}]`, rec.Body.String())
	assert.Equal(t, 75.0, testutil.ToFloat64(metrics.DriveUsedPercent.WithLabelValues("/srv/data")))

	h.Drives = func() ([]disk.Drive, error) { return nil, errors.New("statfs failed") }
	rec = serve(h.DrivesHandler, "/api/v1/drives")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListHandlerErrors(t *testing.T) {
	h := &Handlers{Logger: zerolog.Nop(), List: func(string) ([]listing.Entry, error) {
		return nil, errors.New("permission denied")
	}}
	rec := serve(h.ListHandler, "/api/v1/list?path=/root")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "permission denied", body.Message)

	h.List = func(string) ([]listing.Entry, error) { return nil, nil }
	rec = serve(h.ListHandler, "/api/v1/list?path=/empty")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"/empty","entries":[]}`, rec.Body.String())
}

func TestHistoryUnavailable(t *testing.T) {
	h := &Handlers{Logger: zerolog.Nop()}
	for _, fn := range []http.HandlerFunc{h.HistoryHandler, h.StatsHandler, h.RunHandler, h.PurgeHandler} {
		assert.Equal(t, http.StatusServiceUnavailable, serve(fn, "/api/v1/history").Code)
	}
}

func TestHistoryPagination(t *testing.T) {
	store := &fakeHistory{}
	for i := 0; i < 5; i++ {
		store.runs = append(store.runs, database.RunRecord{
			ID:        string(rune('a' + i)),
			StartedAt: time.Now(),
			Outcome:   database.OutcomeDone,
		})
	}
	store.runs[4].Outcome = database.OutcomePartial
	h := &Handlers{Logger: zerolog.Nop(), History: store}

	decode := func(rec *httptest.ResponseRecorder) HistoryResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code)
		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := decode(serve(h.HistoryHandler, "/api/v1/history?limit=2&page=2"))
	assert.Equal(t, 5, resp.TotalCount)
	assert.Equal(t, 2, resp.Page)
	assert.True(t, resp.HasMore)
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "c", resp.Runs[0].ID)

	resp = decode(serve(h.HistoryHandler, "/api/v1/history?limit=2&page=3"))
	assert.False(t, resp.HasMore)
	assert.Len(t, resp.Runs, 1)

	resp = decode(serve(h.HistoryHandler, "/api/v1/history?limit=bogus"))
	assert.Equal(t, defaultPageSize, resp.PageSize)

	resp = decode(serve(h.HistoryHandler, "/api/v1/history?outcome=partial"))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "e", resp.Runs[0].ID)

	store.err = errors.New("database is locked")
	assert.Equal(t, http.StatusInternalServerError, serve(h.HistoryHandler, "/api/v1/history").Code)
}
