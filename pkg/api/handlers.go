package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/ethpandaops/runmonitor/pkg/status"
	"github.com/ethpandaops/runmonitor/pkg/store"
	"github.com/go-chi/chi/v5"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// runRow is a run as shown in the history table and the metrics panel.
// Status is re-derived from the stored counts.
type runRow struct {
	ID           uint          `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Status       status.Status `json:"status"`
	TotalRecords int           `json:"total_records"`
	OKRecords    int           `json:"ok_records"`
	WarnRecords  int           `json:"warn_records"`
	FailRecords  int           `json:"fail_records"`
}

// recordRow is a record as shown in the run detail table.
type recordRow struct {
	ID        uint          `json:"id"`
	RunID     uint          `json:"run_id"`
	SourceID  string        `json:"source_id"`
	Value     float64       `json:"value"`
	Status    status.Status `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// createRunRequest overrides the configured generation parameters.
// Omitted fields keep their configured value.
type createRunRequest struct {
	MinRecords *int     `json:"min_records,omitempty"`
	MaxRecords *int     `json:"max_records,omitempty"`
	OKRatio    *float64 `json:"ok_ratio,omitempty"`
	WarnRatio  *float64 `json:"warn_ratio,omitempty"`
}

type createRunResponse struct {
	Run     runRow `json:"run"`
	Records int    `json:"records"`
}

func newRunRow(id uint, summary *generator.RunSummary) runRow {
	return runRow{
		ID:           id,
		Timestamp:    summary.CreatedAt,
		Status:       status.ForRun(summary.OKRecords, summary.FailRecords),
		TotalRecords: summary.TotalRecords,
		OKRecords:    summary.OKRecords,
		WarnRecords:  summary.WarnRecords,
		FailRecords:  summary.FailRecords,
	}
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// writeError maps error kinds onto HTTP status codes.
func (s *server) writeError(w http.ResponseWriter, msg string, err error) {
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, generator.ErrInvalidParameter):
		code = http.StatusBadRequest
	case errors.Is(err, store.ErrStorage):
		s.log.WithError(err).Warn(msg)
	default:
		s.log.WithError(err).Error(msg)
	}

	writeJSON(w, code, errorResponse{msg + ": " + err.Error()})
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns returns the most recent runs, newest first.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"limit must be a positive integer"})

			return
		}

		limit = n
	}

	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, "listing runs", err)

		return
	}

	rows := make([]runRow, 0, len(runs))
	for i := range runs {
		rows = append(rows, newRunRow(runs[i].ID, &runs[i].RunSummary))
	}

	writeJSON(w, http.StatusOK, rows)
}

// handleLatestRun returns the newest run.
func (s *server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.GetLatestRun(r.Context())
	if err != nil {
		s.writeError(w, "getting latest run", err)

		return
	}

	if latest == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{"no runs recorded"})

		return
	}

	writeJSON(w, http.StatusOK, newRunRow(latest.ID, &latest.RunSummary))
}

// handleListRecords returns the records of a run in generation order.
// Unknown runs yield an empty list.
func (s *server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"run id must be a positive integer"})

		return
	}

	records, err := s.store.ListRecords(r.Context(), uint(id))
	if err != nil {
		s.writeError(w, "listing records", err)

		return
	}

	rows := make([]recordRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, recordRow{
			ID:        rec.ID,
			RunID:     rec.RunID,
			SourceID:  rec.SourceID,
			Value:     rec.Value,
			Status:    rec.Status,
			Timestamp: rec.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, rows)
}

// handleCreateRun triggers a simulation run and persists it.
func (s *server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body: " + err.Error()})

		return
	}

	params := req.apply(s.defaults)

	res, err := s.sim.RunOnce(r.Context(), params)
	if err != nil {
		s.writeError(w, "running simulation", err)

		return
	}

	writeJSON(w, http.StatusCreated, createRunResponse{
		Run:     newRunRow(res.RunID, &res.Summary),
		Records: len(res.Records),
	})
}

func (req *createRunRequest) apply(p generator.Params) generator.Params {
	if req.MinRecords != nil {
		p.MinRecords = *req.MinRecords
	}

	if req.MaxRecords != nil {
		p.MaxRecords = *req.MaxRecords
	}

	if req.OKRatio != nil {
		p.OKRatio = *req.OKRatio
	}

	if req.WarnRatio != nil {
		p.WarnRatio = *req.WarnRatio
	}

	return p
}
