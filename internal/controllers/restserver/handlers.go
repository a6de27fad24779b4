package restserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chrissnell/gravnoise/internal/storage"
	"github.com/chrissnell/gravnoise/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// RunsResponse lists run summaries.
type RunsResponse struct {
	Runs []storage.Run `json:"runs"`
}

// PSDResponse carries the representative spectrum of a run.
type PSDResponse struct {
	ID       uuid.UUID        `json:"id"`
	Selected []int            `json:"selected"`
	PSD      []storage.PSDBin `json:"psd"`
}

// DaysResponse carries the per-day noise table of a run.
type DaysResponse struct {
	ID       uuid.UUID           `json:"id"`
	Selected []int               `json:"selected"`
	Days     []storage.DayRecord `json:"days"`
}

// HealthResponse reports the state of every storage backend.
type HealthResponse struct {
	Status   string                         `json:"status"`
	Backends map[string]*storage.HealthData `json:"backends"`
}

// ListRuns handles GET /runs
func (h *Handlers) ListRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := h.controller.store.ListRuns(req.Context())
	if err != nil {
		h.controller.logger.Errorw("could not list runs", "error", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, RunsResponse{Runs: runs})
}

// GetRun handles GET /runs/{id}
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	run, ok := h.loadRun(w, req)
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, run)
}

// GetRunPSD handles GET /runs/{id}/psd
func (h *Handlers) GetRunPSD(w http.ResponseWriter, req *http.Request) {
	run, ok := h.loadRun(w, req)
	if !ok {
		return
	}
	psd := run.PSD
	if psd == nil {
		psd = []storage.PSDBin{}
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, PSDResponse{ID: run.ID, Selected: run.Selected, PSD: psd})
}

// GetRunDays handles GET /runs/{id}/days
func (h *Handlers) GetRunDays(w http.ResponseWriter, req *http.Request) {
	run, ok := h.loadRun(w, req)
	if !ok {
		return
	}
	days := run.Records
	if days == nil {
		days = []storage.DayRecord{}
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, DaysResponse{ID: run.ID, Selected: run.Selected, Days: days})
}

// GetHealth handles GET /health. It probes every store that can check its
// own health and reports 503 when any backend is unhealthy.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	hm := h.controller.health

	if checker, ok := h.controller.store.(storage.HealthChecker); ok {
		hm.UpdateHealth("store", checker.CheckHealth(req.Context()))
	}

	resp := HealthResponse{Status: storage.StatusHealthy, Backends: hm.GetAllHealth()}
	status := http.StatusOK
	for _, b := range resp.Backends {
		if b.Status != storage.StatusHealthy {
			resp.Status = storage.StatusUnhealthy
			status = http.StatusServiceUnavailable
		}
	}
	h.formatter.WriteResponse(w, req, status, resp)
}

// loadRun resolves the {id} path variable. It writes the error response
// itself and reports whether the caller should continue.
func (h *Handlers) loadRun(w http.ResponseWriter, req *http.Request) (*storage.Run, bool) {
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid run id")
		return nil, false
	}

	run, err := h.controller.store.GetRun(req.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		h.formatter.WriteError(w, req, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		h.controller.logger.Errorw("could not load run", "id", id, "error", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "could not load run")
		return nil, false
	}
	return run, true
}
