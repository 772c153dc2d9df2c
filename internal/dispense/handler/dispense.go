package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/dispense/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/httputil"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
)

const defaultStatsWindowDays = 30

// DispenseHandler handles dispense workflow endpoints
type DispenseHandler struct {
	service *service.DispenseService
	logger  *logger.Logger
}

// NewDispenseHandler creates a new dispense handler
func NewDispenseHandler(svc *service.DispenseService, log *logger.Logger) *DispenseHandler {
	return &DispenseHandler{
		service: svc,
		logger:  log,
	}
}

// Create opens a dispense event against a refill
func (h *DispenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateDispenseInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	event, err := h.service.Create(r.Context(), &input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, event)
}

// Get returns an event with its lines and deviations
func (h *DispenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Scan records a barcode scan against an open event
func (h *DispenseHandler) Scan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.ScanInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	event, err := h.service.Scan(r.Context(), id, &input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, event)
}

// Release applies the pharmacist visual check gate
func (h *DispenseHandler) Release(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		VisualCheckConfirmed bool `json:"visual_check_confirmed"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	event, err := h.service.Release(r.Context(), id, req.VisualCheckConfirmed)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, event)
}

// Complete commits a released event
func (h *DispenseHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.CompleteInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Complete(r.Context(), id, &input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Cancel aborts a non-terminal event
func (h *DispenseHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	event, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, event)
}

// Workbench returns the store's open events grouped by workflow step
func (h *DispenseHandler) Workbench(w http.ResponseWriter, r *http.Request) {
	wb, err := h.service.GetWorkbench(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, wb)
}

// DeviationStats reports FEFO adherence over a window (?days=, default 30)
func (h *DispenseHandler) DeviationStats(w http.ResponseWriter, r *http.Request) {
	days := defaultStatsWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.Error(w, errors.Validation(map[string]string{
				"days": "must be a positive integer",
			}))
			return
		}
		days = parsed
	}

	stats, err := h.service.DeviationStats(r.Context(), time.Now().AddDate(0, 0, -days))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}
