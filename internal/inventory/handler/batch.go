package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/httputil"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
)

// BatchHandler handles batch ledger endpoints
type BatchHandler struct {
	service           *service.InventoryService
	expiryWarningDays int
	logger            *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.InventoryService, expiryWarningDays int, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service:           svc,
		expiryWarningDays: expiryWarningDays,
		logger:            log,
	}
}

// Receive receives a new batch into stock
func (h *BatchHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var input service.ReceiveBatchInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.ReceiveBatch(r.Context(), &input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// ListByDrug lists ACTIVE in-stock batches for a drug in FEFO order
func (h *BatchHandler) ListByDrug(w http.ResponseWriter, r *http.Request) {
	drugID := chi.URLParam(r, "drugId")

	batches, err := h.service.ListBatchesForDrug(r.Context(), drugID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// ChangeStatus applies a manual batch status transition
func (h *BatchHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status" validate:"required,oneof=ACTIVE QUARANTINED RECALLED RESERVED"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.ChangeBatchStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Expiring lists batches expiring within the warning window.
// An optional ?days= overrides the configured default.
func (h *BatchHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := h.expiryWarningDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.Error(w, badDaysParam())
			return
		}
		days = parsed
	}

	batches, err := h.service.ExpiringBatches(r.Context(), days)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}
