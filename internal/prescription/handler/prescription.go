package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/prescription/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/httputil"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
)

// PrescriptionHandler handles prescription lifecycle endpoints
type PrescriptionHandler struct {
	service *service.PrescriptionService
	logger  *logger.Logger
}

// NewPrescriptionHandler creates a new prescription handler
func NewPrescriptionHandler(svc *service.PrescriptionService, log *logger.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{
		service: svc,
		logger:  log,
	}
}

// Create registers a new prescription in DRAFT
func (h *PrescriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreatePrescriptionInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	detail, err := h.service.Create(r.Context(), &input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, detail)
}

// Verify applies the clinical verification transition
func (h *PrescriptionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.Verify(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Get returns a prescription with items and refills
func (h *PrescriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Hold places a prescription on hold
func (h *PrescriptionHandler) Hold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Reason             string     `json:"reason" validate:"required"`
		ExpectedResolution *time.Time `json:"expected_resolution,omitempty"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	prescription, err := h.service.Hold(r.Context(), id, req.Reason, req.ExpectedResolution)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, prescription)
}

// Resume lifts a hold
func (h *PrescriptionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	prescription, err := h.service.Resume(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, prescription)
}

// Cancel applies the manual terminal transition
func (h *PrescriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	prescription, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, prescription)
}
