package handler

import (
	"net/http"
	"strconv"

	"github.com/DikshantJangra/hoperxpharma-sub019/internal/inventory/service"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/errors"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/httputil"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
)

// FEFOHandler serves advisory batch recommendations
type FEFOHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewFEFOHandler creates a new FEFO handler
func NewFEFOHandler(svc *service.InventoryService, log *logger.Logger) *FEFOHandler {
	return &FEFOHandler{
		service: svc,
		logger:  log,
	}
}

// Recommend handles GET /fefo/recommend?drugId=&quantity=
// The quantity is in base units; callers resolve display units first.
func (h *FEFOHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	drugID := r.URL.Query().Get("drugId")
	if drugID == "" {
		httputil.Error(w, errors.Validation(map[string]string{
			"drugId": "is required",
		}))
		return
	}

	rawQty := r.URL.Query().Get("quantity")
	quantity, err := strconv.ParseInt(rawQty, 10, 64)
	if err != nil || quantity <= 0 {
		httputil.Error(w, errors.Validation(map[string]string{
			"quantity": "must be a positive integer",
		}))
		return
	}

	rec, err := h.service.Recommend(r.Context(), drugID, quantity)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

func badDaysParam() error {
	return errors.Validation(map[string]string{
		"days": "must be a positive integer",
	})
}
