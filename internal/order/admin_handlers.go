package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aranya-labs/backend-vastra/internal/common"
)

// AdminHandler provides administrative order management endpoints.
type AdminHandler struct {
	Service *Service
}

type patchStatusRequest struct {
	Status string `json:"status"`
}

// PatchStatus handles PATCH /api/v1/admin/orders/{orderId}/status with
// state-machine validation.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	target := Status(req.Status)
	if !target.Valid() || target == StatusPending {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "unsupported status", nil)
		return
	}
	if err := h.Service.Advance(r.Context(), orderID, target); err != nil {
		writeTransitionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type patchItemStatusRequest struct {
	Status string `json:"status"`
	Size   string `json:"size"`
}

// PatchItemStatus handles PATCH /api/v1/admin/orders/{orderId}/items/{productId}/status.
// Lets one item move through the ladder ahead of (or out of step with) the
// rest of the order.
func (h *AdminHandler) PatchItemStatus(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req patchItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	target := Status(req.Status)
	if !target.Valid() || target == StatusPending {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "unsupported status", nil)
		return
	}
	if err := h.Service.AdvanceLine(r.Context(), orderID, productID, req.Size, target); err != nil {
		writeTransitionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "order not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "state transition not allowed", nil)
	default:
		common.WriteError(w, err)
	}
}
