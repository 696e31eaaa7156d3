package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// AdminHandler provides retailer/admin order management endpoints.
type AdminHandler struct {
	Q *db.Queries
}

type patchStatusRequest struct {
	Status string `json:"status"`
}

// PatchStatus advances the order along its lifecycle with state-machine
// validation.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	target := strings.TrimSpace(req.Status)
	if target == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status is required", nil)
		return
	}
	if !IsValidStatus(target) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
		return
	}
	o, err := h.Q.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if !CanTransition(o.Status, target) {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "state transition not allowed",
			map[string]any{"from": o.Status, "to": target})
		return
	}
	if err := h.Q.UpdateOrderStatus(r.Context(), o.ID, target); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order status", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": o.ID, "status": target}})
}
