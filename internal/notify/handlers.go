package notify

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// Handler serves the retailer's in-app notification feed.
type Handler struct {
	Q *db.Queries
}

// List returns the caller's notifications, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "notification queries not configured", nil)
		return
	}
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	retailerID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	rows, err := h.Q.ListNotificationsForRetailer(r.Context(), retailerID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list notifications", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
