package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc *Service
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "user identity required", nil)
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func itemView(it db.CartItem) map[string]any {
	return map[string]any{
		"id":        it.ID,
		"productId": it.ProductID,
		"storeId":   it.StoreID,
		"title":     it.Title,
		"qty":       it.Qty,
		"unitPrice": it.UnitPrice,
		"mrp":       it.MRP,
		"subtotal":  int64(it.Qty) * it.UnitPrice,
	}
}

// Get returns the cart contents.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	c, items, err := h.Svc.Snapshot(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load cart", nil)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for _, it := range items {
		views = append(views, itemView(it))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"cartId": c.ID,
		"items":  views,
	}})
}

// AddItem adds a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID string `json:"productId"`
		Qty       int32  `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	productID, err := uuid.Parse(strings.TrimSpace(payload.ProductID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid productId", nil)
		return
	}
	if payload.Qty == 0 {
		payload.Qty = 1
	}
	line, err := h.Svc.AddItem(r.Context(), userID, productID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": itemView(line)})
}

// UpdateItem changes a line's quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	var payload struct {
		Qty int32 `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.UpdateQty(r.Context(), userID, itemID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"updated": true}})
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), userID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"removed": true}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
