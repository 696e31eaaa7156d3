package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/common"
)

// Handler exposes product reads and the retailer stock endpoint.
type Handler struct {
	Svc *Service
}

// Get returns one product.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	view, err := h.Svc.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// ListByStore returns a store's products.
func (h *Handler) ListByStore(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid store id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	views, err := h.Svc.ListByStore(r.Context(), storeID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// PatchStock updates a product's inventory (retailer surface).
func (h *Handler) PatchStock(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload struct {
		Stock *int32 `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.SetStock(r.Context(), id, payload.Stock); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		default:
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"updated": true}})
}
