package offer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// Handler exposes seller-facing offer management endpoints.
type Handler struct {
	Q *db.Queries
}

var validate = validator.New()

type offerPayload struct {
	StoreID       string   `json:"storeId" validate:"required,uuid"`
	Label         string   `json:"label" validate:"required,max=120"`
	Kind          string   `json:"kind" validate:"required,oneof=percentage_discount flat_discount buy_one_get_one"`
	PercentBps    int32    `json:"percentBps" validate:"gte=0,lte=10000"`
	FlatAmount    int64    `json:"flatAmount" validate:"gte=0"`
	MinOrderValue int64    `json:"minOrderValue" validate:"gte=0"`
	ProductIDs    []string `json:"productIds" validate:"dive,uuid"`
}

// List returns a store's active offers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "offer queries not configured", nil)
		return
	}
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid store id", nil)
		return
	}
	offers, err := h.Q.ListActiveOffersByStore(r.Context(), storeID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list offers", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": offers})
}

// Create saves a new promotion for a store.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "offer queries not configured", nil)
		return
	}
	var payload offerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"error": err.Error()})
		return
	}
	row, err := buildOfferRow(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	id, err := h.Q.InsertStoreOffer(r.Context(), row)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create offer", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": id}})
}

// Delete soft-deletes an offer so it stops applying to new quotes.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "offer queries not configured", nil)
		return
	}
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid store id", nil)
		return
	}
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid offer id", nil)
		return
	}
	if err := h.Q.SoftDeleteStoreOffer(r.Context(), offerID, storeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "offer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete offer", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildOfferRow(payload offerPayload) (db.StoreOffer, error) {
	storeID, err := uuid.Parse(strings.TrimSpace(payload.StoreID))
	if err != nil {
		return db.StoreOffer{}, errors.New("invalid storeId")
	}
	label := strings.TrimSpace(payload.Label)
	if label == "" {
		return db.StoreOffer{}, errors.New("label is required")
	}
	row := db.StoreOffer{
		StoreID:       storeID,
		Label:         label,
		Kind:          payload.Kind,
		MinOrderValue: payload.MinOrderValue,
	}
	switch Kind(payload.Kind) {
	case KindPercentage:
		if payload.PercentBps <= 0 || payload.PercentBps > 10000 {
			return db.StoreOffer{}, errors.New("percentBps must be in (0, 10000]")
		}
		row.PercentBps = payload.PercentBps
	case KindFlat:
		if payload.FlatAmount <= 0 {
			return db.StoreOffer{}, errors.New("flatAmount must be positive")
		}
		row.FlatAmount = payload.FlatAmount
	case KindBOGO:
		if len(payload.ProductIDs) == 0 {
			return db.StoreOffer{}, errors.New("productIds are required for buy-one-get-one offers")
		}
		for _, raw := range payload.ProductIDs {
			parsed, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return db.StoreOffer{}, errors.New("invalid product id")
			}
			row.ProductIDs = append(row.ProductIDs, parsed)
		}
	default:
		return db.StoreOffer{}, errors.New("invalid kind")
	}
	return row, nil
}
