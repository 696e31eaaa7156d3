package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/events"
)

// Handler exposes the shopper-facing order endpoints.
type Handler struct {
	Q      *db.Queries
	Events *events.Bus
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func orderView(o db.Order) map[string]any {
	view := map[string]any{
		"id":             o.ID,
		"storeId":        o.StoreID,
		"status":         o.Status,
		"paymentStatus":  o.PaymentStatus,
		"itemTotal":      o.ItemTotal,
		"discountAmount": o.DiscountAmount,
		"couponDiscount": o.CouponDiscount,
		"shippingFee":    o.ShippingFee,
		"platformFee":    o.PlatformFee,
		"extraCharges":   o.ExtraCharges,
		"donationAmount": o.DonationAmount,
		"grandTotal":     o.GrandTotal,
		"createdAt":      o.CreatedAt,
	}
	if o.CouponCode.Valid {
		view["couponCode"] = o.CouponCode.String
	}
	return view
}

// List returns the caller's orders newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	offset := int32((page - 1) * perPage)
	total, err := h.Q.CountOrdersForUser(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Q.ListOrdersForUser(r.Context(), userID, int32(perPage), offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		response = append(response, orderView(o))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns one order with its committed lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Q.GetOrderForUser(r.Context(), orderID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), o.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	itemViews := make([]map[string]any, 0, len(items))
	for _, it := range items {
		itemViews = append(itemViews, map[string]any{
			"id":            it.ID,
			"productId":     it.ProductID,
			"title":         it.Title,
			"qty":           it.Qty,
			"freeQty":       it.FreeQty,
			"unitPrice":     it.UnitPrice,
			"mrp":           it.MRP,
			"discount":      it.Discount,
			"appliedOffers": it.AppliedOffers,
		})
	}
	view := orderView(o)
	view["items"] = itemViews
	if len(o.AddressSnapshot) > 0 {
		view["address"] = json.RawMessage(o.AddressSnapshot)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Cancel cancels a non-terminal order and returns its reserved stock.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Q.GetOrderForUser(r.Context(), orderID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if !CanTransition(o.Status, StatusCancelled) {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order can no longer be cancelled", nil)
		return
	}
	if err := h.Q.UpdateOrderStatus(r.Context(), o.ID, StatusCancelled); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to cancel order", nil)
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), o.ID)
	if err == nil {
		for _, it := range items {
			_ = h.Q.ReleaseStock(r.Context(), it.ProductID, it.Qty)
		}
	}
	if h.Events != nil {
		_, _ = h.Events.Emit(r.Context(), events.TopicOrderCanceled, o.ID, map[string]any{
			"orderId": o.ID.String(),
			"storeId": o.StoreID.String(),
			"userId":  o.UserID.String(),
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": o.ID, "status": StatusCancelled}})
}
