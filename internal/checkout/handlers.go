package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/coupon"
	"github.com/arvind-dev/backend-bazaar/internal/lock"
)

// Handler wires the checkout service to HTTP.
type Handler struct {
	Svc  *Service
	Lock *lock.Locker
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

// Quote returns the multi-store bill for the caller's cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in QuoteInput
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&in)
	}
	quote, err := h.Svc.Quote(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// Commit places per-store orders from the caller's cart.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(in.Address.ReceiverName) == "" || strings.TrimSpace(in.Address.Line1) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "delivery address is required", nil)
		return
	}
	in.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var out Output
	err := h.withUserLock(r.Context(), userID, func(ctx context.Context) error {
		var commitErr error
		out, commitErr = h.Svc.Commit(ctx, userID, in)
		return commitErr
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
	}
	allFailed := len(out.Orders) > 0
	for _, o := range out.Orders {
		if o.Status == "created" {
			allFailed = false
			break
		}
	}
	if allFailed {
		status = http.StatusConflict
	}
	common.JSON(w, status, map[string]any{"data": out})
}

// withUserLock serialises commits per user so two concurrent requests cannot
// drain the same cart twice. Without a locker it just runs fn.
func (h *Handler) withUserLock(ctx context.Context, userID uuid.UUID, fn func(context.Context) error) error {
	if h.Lock == nil {
		return fn(ctx)
	}
	return h.Lock.WithLock(ctx, "checkout:user:"+userID.String(), 30*time.Second, fn)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stockErr *StockError
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrNegativeDonation):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.As(err, &stockErr):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", stockErr.Error(), stockErr)
	case errors.Is(err, coupon.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, coupon.ErrNotStarted),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrWrongStore),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrAlreadyUsed),
		errors.Is(err, coupon.ErrMinOrderNotMet),
		errors.Is(err, coupon.ErrNotEligible):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_REJECTED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
