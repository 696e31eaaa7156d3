package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/pricing"
)

// Handler exposes the public validate endpoint and the admin create endpoint.
type Handler struct {
	Q   *db.Queries
	Svc *Service
}

type validateRequest struct {
	Code      string  `json:"code"`
	StoreID   *string `json:"storeId"`
	ItemTotal int64   `json:"itemTotal"`
}

type validateResponse struct {
	Code     string        `json:"code"`
	Kind     string        `json:"kind"`
	Discount pricing.Money `json:"discount"`
	Message  string        `json:"message"`
}

// Validate dry-runs a coupon against the caller's cart total.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	var storeID *uuid.UUID
	if req.StoreID != nil && strings.TrimSpace(*req.StoreID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*req.StoreID))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid storeId", nil)
			return
		}
		storeID = &parsed
	}
	var userID *uuid.UUID
	if raw, ok := common.UserID(r.Context()); ok {
		parsed, err := uuid.Parse(raw)
		if err == nil {
			userID = &parsed
		}
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, userID, storeID, req.ItemTotal)
	if err != nil {
		status, code := classify(err)
		common.JSONError(w, status, code, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": validateResponse{
		Code:     result.Rule.Code,
		Kind:     result.Rule.Kind,
		Discount: result.Discount,
		Message:  "coupon applied",
	}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrNotStarted), errors.Is(err, ErrExpired):
		return http.StatusUnprocessableEntity, "COUPON_WINDOW"
	case errors.Is(err, ErrWrongStore), errors.Is(err, ErrNotEligible):
		return http.StatusUnprocessableEntity, "NOT_ELIGIBLE"
	case errors.Is(err, ErrUsageLimitReached), errors.Is(err, ErrAlreadyUsed):
		return http.StatusUnprocessableEntity, "COUPON_EXHAUSTED"
	case errors.Is(err, ErrMinOrderNotMet):
		return http.StatusUnprocessableEntity, "MIN_ORDER_NOT_MET"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

var validate = validator.New()

type createPayload struct {
	Code          string     `json:"code" validate:"required,max=64"`
	Kind          string     `json:"kind" validate:"required,oneof=flat percentage"`
	Value         int64      `json:"value" validate:"gte=0"`
	PercentBps    *int32     `json:"percentBps"`
	MaxDiscount   *int64     `json:"maxDiscount"`
	MinOrderValue int64      `json:"minOrderValue" validate:"gte=0"`
	UsageLimit    *int32     `json:"usageLimit"`
	ValidFrom     *time.Time `json:"validFrom" validate:"required"`
	ValidUntil    *time.Time `json:"validUntil" validate:"required"`
	Eligibility   *string    `json:"eligibility"`
	SingleUse     *bool      `json:"singleUse"`
	StoreID       *string    `json:"storeId"`
}

// Create inserts a new coupon (admin surface).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"error": err.Error()})
		return
	}
	row, err := buildCouponRow(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	id, err := h.Q.InsertCoupon(r.Context(), row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": id, "code": row.Code}})
}

func buildCouponRow(payload createPayload) (db.Coupon, error) {
	code := strings.TrimSpace(payload.Code)
	if code == "" {
		return db.Coupon{}, errors.New("code is required")
	}
	kind := strings.TrimSpace(payload.Kind)
	switch kind {
	case KindFlat:
		if payload.Value <= 0 {
			return db.Coupon{}, errors.New("value must be positive for flat coupons")
		}
	case KindPercentage:
		if payload.PercentBps == nil || *payload.PercentBps <= 0 || *payload.PercentBps > 10000 {
			return db.Coupon{}, errors.New("percentBps must be in (0, 10000] for percentage coupons")
		}
	default:
		return db.Coupon{}, errors.New("invalid kind")
	}
	if payload.ValidFrom == nil || payload.ValidUntil == nil {
		return db.Coupon{}, errors.New("validFrom and validUntil are required")
	}
	if !payload.ValidUntil.After(*payload.ValidFrom) {
		return db.Coupon{}, errors.New("validUntil must be after validFrom")
	}
	row := db.Coupon{
		Code:          code,
		Kind:          kind,
		Value:         payload.Value,
		MinOrderValue: payload.MinOrderValue,
		ValidFrom:     *payload.ValidFrom,
		ValidUntil:    *payload.ValidUntil,
		Eligibility:   EligibilityAll,
	}
	if payload.PercentBps != nil {
		row.PercentBps = *payload.PercentBps
	}
	if payload.MaxDiscount != nil && *payload.MaxDiscount > 0 {
		row.MaxDiscount = pgtype.Int8{Int64: *payload.MaxDiscount, Valid: true}
	}
	if payload.UsageLimit != nil {
		if *payload.UsageLimit < 0 {
			return db.Coupon{}, errors.New("usageLimit must not be negative")
		}
		row.UsageLimit = *payload.UsageLimit
	}
	if payload.Eligibility != nil {
		switch *payload.Eligibility {
		case EligibilityAll, EligibilityNewUser, EligibilityExisting:
			row.Eligibility = *payload.Eligibility
		default:
			return db.Coupon{}, errors.New("invalid eligibility")
		}
	}
	if payload.SingleUse != nil {
		row.SingleUse = *payload.SingleUse
	}
	if payload.StoreID != nil && strings.TrimSpace(*payload.StoreID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*payload.StoreID))
		if err != nil {
			return db.Coupon{}, errors.New("invalid storeId")
		}
		row.StoreID = uuid.NullUUID{UUID: parsed, Valid: true}
	}
	return row, nil
}
