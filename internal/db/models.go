package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Product is a sellable item owned by a store. Stock is nullable: NULL means
// the retailer does not track inventory for the product.
type Product struct {
	ID                uuid.UUID
	StoreID           uuid.UUID
	Title             string
	Price             int64
	MRP               int64
	Stock             pgtype.Int4
	LowStockThreshold int32
	Deleted           bool
}

// Store is a seller storefront. PlatformFee overrides the global default when
// set.
type Store struct {
	ID          uuid.UUID
	RetailerID  uuid.UUID
	Name        string
	PlatformFee pgtype.Int8
}

// ExtraCharge is an itemised charge attached to a product or a store.
type ExtraCharge struct {
	ID         uuid.UUID
	OwnerType  string // "product" or "store"
	OwnerID    uuid.UUID
	Label      string
	Kind       string // "flat" or "percent"
	Amount     int64
	PercentBps int32
}

// StoreOffer is a seller-configured promotion.
type StoreOffer struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	Label         string
	Kind          string
	PercentBps    int32
	FlatAmount    int64
	MinOrderValue int64
	ProductIDs    []uuid.UUID
	Deleted       bool
	CreatedAt     time.Time
}

// Coupon is a platform or store scoped discount code.
type Coupon struct {
	ID            uuid.UUID
	Code          string
	Kind          string // "flat" or "percentage"
	Value         int64
	PercentBps    int32
	MaxDiscount   pgtype.Int8
	MinOrderValue int64
	UsageLimit    int32 // 0 = unlimited
	UsageCount    int32
	ValidFrom     time.Time
	ValidUntil    time.Time
	Eligibility   string // "all", "new_user", "existing_user"
	SingleUse     bool
	StoreID       uuid.NullUUID
	Deleted       bool
}

// CouponRedemption records a single coupon use. Append-only; its existence is
// what enforces one-time redemption for single-use coupons.
type CouponRedemption struct {
	ID        uuid.UUID
	CouponID  uuid.UUID
	UserID    uuid.UUID
	OrderID   uuid.UUID
	Amount    int64
	CreatedAt time.Time
}

// Cart is a shopper's active cart.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	UpdatedAt time.Time
}

// CartItem is one cart line. Prices are snapshotted at add-to-cart time.
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	StoreID   uuid.UUID
	Title     string
	Qty       int32
	UnitPrice int64
	MRP       int64
	Deleted   bool
}

// Order is a committed store-order. Summary amounts are frozen at commit.
type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	StoreID         uuid.UUID
	Status          string
	PaymentStatus   string
	AddressSnapshot []byte
	CouponCode      pgtype.Text
	ItemTotal       int64
	DiscountAmount  int64
	CouponDiscount  int64
	ShippingFee     int64
	PlatformFee     int64
	ExtraCharges    int64
	DonationAmount  int64
	GrandTotal      int64
	IdempotencyKey  pgtype.Text
	CreatedAt       time.Time
}

// OrderItem is a committed line with the offer outcome frozen in.
type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	Title         string
	Qty           int32
	FreeQty       int32
	UnitPrice     int64
	MRP           int64
	Discount      int64
	AppliedOffers []string
}

// DomainEvent is a persisted event row fanned out to notifiers.
type DomainEvent struct {
	ID          uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
	OccurredAt  time.Time
}

// Notification is an in-app message for a retailer.
type Notification struct {
	ID         uuid.UUID
	RetailerID uuid.UUID
	Kind       string
	Payload    []byte
	CreatedAt  time.Time
	ReadAt     pgtype.Timestamptz
}
