package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/approval"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/shipping"
	"github.com/xenking/tiered-checkout/internal/domain/stock"
)

// Status is the order lifecycle state. Checkout only ever creates PENDING or
// ON_HOLD orders.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusOnHold  Status = "ON_HOLD"
)

// PaymentStatus of a newly created order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
)

// Address is a saved postal address owned by an account.
type Address struct {
	ID         string
	AccountID  string
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Item is an immutable order line snapshot.
type Item struct {
	ID          string
	ProductID   string
	SKU         string
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	PriceSource pricing.Source
	SupplierID  *string
	WarehouseID *string
	StockSource stock.Source
}

// ApprovalRequest is a pending sign-off attached to an ON_HOLD order.
type ApprovalRequest struct {
	ID                  string
	OrderID             string
	RequestedByMemberID string
	ApproverMemberID    string
	OrderTotal          decimal.Decimal
	Status              approval.Status
	CreatedAt           time.Time
}

// Order is a committed purchase. Total always equals
// Subtotal - Discount + ShippingCost + Tax.
type Order struct {
	ID                string
	Number            string
	AccountID         string
	Tier              account.Tier
	Status            Status
	PaymentStatus     PaymentStatus
	PaymentMethod     string
	PaymentIntentID   string
	ShippingMethod    shipping.Method
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	ShippingCost      decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	CouponCode        string
	CouponID          *string
	ShippingAddress   Address
	BillingAddress    Address
	CostCenterID      *string
	CreatedByMemberID *string
	Notes             string
	Items             []Item
	Approval          *ApprovalRequest
	CreatedAt         time.Time
}

// Warning is a non-fatal checkout notice returned with the order.
type Warning struct {
	Code   string
	Reason string
}

// WarningCouponRejected is set when a coupon was dropped under the warn policy.
const WarningCouponRejected = "coupon_rejected"
