package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the subtotal, optionally capped.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off, never more than the subtotal.
	DiscountFixed DiscountType = "fixed_amount"
	// DiscountFreeShipping waives shipping and carries no monetary discount.
	DiscountFreeShipping DiscountType = "free_shipping"
)

var (
	// ErrCouponNotFound is returned when no coupon matches the code.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponInactive is returned when the coupon has been disabled.
	ErrCouponInactive = errors.New("coupon inactive")
	// ErrCouponNotStarted is returned before the coupon's start time.
	ErrCouponNotStarted = errors.New("coupon not yet active")
	// ErrCouponExpired is returned after the coupon's end time.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponNotEligible is returned when the account tier may not use the coupon.
	ErrCouponNotEligible = errors.New("coupon not valid for account type")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrCouponMinimumNotMet is returned when the subtotal is below the minimum purchase.
	ErrCouponMinimumNotMet = errors.New("coupon minimum purchase not met")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrCouponNotFound, "not_found"},
	{ErrCouponInactive, "inactive"},
	{ErrCouponNotStarted, "not_started"},
	{ErrCouponExpired, "expired"},
	{ErrCouponNotEligible, "not_eligible"},
	{ErrCouponUsageLimitReached, "usage_limit_reached"},
	{ErrCouponMinimumNotMet, "minimum_not_met"},
}

// Reason returns a machine-readable reason for a coupon error, or "" when err
// is not a coupon rejection.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}

// Coupon is a time-boxed, usage-limited discount code.
type Coupon struct {
	ID          string
	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MaxDiscount *decimal.Decimal
	MinPurchase *decimal.Decimal
	// UsageLimit is nil for unlimited coupons.
	UsageLimit *int
	UsageCount int
	StartsAt   time.Time
	EndsAt     *time.Time
	Active     bool
	// Tiers restricts the coupon to the listed tiers; empty means any tier.
	Tiers []account.Tier
}

// Discount is the outcome of applying a coupon to a subtotal.
type Discount struct {
	Amount       decimal.Decimal
	FreeShipping bool
}

// Finder looks up coupons by code.
type Finder interface {
	// FindByCode returns ErrCouponNotFound when no coupon has the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}

// NormalizeCode trims and upper-cases a customer-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
