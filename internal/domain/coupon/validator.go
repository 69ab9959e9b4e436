package coupon

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
)

var hundred = decimal.NewFromInt(100)

// Application is a validated coupon together with its computed discount.
type Application struct {
	Coupon   *Coupon
	Discount Discount
}

// Validator checks coupon eligibility and computes discounts.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a Validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate looks the code up through f and checks it against the subtotal
// and tier. Usage and minimum purchase are checked here, against data read in
// the caller's transaction, not against an earlier storefront lookup.
func (v *Validator) Validate(ctx context.Context, f Finder, code string, subtotal decimal.Decimal, tier account.Tier) (*Application, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCouponNotFound
	}

	c, err := f.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := Check(c, v.now(), subtotal, tier); err != nil {
		return nil, err
	}

	return &Application{Coupon: c, Discount: Apply(c, subtotal)}, nil
}

// Check validates the coupon's state, window, eligibility, usage and minimum.
func Check(c *Coupon, now time.Time, subtotal decimal.Decimal, tier account.Tier) error {
	if !c.Active {
		return ErrCouponInactive
	}
	if now.Before(c.StartsAt) {
		return ErrCouponNotStarted
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return ErrCouponExpired
	}
	if len(c.Tiers) > 0 && !slices.Contains(c.Tiers, tier) {
		return ErrCouponNotEligible
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return ErrCouponUsageLimitReached
	}
	if c.MinPurchase != nil && subtotal.LessThan(*c.MinPurchase) {
		return ErrCouponMinimumNotMet
	}
	return nil
}

// Apply computes the discount of c on subtotal. The amount is rounded to two
// decimal places and always lies within [0, subtotal].
func Apply(c *Coupon, subtotal decimal.Decimal) Discount {
	if !subtotal.IsPositive() {
		return Discount{Amount: decimal.Zero, FreeShipping: c.Type == DiscountFreeShipping}
	}

	var amount decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount != nil && amount.GreaterThan(*c.MaxDiscount) {
			amount = *c.MaxDiscount
		}
	case DiscountFixed:
		amount = decimal.Min(c.Value, subtotal)
	case DiscountFreeShipping:
		return Discount{Amount: decimal.Zero, FreeShipping: true}
	default:
		amount = decimal.Zero
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return Discount{Amount: amount.Round(2)}
}
