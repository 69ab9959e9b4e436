package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/tiered-checkout/internal/domain/account"
)

type mockFinder struct {
	coupon   *Coupon
	err      error
	lastCode string
}

func (m *mockFinder) FindByCode(_ context.Context, code string) (*Coupon, error) {
	m.lastCode = code
	return m.coupon, m.err
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func intp(v int) *int { return &v }

func TestValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	base := func(mut func(c *Coupon)) *Coupon {
		c := &Coupon{
			ID:       "c1",
			Code:     "SAVE10",
			Type:     DiscountPercentage,
			Value:    d("10"),
			StartsAt: past,
			Active:   true,
		}
		if mut != nil {
			mut(c)
		}
		return c
	}

	tests := []struct {
		name       string
		finder     *mockFinder
		code       string
		subtotal   decimal.Decimal
		tier       account.Tier
		wantAmount decimal.Decimal
		wantFree   bool
		wantErr    error
	}{
		{
			name:       "valid percentage coupon",
			finder:     &mockFinder{coupon: base(nil)},
			code:       "SAVE10",
			subtotal:   d("100"),
			wantAmount: d("10"),
		},
		{
			name:     "unknown code",
			finder:   &mockFinder{err: ErrCouponNotFound},
			code:     "BOGUS",
			subtotal: d("100"),
			wantErr:  ErrCouponNotFound,
		},
		{
			name:     "blank code",
			finder:   &mockFinder{coupon: base(nil)},
			code:     "   ",
			subtotal: d("100"),
			wantErr:  ErrCouponNotFound,
		},
		{
			name:     "inactive coupon",
			finder:   &mockFinder{coupon: base(func(c *Coupon) { c.Active = false })},
			code:     "SAVE10",
			subtotal: d("100"),
			wantErr:  ErrCouponInactive,
		},
		{
			name:     "not started",
			finder:   &mockFinder{coupon: base(func(c *Coupon) { c.StartsAt = future })},
			code:     "SAVE10",
			subtotal: d("100"),
			wantErr:  ErrCouponNotStarted,
		},
		{
			name:     "expired",
			finder:   &mockFinder{coupon: base(func(c *Coupon) { c.EndsAt = &past })},
			code:     "SAVE10",
			subtotal: d("100"),
			wantErr:  ErrCouponExpired,
		},
		{
			name:       "open-ended window",
			finder:     &mockFinder{coupon: base(func(c *Coupon) { c.EndsAt = nil })},
			code:       "SAVE10",
			subtotal:   d("50"),
			wantAmount: d("5"),
		},
		{
			name:       "ends in future",
			finder:     &mockFinder{coupon: base(func(c *Coupon) { c.EndsAt = &future })},
			code:       "SAVE10",
			subtotal:   d("50"),
			wantAmount: d("5"),
		},
		{
			name:     "usage limit reached",
			finder:   &mockFinder{coupon: base(func(c *Coupon) { c.UsageLimit = intp(5); c.UsageCount = 5 })},
			code:     "SAVE10",
			subtotal: d("100"),
			wantErr:  ErrCouponUsageLimitReached,
		},
		{
			name:       "usage under limit",
			finder:     &mockFinder{coupon: base(func(c *Coupon) { c.UsageLimit = intp(5); c.UsageCount = 4 })},
			code:       "SAVE10",
			subtotal:   d("100"),
			wantAmount: d("10"),
		},
		{
			name:     "below minimum purchase",
			finder:   &mockFinder{coupon: base(func(c *Coupon) { c.MinPurchase = dp("150") })},
			code:     "SAVE10",
			subtotal: d("149.99"),
			wantErr:  ErrCouponMinimumNotMet,
		},
		{
			name:       "exactly minimum purchase",
			finder:     &mockFinder{coupon: base(func(c *Coupon) { c.MinPurchase = dp("150") })},
			code:       "SAVE10",
			subtotal:   d("150"),
			wantAmount: d("15"),
		},
		{
			name: "tier not eligible",
			finder: &mockFinder{coupon: base(func(c *Coupon) {
				c.Tiers = []account.Tier{account.Government}
			})},
			code:     "SAVE10",
			subtotal: d("100"),
			tier:     account.Personal,
			wantErr:  ErrCouponNotEligible,
		},
		{
			name: "tier eligible",
			finder: &mockFinder{coupon: base(func(c *Coupon) {
				c.Tiers = []account.Tier{account.Government, account.Organizational}
			})},
			code:       "SAVE10",
			subtotal:   d("100"),
			tier:       account.Organizational,
			wantAmount: d("10"),
		},
		{
			name: "free shipping coupon",
			finder: &mockFinder{coupon: base(func(c *Coupon) {
				c.Type = DiscountFreeShipping
				c.Value = decimal.Zero
			})},
			code:       "SHIPFREE",
			subtotal:   d("20"),
			wantAmount: decimal.Zero,
			wantFree:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.finder, tt.code, tt.subtotal, tt.tier)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.wantAmount.Equal(got.Discount.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Discount.Amount)
			assert.Equal(t, tt.wantFree, got.Discount.FreeShipping)
		})
	}
}

func TestValidator_NormalizesCode(t *testing.T) {
	f := &mockFinder{coupon: &Coupon{Code: "SAVE10", Type: DiscountFixed, Value: d("1"), Active: true}}
	v := NewValidator()

	_, err := v.Validate(context.Background(), f, "  save10 ", d("10"), account.Personal)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", f.lastCode)
}

func TestValidator_LookupError(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate(context.Background(), &mockFinder{err: errors.New("conn reset")}, "X", d("10"), account.Personal)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup coupon")
	assert.Empty(t, Reason(err))
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		coupon     *Coupon
		subtotal   decimal.Decimal
		wantAmount decimal.Decimal
	}{
		{
			name:       "percentage capped",
			coupon:     &Coupon{Type: DiscountPercentage, Value: d("10"), MaxDiscount: dp("20")},
			subtotal:   d("300"),
			wantAmount: d("20"),
		},
		{
			name:       "percentage under cap",
			coupon:     &Coupon{Type: DiscountPercentage, Value: d("10"), MaxDiscount: dp("20")},
			subtotal:   d("150"),
			wantAmount: d("15"),
		},
		{
			name:       "fixed clamped to subtotal",
			coupon:     &Coupon{Type: DiscountFixed, Value: d("50")},
			subtotal:   d("30"),
			wantAmount: d("30"),
		},
		{
			name:       "fixed below subtotal",
			coupon:     &Coupon{Type: DiscountFixed, Value: d("9")},
			subtotal:   d("100"),
			wantAmount: d("9"),
		},
		{
			name:       "percentage rounds to cents",
			coupon:     &Coupon{Type: DiscountPercentage, Value: d("33.33")},
			subtotal:   d("10.01"),
			wantAmount: d("3.34"),
		},
		{
			name:       "percentage above 100 never exceeds subtotal",
			coupon:     &Coupon{Type: DiscountPercentage, Value: d("150")},
			subtotal:   d("40"),
			wantAmount: d("40"),
		},
		{
			name:       "negative value yields zero",
			coupon:     &Coupon{Type: DiscountFixed, Value: d("-5")},
			subtotal:   d("40"),
			wantAmount: decimal.Zero,
		},
		{
			name:       "zero subtotal",
			coupon:     &Coupon{Type: DiscountFixed, Value: d("5")},
			subtotal:   decimal.Zero,
			wantAmount: decimal.Zero,
		},
		{
			name:       "unknown type",
			coupon:     &Coupon{Type: "bogo", Value: d("5")},
			subtotal:   d("40"),
			wantAmount: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.coupon, tt.subtotal)
			assert.True(t, tt.wantAmount.Equal(got.Amount), "expected %s, got %s", tt.wantAmount, got.Amount)
			assert.False(t, got.FreeShipping)
		})
	}
}

func TestReason(t *testing.T) {
	assert.Equal(t, "expired", Reason(errors.Wrap(ErrCouponExpired, "apply")))
	assert.Equal(t, "usage_limit_reached", Reason(ErrCouponUsageLimitReached))
	assert.Equal(t, "", Reason(errors.New("other")))
}
