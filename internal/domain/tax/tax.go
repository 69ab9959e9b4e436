// Package tax computes order tax from the classified account tier.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
)

// TaxableAmount is the post-discount amount tax applies to, floored at zero.
func TaxableAmount(subtotal, discount decimal.Decimal) decimal.Decimal {
	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		return decimal.Zero
	}
	return taxable
}

// Calculate returns the tax on taxable for tier at rate. Organizational and
// government tiers are exempt. The tier must come from account.Classify,
// never from a raw client string.
func Calculate(tier account.Tier, taxable, rate decimal.Decimal) decimal.Decimal {
	if tier.TaxExempt() || !taxable.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	return taxable.Mul(rate).Round(2)
}
