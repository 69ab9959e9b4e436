// Package pricing resolves the unit price of a line item for an account tier.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/product"
)

// Source attributes a resolved price to the tier or rule that produced it.
type Source string

const (
	SourceGovernment Source = "government_price"
	SourceWholesale  Source = "wholesale_price"
	SourceSale       Source = "sale_price"
	SourceBase       Source = "base_price"
	SourceRule       Source = "rule"
)

var hundred = decimal.NewFromInt(100)

// priceField selects one optional tier from a product's prices.
type priceField struct {
	source Source
	get    func(product.Prices) *decimal.Decimal
}

var (
	governmentField = priceField{SourceGovernment, func(p product.Prices) *decimal.Decimal { return p.Government }}
	wholesaleField  = priceField{SourceWholesale, func(p product.Prices) *decimal.Decimal { return p.Wholesale }}
	saleField       = priceField{SourceSale, func(p product.Prices) *decimal.Decimal { return p.Sale }}
)

// precedence lists, per tier, the price fields tried in order before falling
// back to the base price.
var precedence = map[account.Tier][]priceField{
	account.Government:     {governmentField, saleField},
	account.Organizational: {wholesaleField, saleField},
	account.Personal:       {saleField},
}

// Price is the resolved unit price of one product.
type Price struct {
	Unit   decimal.Decimal
	Source Source
	// RuleID is set when Source is SourceRule.
	RuleID string
	// Clamped reports that the candidate price was outside [0, base].
	Clamped bool
}

// Input is the per-line context for Resolve.
type Input struct {
	Product product.Product
	Tier    account.Tier
	// RawSubtotal is the cart total at base prices, used for rule minimums.
	RawSubtotal decimal.Decimal
	Rules       []Rule
}

// TierPrice applies the tier precedence table only.
func TierPrice(prices product.Prices, tier account.Tier) (decimal.Decimal, Source) {
	for _, f := range precedence[tier] {
		if v := f.get(prices); v != nil {
			return *v, f.source
		}
	}
	return prices.Base, SourceBase
}

// Resolve returns the unit price for a product under the given tier.
//
// The tier price comes from the precedence table. A matching discount rule
// may lower it further, except that a government price short-circuits rule
// evaluation. The result never exceeds the base price and is never negative.
func Resolve(in Input) Price {
	unit, src := TierPrice(in.Product.Prices, in.Tier)
	p := Price{Unit: unit, Source: src}

	if src != SourceGovernment {
		if r, ok := BestRule(in.Rules, in.Product, in.Tier, in.RawSubtotal); ok {
			rulePrice := in.Product.ListPrice().Mul(hundred.Sub(r.Percentage)).Div(hundred)
			if rulePrice.LessThan(p.Unit) {
				p = Price{Unit: rulePrice, Source: SourceRule, RuleID: r.ID}
			}
		}
	}

	return clamp(p, in.Product.Prices.Base)
}

func clamp(p Price, base decimal.Decimal) Price {
	if base.IsNegative() {
		base = decimal.Zero
	}
	if p.Unit.GreaterThan(base) {
		p.Unit = base
		p.Clamped = true
	}
	if p.Unit.IsNegative() {
		p.Unit = decimal.Zero
		p.Clamped = true
	}
	p.Unit = p.Unit.Round(2)
	return p
}

// RawSubtotal sums base price × quantity, the undiscounted cart total used to
// evaluate minimum-order rules without order-of-evaluation bias.
func RawSubtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Product.Prices.Base.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Line is a product and the quantity ordered.
type Line struct {
	Product  product.Product
	Quantity int
}
