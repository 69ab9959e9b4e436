package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/product"
)

// Scope is how specifically a rule targets a product. Higher scopes win.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeGlobal
	ScopeWarehouse
	ScopeSupplier
	ScopeBrand
	ScopeCategory
)

// Rule is an already-authored percentage discount for one account tier.
// At most one of the target ids is expected to be set; none means global.
type Rule struct {
	ID           string
	Tier         account.Tier
	Percentage   decimal.Decimal
	MinimumOrder decimal.Decimal
	CategoryID   *string
	BrandID      *string
	SupplierID   *string
	WarehouseID  *string
}

// ScopeFor reports how the rule matches p, or ScopeNone.
func (r Rule) ScopeFor(p product.Product) Scope {
	switch {
	case r.CategoryID != nil:
		if *r.CategoryID == p.CategoryID && p.CategoryID != "" {
			return ScopeCategory
		}
	case r.BrandID != nil:
		if *r.BrandID == p.BrandID && p.BrandID != "" {
			return ScopeBrand
		}
	case r.SupplierID != nil:
		if p.DefaultSupplierID != nil && *r.SupplierID == *p.DefaultSupplierID {
			return ScopeSupplier
		}
	case r.WarehouseID != nil:
		if p.DefaultWarehouseID != nil && *r.WarehouseID == *p.DefaultWarehouseID {
			return ScopeWarehouse
		}
	default:
		return ScopeGlobal
	}
	return ScopeNone
}

// BestRule picks the most specific applicable rule, preferring the highest
// percentage within the same scope. Rules whose minimum order exceeds the
// raw subtotal are skipped.
func BestRule(rules []Rule, p product.Product, tier account.Tier, rawSubtotal decimal.Decimal) (Rule, bool) {
	var (
		best      Rule
		bestScope = ScopeNone
	)
	for _, r := range rules {
		if r.Tier != tier || !r.Percentage.IsPositive() {
			continue
		}
		if r.MinimumOrder.IsPositive() && rawSubtotal.LessThan(r.MinimumOrder) {
			continue
		}
		scope := r.ScopeFor(p)
		if scope == ScopeNone {
			continue
		}
		if scope > bestScope || (scope == bestScope && r.Percentage.GreaterThan(best.Percentage)) {
			best, bestScope = r, scope
		}
	}
	return best, bestScope != ScopeNone
}
