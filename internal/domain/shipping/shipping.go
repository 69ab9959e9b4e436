// Package shipping computes the authoritative shipping cost of an order.
package shipping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/settings"
)

// Method is a shipping service level.
type Method string

const (
	MethodGround    Method = "GROUND"
	MethodExpress   Method = "EXPRESS"
	MethodOvernight Method = "OVERNIGHT"
)

// ParseMethod normalizes a requested method; unknown or empty values select
// ground shipping.
func ParseMethod(s string) Method {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodExpress, MethodOvernight:
		return m
	default:
		return MethodGround
	}
}

// Weight thresholds in pounds above which the medium and heavy ground rates apply.
var (
	mediumWeight = decimal.NewFromInt(10)
	heavyWeight  = decimal.NewFromInt(20)
)

// Input is what the calculator needs. There is deliberately no field for a
// client-supplied cost.
type Input struct {
	Subtotal     decimal.Decimal
	TotalWeight  decimal.Decimal
	Method       Method
	FreeShipping bool
}

// Quote is a computed shipping cost.
type Quote struct {
	Cost decimal.Decimal
	Free bool
}

// Calculate returns the shipping cost for the given input and settings.
func Calculate(in Input, s settings.Settings) Quote {
	if in.FreeShipping || (s.FreeShippingEnabled && in.Subtotal.GreaterThanOrEqual(s.FreeShippingThreshold)) {
		return Quote{Cost: decimal.Zero, Free: true}
	}

	cost := groundCost(in.TotalWeight, s)
	switch in.Method {
	case MethodExpress:
		cost = decimal.Max(cost, s.ExpressRate)
	case MethodOvernight:
		cost = decimal.Max(cost, s.OvernightRate)
	}
	return Quote{Cost: cost.Round(2)}
}

func groundCost(weight decimal.Decimal, s settings.Settings) decimal.Decimal {
	var cost decimal.Decimal
	switch {
	case weight.GreaterThan(heavyWeight):
		cost = s.HeavyRate
	case weight.GreaterThan(mediumWeight):
		cost = s.MediumRate
	default:
		cost = s.StandardRate
	}
	return decimal.Max(cost, s.StandardRate)
}
