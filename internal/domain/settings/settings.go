package settings

import (
	"github.com/shopspring/decimal"
)

// Keys in the settings store.
const (
	KeyFreeShippingEnabled   = "shipping.freeShippingEnabled"
	KeyFreeShippingThreshold = "shipping.freeShippingThreshold"
	KeyStandardRate          = "shipping.standardRate"
	KeyMediumRate            = "shipping.mediumRate"
	KeyHeavyRate             = "shipping.heavyRate"
	KeyExpressRate           = "shipping.expressRate"
	KeyOvernightRate         = "shipping.overnightRate"
	KeyTaxRate               = "tax.defaultRate"
)

// Settings is the checkout configuration read from the settings store at
// the start of every commit transaction.
type Settings struct {
	FreeShippingEnabled   bool
	FreeShippingThreshold decimal.Decimal
	StandardRate          decimal.Decimal
	MediumRate            decimal.Decimal
	HeavyRate             decimal.Decimal
	ExpressRate           decimal.Decimal
	OvernightRate         decimal.Decimal
	// TaxRate is a fraction, e.g. 0.08 for 8%.
	TaxRate decimal.Decimal
}

// Default returns the settings used for keys missing from the store.
func Default() Settings {
	return Settings{
		FreeShippingEnabled:   true,
		FreeShippingThreshold: decimal.NewFromInt(99),
		StandardRate:          decimal.NewFromInt(15),
		MediumRate:            decimal.NewFromInt(25),
		HeavyRate:             decimal.NewFromInt(35),
		ExpressRate:           decimal.RequireFromString("29.99"),
		OvernightRate:         decimal.RequireFromString("49.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// FromValues overlays raw key/value pairs on Default. Unparseable values are
// skipped and reported in the returned slice of keys.
func FromValues(values map[string]string) (Settings, []string) {
	s := Default()
	var invalid []string

	if v, ok := values[KeyFreeShippingEnabled]; ok {
		switch v {
		case "true", "1":
			s.FreeShippingEnabled = true
		case "false", "0":
			s.FreeShippingEnabled = false
		default:
			invalid = append(invalid, KeyFreeShippingEnabled)
		}
	}

	for key, dst := range map[string]*decimal.Decimal{
		KeyFreeShippingThreshold: &s.FreeShippingThreshold,
		KeyStandardRate:          &s.StandardRate,
		KeyMediumRate:            &s.MediumRate,
		KeyHeavyRate:             &s.HeavyRate,
		KeyExpressRate:           &s.ExpressRate,
		KeyOvernightRate:         &s.OvernightRate,
		KeyTaxRate:               &s.TaxRate,
	} {
		v, ok := values[key]
		if !ok {
			continue
		}
		parsed, err := decimal.NewFromString(v)
		if err != nil || parsed.IsNegative() {
			invalid = append(invalid, key)
			continue
		}
		*dst = parsed
	}

	return s, invalid
}
