package settings

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromValues(t *testing.T) {
	s, invalid := FromValues(map[string]string{
		KeyFreeShippingEnabled:   "false",
		KeyFreeShippingThreshold: "150",
		KeyTaxRate:               "0.0725",
		KeyStandardRate:          "abc",
		KeyHeavyRate:             "-1",
	})

	assert.False(t, s.FreeShippingEnabled)
	assert.True(t, decimal.NewFromInt(150).Equal(s.FreeShippingThreshold))
	assert.True(t, decimal.RequireFromString("0.0725").Equal(s.TaxRate))
	// Invalid entries keep their defaults.
	assert.True(t, decimal.NewFromInt(15).Equal(s.StandardRate))
	assert.True(t, decimal.NewFromInt(35).Equal(s.HeavyRate))
	assert.ElementsMatch(t, []string{KeyStandardRate, KeyHeavyRate}, invalid)
}

func TestFromValues_Empty(t *testing.T) {
	s, invalid := FromValues(nil)
	assert.Equal(t, Default(), s)
	assert.Empty(t, invalid)
}
