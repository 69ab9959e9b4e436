// Package cart holds the shopping cart as read inside a checkout.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/product"
)

// Item is a cart line with the catalog snapshot read in the same transaction.
type Item struct {
	ID        string
	ProductID string
	Quantity  int
	Product   product.Product
}

// Cart is an account's mutable pre-order item collection.
type Cart struct {
	ID        string
	AccountID string
	Items     []Item
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// Lines returns the cart as pricing lines.
func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(c.Items))
	for i, it := range c.Items {
		lines[i] = pricing.Line{Product: it.Product, Quantity: it.Quantity}
	}
	return lines
}

// TotalWeight sums product weight × quantity in pounds.
func (c *Cart) TotalWeight() decimal.Decimal {
	w := decimal.Zero
	for _, it := range c.Items {
		w = w.Add(it.Product.Weight.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return w
}
