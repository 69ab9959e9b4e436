package product

import "github.com/shopspring/decimal"

// Prices holds the already-resolved price tiers of a product. A nil tier is
// absent; a zero tier is a legitimate free price.
type Prices struct {
	Base       decimal.Decimal
	Sale       *decimal.Decimal
	Wholesale  *decimal.Decimal
	Government *decimal.Decimal
}

// Product is the catalog snapshot consumed by checkout.
type Product struct {
	ID                 string
	SKU                string
	Name               string
	CategoryID         string
	BrandID            string
	Prices             Prices
	StockQuantity      int
	Weight             decimal.Decimal
	DefaultSupplierID  *string
	DefaultWarehouseID *string
}

// ListPrice is the price a customer sees before tier or rule discounts.
func (p Product) ListPrice() decimal.Decimal {
	if p.Prices.Sale != nil {
		return *p.Prices.Sale
	}
	return p.Prices.Base
}
