// Package stock decides how each order line will be fulfilled.
package stock

// Source is the fulfillment route of an order line.
type Source string

const (
	OwnedWarehouse Source = "owned_warehouse"
	SupplierStock  Source = "supplier_stock"
	Backorder      Source = "backorder"
)

// Policy controls what checkout does when a line cannot ship from owned stock.
type Policy string

const (
	// PolicyBackorder accepts the order and tags the line for supplier or
	// backorder fulfillment.
	PolicyBackorder Policy = "backorder"
	// PolicyStrict rejects the checkout with a stock conflict.
	PolicyStrict Policy = "strict"
)

// Decision is the routing outcome for one line.
type Decision struct {
	Source     Source
	SupplierID *string
}

// Resolve routes a line given current available stock and the product's
// default supplier.
func Resolve(available, requested int, defaultSupplierID *string) Decision {
	if available >= requested {
		return Decision{Source: OwnedWarehouse}
	}
	if defaultSupplierID != nil && *defaultSupplierID != "" {
		return Decision{Source: SupplierStock, SupplierID: defaultSupplierID}
	}
	return Decision{Source: Backorder}
}
