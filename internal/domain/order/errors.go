package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/tiered-checkout/internal/domain/coupon"
)

var (
	// ErrUnauthenticated is returned when checkout has no account identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrEmptyCart is returned when the account's cart has no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAddressNotFound is returned when an address id is unknown or owned
	// by another account.
	ErrAddressNotFound = errors.New("address not found")
	// ErrOrderNotFound is returned by order lookup.
	ErrOrderNotFound = errors.New("order not found")
)

// CouponError reports why a coupon could not be applied. It unwraps to the
// coupon package sentinel.
type CouponError struct {
	Code string
	Err  error
}

func (e *CouponError) Error() string {
	return fmt.Sprintf("coupon %q: %v", e.Code, e.Err)
}

func (e *CouponError) Unwrap() error {
	return e.Err
}

// Reason returns the machine-readable rejection reason.
func (e *CouponError) Reason() string {
	if r := coupon.Reason(e.Err); r != "" {
		return r
	}
	return "invalid"
}

// StockConflictError indicates a line could not be fulfilled from owned stock
// under the strict stock policy.
type StockConflictError struct {
	ProductID string
	SKU       string
	Requested int
	Available int
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
