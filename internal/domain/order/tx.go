package order

import (
	"context"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/cart"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/settings"
)

// UnitOfWork runs fn inside one database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view used by checkout. Every read observes the
// same snapshot the writes in Apply commit against.
type Tx interface {
	coupon.Finder

	// Cart returns the account's cart with each product row locked for
	// update, or an empty cart when the account has none.
	Cart(ctx context.Context, accountID string) (*cart.Cart, error)
	// Address returns ErrAddressNotFound unless the address belongs to accountID.
	Address(ctx context.Context, accountID, addressID string) (*Address, error)
	// Membership returns account.ErrNotFound when the account has no membership.
	Membership(ctx context.Context, accountID string) (*account.Membership, error)
	Settings(ctx context.Context) (settings.Settings, error)
	DiscountRules(ctx context.Context, tier account.Tier) ([]pricing.Rule, error)

	// Apply executes mutations in order. The first failure aborts the
	// transaction.
	Apply(ctx context.Context, mutations []Mutation) error
}

// Mutation is a write intent produced by checkout and executed by Tx.Apply.
type Mutation interface {
	mutation()
}

// CreateOrder inserts the order header and its items.
type CreateOrder struct {
	Order *Order
}

// CreateApproval inserts a pending approval request.
type CreateApproval struct {
	Request ApprovalRequest
}

// RedeemCoupon increments the coupon's usage count only while it is below
// the usage limit. It fails with coupon.ErrCouponUsageLimitReached otherwise.
type RedeemCoupon struct {
	CouponID string
}

// ClearCart removes every item from the cart.
type ClearCart struct {
	CartID string
}

// DecrementStock lowers a product's stock. When Strict is set the decrement
// only succeeds if enough stock remains; otherwise stock is floored at zero.
type DecrementStock struct {
	ProductID string
	Quantity  int
	Strict    bool
}

func (CreateOrder) mutation()    {}
func (CreateApproval) mutation() {}
func (RedeemCoupon) mutation()   {}
func (ClearCart) mutation()      {}
func (DecrementStock) mutation() {}

// Repository reads committed orders.
type Repository interface {
	// GetByNumber returns ErrOrderNotFound unless the order belongs to accountID.
	GetByNumber(ctx context.Context, accountID, number string) (*Order, error)
}

// Notifier is told about committed orders. Its failures never affect the
// checkout result.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
}
