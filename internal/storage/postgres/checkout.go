package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/cart"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/settings"
)

const (
	// The cart row lock serializes checkouts of one cart; the item read that
	// follows sees whatever the previous holder committed.
	getCartSQL = `SELECT id FROM carts WHERE account_id = $1 FOR UPDATE`

	// Product rows are locked in id order so concurrent checkouts sharing
	// products cannot deadlock.
	lockCartItemsSQL = `SELECT ci.id, ci.product_id, ci.quantity,
		p.id, p.sku, p.name, p.category_id, p.brand_id,
		p.base_price, p.sale_price, p.wholesale_price, p.government_price,
		p.stock_quantity, p.weight, p.default_supplier_id, p.default_warehouse_id
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY p.id
		FOR UPDATE OF p`

	getAddressSQL = `SELECT id, account_id, name, line1, line2, city, state, postal_code, country
		FROM addresses WHERE id = $1 AND account_id = $2`

	listSettingsSQL = `SELECT key, value FROM settings WHERE key LIKE 'shipping.%' OR key LIKE 'tax.%'`

	listDiscountRulesSQL = `SELECT id, percentage, minimum_order, category_id, brand_id, supplier_id, warehouse_id
		FROM discount_rules WHERE active AND account_type = $1`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	decrementStockSQL = `UPDATE products SET stock_quantity = GREATEST(stock_quantity - $2, 0) WHERE id = $1`

	decrementStockStrictSQL = `UPDATE products SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2`

	getStockSQL = `SELECT sku, stock_quantity FROM products WHERE id = $1`
)

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs checkout transactions at READ COMMITTED. Correctness under
// concurrency comes from row locks and conditional updates, not isolation level.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork that uses the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Do runs fn in a transaction that commits if fn returns nil.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return pgx.BeginTxFunc(ctx, u.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &checkoutTx{tx: tx})
	})
}

var _ order.Tx = (*checkoutTx)(nil)

type checkoutTx struct {
	tx pgx.Tx
}

func (t *checkoutTx) Cart(ctx context.Context, accountID string) (*cart.Cart, error) {
	c := &cart.Cart{AccountID: accountID}
	err := t.tx.QueryRow(ctx, getCartSQL, accountID).Scan(&c.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, nil
		}
		return nil, fmt.Errorf("getting cart for %q: %w", accountID, err)
	}

	rows, err := t.tx.Query(ctx, lockCartItemsSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("locking cart items for %q: %w", c.ID, err)
	}
	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("scanning cart items for %q: %w", c.ID, err)
	}
	return c, nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		it    cart.Item
		p     = &it.Product
		stock int32
		qty   int32
	)
	err := row.Scan(
		&it.ID, &it.ProductID, &qty,
		&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.BrandID,
		&p.Prices.Base, &p.Prices.Sale, &p.Prices.Wholesale, &p.Prices.Government,
		&stock, &p.Weight, &p.DefaultSupplierID, &p.DefaultWarehouseID,
	)
	it.Quantity = int(qty)
	p.StockQuantity = int(stock)
	return it, err
}

func (t *checkoutTx) Address(ctx context.Context, accountID, addressID string) (*order.Address, error) {
	var a order.Address
	err := t.tx.QueryRow(ctx, getAddressSQL, addressID, accountID).Scan(
		&a.ID, &a.AccountID, &a.Name, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrAddressNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", addressID, err)
	}
	return &a, nil
}

func (t *checkoutTx) Membership(ctx context.Context, accountID string) (*account.Membership, error) {
	return findMembership(ctx, t.tx, accountID)
}

func (t *checkoutTx) Settings(ctx context.Context) (settings.Settings, error) {
	rows, err := t.tx.Query(ctx, listSettingsSQL)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("listing settings: %w", err)
	}
	values := map[string]string{}
	var key, value string
	if _, err := pgx.ForEachRow(rows, []any{&key, &value}, func() error {
		values[key] = value
		return nil
	}); err != nil {
		return settings.Settings{}, fmt.Errorf("scanning settings: %w", err)
	}

	s, invalid := settings.FromValues(values)
	if len(invalid) > 0 {
		zctx.From(ctx).Warn("Ignoring invalid settings", zap.Strings("keys", invalid))
	}
	return s, nil
}

func (t *checkoutTx) DiscountRules(ctx context.Context, tier account.Tier) ([]pricing.Rule, error) {
	rows, err := t.tx.Query(ctx, listDiscountRulesSQL, tier.String())
	if err != nil {
		return nil, fmt.Errorf("listing discount rules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.Rule, error) {
		r := pricing.Rule{Tier: tier}
		err := row.Scan(&r.ID, &r.Percentage, &r.MinimumOrder,
			&r.CategoryID, &r.BrandID, &r.SupplierID, &r.WarehouseID)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning discount rules: %w", err)
	}
	return rules, nil
}

func (t *checkoutTx) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCouponByCode(ctx, t.tx, code)
}

func (t *checkoutTx) Apply(ctx context.Context, mutations []order.Mutation) error {
	for _, m := range mutations {
		var err error
		switch m := m.(type) {
		case order.CreateOrder:
			err = insertOrder(ctx, t.tx, m.Order)
		case order.CreateApproval:
			err = insertApproval(ctx, t.tx, m.Request)
		case order.RedeemCoupon:
			err = redeemCoupon(ctx, t.tx, m.CouponID)
		case order.ClearCart:
			if _, err = t.tx.Exec(ctx, clearCartSQL, m.CartID); err != nil {
				err = fmt.Errorf("clearing cart %q: %w", m.CartID, err)
			}
		case order.DecrementStock:
			err = t.decrementStock(ctx, m)
		default:
			err = errors.Errorf("unknown mutation %T", m)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *checkoutTx) decrementStock(ctx context.Context, m order.DecrementStock) error {
	if !m.Strict {
		if _, err := t.tx.Exec(ctx, decrementStockSQL, m.ProductID, m.Quantity); err != nil {
			return fmt.Errorf("decrementing stock for %q: %w", m.ProductID, err)
		}
		return nil
	}

	tag, err := t.tx.Exec(ctx, decrementStockStrictSQL, m.ProductID, m.Quantity)
	if err != nil {
		return fmt.Errorf("decrementing stock for %q: %w", m.ProductID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	conflict := &order.StockConflictError{ProductID: m.ProductID, Requested: m.Quantity}
	var available int32
	if err := t.tx.QueryRow(ctx, getStockSQL, m.ProductID).Scan(&conflict.SKU, &available); err != nil {
		return fmt.Errorf("reading stock for %q: %w", m.ProductID, err)
	}
	conflict.Available = int(available)
	return conflict
}
