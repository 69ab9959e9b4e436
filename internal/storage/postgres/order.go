package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/approval"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/shipping"
	"github.com/xenking/tiered-checkout/internal/domain/stock"
)

const (
	createOrderSQL = `INSERT INTO orders (
		id, order_number, account_id, account_type, status, payment_status, payment_method,
		payment_intent_id, shipping_method, subtotal, discount, shipping_cost, tax, total,
		coupon_code, coupon_id, shipping_address_id, billing_address_id, cost_center_id,
		created_by_member_id, notes, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	createApprovalSQL = `INSERT INTO order_approvals (
		id, order_id, requested_by_member_id, approver_member_id, order_total, status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderSQL = `SELECT o.id, o.order_number, o.account_id, o.account_type, o.status, o.payment_status,
		o.payment_method, o.payment_intent_id, o.shipping_method,
		o.subtotal, o.discount, o.shipping_cost, o.tax, o.total,
		o.coupon_code, o.coupon_id, o.cost_center_id, o.created_by_member_id, o.notes, o.created_at,
		sa.id, sa.account_id, sa.name, sa.line1, sa.line2, sa.city, sa.state, sa.postal_code, sa.country,
		ba.id, ba.account_id, ba.name, ba.line1, ba.line2, ba.city, ba.state, ba.postal_code, ba.country
		FROM orders o
		JOIN addresses sa ON sa.id = o.shipping_address_id
		JOIN addresses ba ON ba.id = o.billing_address_id
		WHERE o.order_number = $1 AND o.account_id = $2`

	listOrderItemsSQL = `SELECT id, product_id, sku, name, quantity, unit_price, line_total,
		price_source, supplier_id, warehouse_id, stock_source
		FROM order_items WHERE order_id = $1 ORDER BY position`

	getApprovalSQL = `SELECT id, order_id, requested_by_member_id, approver_member_id, order_total, status, created_at
		FROM order_approvals WHERE order_id = $1`
)

var orderItemColumns = []string{
	"id", "order_id", "product_id", "sku", "name", "quantity", "unit_price", "line_total",
	"price_source", "supplier_id", "warehouse_id", "stock_source", "position",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository reads committed orders.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByNumber returns the order with items and approval, or
// order.ErrOrderNotFound when the number is unknown or owned by another account.
func (r *OrderRepository) GetByNumber(ctx context.Context, accountID, number string) (*order.Order, error) {
	var (
		o              order.Order
		tier, method   string
		status, paySts string
	)
	sa, ba := &o.ShippingAddress, &o.BillingAddress
	err := r.pool.QueryRow(ctx, getOrderSQL, number, accountID).Scan(
		&o.ID, &o.Number, &o.AccountID, &tier, &status, &paySts,
		&o.PaymentMethod, &o.PaymentIntentID, &method,
		&o.Subtotal, &o.Discount, &o.ShippingCost, &o.Tax, &o.Total,
		&o.CouponCode, &o.CouponID, &o.CostCenterID, &o.CreatedByMemberID, &o.Notes, &o.CreatedAt,
		&sa.ID, &sa.AccountID, &sa.Name, &sa.Line1, &sa.Line2, &sa.City, &sa.State, &sa.PostalCode, &sa.Country,
		&ba.ID, &ba.AccountID, &ba.Name, &ba.Line1, &ba.Line2, &ba.City, &ba.State, &ba.PostalCode, &ba.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	o.Tier = account.ParseTier(tier)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paySts)
	o.ShippingMethod = shipping.Method(method)

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", number, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("scanning items of order %q: %w", number, err)
	}

	rows, err = r.pool.Query(ctx, getApprovalSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("getting approval of order %q: %w", number, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanApproval)
	switch {
	case err == nil:
		o.Approval = &a
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("scanning approval of order %q: %w", number, err)
	}

	return &o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it          order.Item
		qty         int32
		priceSource string
		stockSource string
	)
	err := row.Scan(
		&it.ID, &it.ProductID, &it.SKU, &it.Name, &qty, &it.UnitPrice, &it.LineTotal,
		&priceSource, &it.SupplierID, &it.WarehouseID, &stockSource,
	)
	it.Quantity = int(qty)
	it.PriceSource = pricing.Source(priceSource)
	it.StockSource = stock.Source(stockSource)
	return it, err
}

func scanApproval(row pgx.CollectableRow) (order.ApprovalRequest, error) {
	var (
		a      order.ApprovalRequest
		status string
	)
	err := row.Scan(&a.ID, &a.OrderID, &a.RequestedByMemberID, &a.ApproverMemberID,
		&a.OrderTotal, &status, &a.CreatedAt)
	a.Status = approval.Status(status)
	return a, err
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	_, err := tx.Exec(ctx, createOrderSQL,
		o.ID, o.Number, o.AccountID, o.Tier.String(), string(o.Status), string(o.PaymentStatus),
		o.PaymentMethod, o.PaymentIntentID, string(o.ShippingMethod),
		o.Subtotal, o.Discount, o.ShippingCost, o.Tax, o.Total,
		o.CouponCode, o.CouponID, o.ShippingAddress.ID, o.BillingAddress.ID, o.CostCenterID,
		o.CreatedByMemberID, o.Notes, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, orderItemColumns,
		pgx.CopyFromSlice(len(o.Items), func(i int) ([]any, error) {
			it := o.Items[i]
			return []any{
				it.ID, o.ID, it.ProductID, it.SKU, it.Name, it.Quantity, it.UnitPrice, it.LineTotal,
				string(it.PriceSource), it.SupplierID, it.WarehouseID, string(it.StockSource), i,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("creating items of order %q: %w", o.Number, err)
	}
	return nil
}

func insertApproval(ctx context.Context, tx pgx.Tx, a order.ApprovalRequest) error {
	_, err := tx.Exec(ctx, createApprovalSQL,
		a.ID, a.OrderID, a.RequestedByMemberID, a.ApproverMemberID, a.OrderTotal, string(a.Status), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating approval for order %q: %w", a.OrderID, err)
	}
	return nil
}
