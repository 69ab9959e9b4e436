package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/product"
)

const (
	upsertAccountSQL = `INSERT INTO accounts (id, email, account_type, gsa_approval_status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET account_type = EXCLUDED.account_type,
			gsa_approval_status = EXCLUDED.gsa_approval_status`

	upsertProfileSQL = `INSERT INTO business_profiles (id, name, requires_approval, approval_threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET requires_approval = EXCLUDED.requires_approval,
			approval_threshold = EXCLUDED.approval_threshold`

	upsertMemberSQL = `INSERT INTO business_members (id, profile_id, account_id, role, active, cost_center_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, active = EXCLUDED.active,
			cost_center_id = EXCLUDED.cost_center_id`

	upsertProductSQL = `INSERT INTO products (id, sku, name, category_id, brand_id, base_price, sale_price,
			wholesale_price, government_price, stock_quantity, weight, default_supplier_id, default_warehouse_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, base_price = EXCLUDED.base_price,
			sale_price = EXCLUDED.sale_price, wholesale_price = EXCLUDED.wholesale_price,
			government_price = EXCLUDED.government_price, stock_quantity = EXCLUDED.stock_quantity,
			weight = EXCLUDED.weight, default_supplier_id = EXCLUDED.default_supplier_id,
			default_warehouse_id = EXCLUDED.default_warehouse_id`

	upsertAddressSQL = `INSERT INTO addresses (id, account_id, name, line1, line2, city, state, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	upsertCouponSQL = `INSERT INTO coupons (id, code, discount_type, value, max_discount, min_purchase,
			usage_limit, usage_count, starts_at, ends_at, active, account_types)
		VALUES ($1, UPPER($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT ((UPPER(code))) DO UPDATE SET discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			max_discount = EXCLUDED.max_discount, min_purchase = EXCLUDED.min_purchase,
			usage_limit = EXCLUDED.usage_limit, starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
			active = EXCLUDED.active, account_types = EXCLUDED.account_types`

	upsertSettingSQL = `INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	upsertRuleSQL = `INSERT INTO discount_rules (id, account_type, percentage, minimum_order,
			category_id, brand_id, supplier_id, warehouse_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET percentage = EXCLUDED.percentage, minimum_order = EXCLUDED.minimum_order`

	upsertCartSQL = `INSERT INTO carts (id, account_id) VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET account_id = EXCLUDED.account_id
		RETURNING id`

	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity) VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`
)

// Seeder writes development and test fixtures. Every write is an upsert so
// seeding can be repeated.
type Seeder struct {
	pool *pgxpool.Pool
}

// NewSeeder returns a Seeder that uses the given pool.
func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

// Account upserts an account with the identity layer's raw type strings.
func (s *Seeder) Account(ctx context.Context, a account.Account, email string) error {
	if _, err := s.pool.Exec(ctx, upsertAccountSQL, a.ID, email, a.Type, a.GovernmentApproval); err != nil {
		return fmt.Errorf("upserting account %q: %w", a.ID, err)
	}
	return nil
}

// Profile upserts a business profile's approval policy.
func (s *Seeder) Profile(ctx context.Context, id, name string, requiresApproval bool, threshold *decimal.Decimal) error {
	if _, err := s.pool.Exec(ctx, upsertProfileSQL, id, name, requiresApproval, threshold); err != nil {
		return fmt.Errorf("upserting profile %q: %w", id, err)
	}
	return nil
}

// Member upserts a business profile member linked to an account.
func (s *Seeder) Member(ctx context.Context, id, profileID, accountID, role string, active bool, costCenterID *string) error {
	if _, err := s.pool.Exec(ctx, upsertMemberSQL, id, profileID, accountID, role, active, costCenterID); err != nil {
		return fmt.Errorf("upserting member %q: %w", id, err)
	}
	return nil
}

// Product upserts a catalog product.
func (s *Seeder) Product(ctx context.Context, p product.Product) error {
	_, err := s.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.SKU, p.Name, p.CategoryID, p.BrandID,
		p.Prices.Base, p.Prices.Sale, p.Prices.Wholesale, p.Prices.Government,
		p.StockQuantity, p.Weight, p.DefaultSupplierID, p.DefaultWarehouseID,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// Address upserts a saved address.
func (s *Seeder) Address(ctx context.Context, a order.Address) error {
	_, err := s.pool.Exec(ctx, upsertAddressSQL,
		a.ID, a.AccountID, a.Name, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
	)
	if err != nil {
		return fmt.Errorf("upserting address %q: %w", a.ID, err)
	}
	return nil
}

// Coupon upserts a coupon by code. The usage count is only set on insert.
func (s *Seeder) Coupon(ctx context.Context, c coupon.Coupon) error {
	tiers := make([]string, len(c.Tiers))
	for i, t := range c.Tiers {
		tiers[i] = t.String()
	}
	_, err := s.pool.Exec(ctx, upsertCouponSQL,
		c.ID, c.Code, string(c.Type), c.Value, c.MaxDiscount, c.MinPurchase,
		c.UsageLimit, c.UsageCount, c.StartsAt, c.EndsAt, c.Active, tiers,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// Setting upserts one settings key.
func (s *Seeder) Setting(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, upsertSettingSQL, key, value); err != nil {
		return fmt.Errorf("upserting setting %q: %w", key, err)
	}
	return nil
}

// Rule upserts a discount rule.
func (s *Seeder) Rule(ctx context.Context, r pricing.Rule) error {
	_, err := s.pool.Exec(ctx, upsertRuleSQL,
		r.ID, r.Tier.String(), r.Percentage, r.MinimumOrder,
		r.CategoryID, r.BrandID, r.SupplierID, r.WarehouseID,
	)
	if err != nil {
		return fmt.Errorf("upserting discount rule %q: %w", r.ID, err)
	}
	return nil
}

// CartItem sets the quantity of a product in the account's cart, creating
// the cart when needed.
func (s *Seeder) CartItem(ctx context.Context, accountID, productID string, quantity int) error {
	var cartID string
	if err := s.pool.QueryRow(ctx, upsertCartSQL, "cart-"+accountID, accountID).Scan(&cartID); err != nil {
		return fmt.Errorf("upserting cart for %q: %w", accountID, err)
	}
	itemID := cartID + "-" + productID
	if _, err := s.pool.Exec(ctx, upsertCartItemSQL, itemID, cartID, productID, quantity); err != nil {
		return fmt.Errorf("upserting cart item %q: %w", itemID, err)
	}
	return nil
}
