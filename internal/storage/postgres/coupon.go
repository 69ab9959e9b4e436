package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, value, max_discount, min_purchase,
		usage_limit, usage_count, starts_at, ends_at, active, account_types
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	// Zero affected rows means the limit was reached, including by a
	// concurrent transaction that committed first.
	redeemCouponSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`
)

var _ coupon.Finder = (*CouponRepository)(nil)

// CouponRepository implements coupon.Finder outside a checkout transaction.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrCouponNotFound when no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCouponByCode(ctx, r.pool, code)
}

func findCouponByCode(ctx context.Context, q querier, code string) (*coupon.Coupon, error) {
	rows, err := q.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func redeemCoupon(ctx context.Context, q querier, id string) error {
	tag, err := q.Exec(ctx, redeemCouponSQL, id)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCouponUsageLimitReached
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		usageLimit   *int32
		usageCount   int32
		accountTypes []string
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.Value, &c.MaxDiscount, &c.MinPurchase,
		&usageLimit, &usageCount, &c.StartsAt, &c.EndsAt, &c.Active, &accountTypes,
	)
	c.Type = coupon.DiscountType(discountType)
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimit = &limit
	}
	c.UsageCount = int(usageCount)
	for _, t := range accountTypes {
		c.Tiers = append(c.Tiers, account.ParseTier(t))
	}
	return c, err
}
