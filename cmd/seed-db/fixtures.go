package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/product"
	"github.com/xenking/tiered-checkout/internal/domain/settings"
	"github.com/xenking/tiered-checkout/internal/storage/postgres"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ptr[T any](v T) *T { return &v }

var accounts = []account.Account{
	{ID: "acc-personal", Type: "B2C"},
	{ID: "acc-business", Type: "B2B"},
	{ID: "acc-government", Type: "GSA", GovernmentApproval: "APPROVED"},
}

var products = []product.Product{
	{
		ID: "prod-gloves", SKU: "GLV-100", Name: "Nitrile Gloves (100)", CategoryID: "cat-ppe", BrandID: "brand-acme",
		Prices:        product.Prices{Base: decimal.RequireFromString("24.99"), Sale: dec("19.99"), Wholesale: dec("17.50"), Government: dec("16.00")},
		StockQuantity: 500, Weight: decimal.RequireFromString("2"), DefaultWarehouseID: ptr("wh-east"),
	},
	{
		ID: "prod-monitor", SKU: "MON-27", Name: "27in Monitor", CategoryID: "cat-electronics", BrandID: "brand-view",
		Prices:        product.Prices{Base: decimal.RequireFromString("329.00"), Wholesale: dec("289.00"), Government: dec("275.00")},
		StockQuantity: 3, Weight: decimal.RequireFromString("14.5"), DefaultSupplierID: ptr("sup-view"),
	},
	{
		ID: "prod-desk", SKU: "DSK-STD", Name: "Standing Desk", CategoryID: "cat-furniture", BrandID: "brand-lift",
		Prices:        product.Prices{Base: decimal.RequireFromString("649.00"), Wholesale: dec("579.00")},
		StockQuantity: 0, Weight: decimal.RequireFromString("62"), DefaultSupplierID: ptr("sup-lift"),
	},
}

var coupons = []coupon.Coupon{
	{ID: "cpn-save10", Code: "SAVE10", Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(10), MaxDiscount: dec("50"), Active: true},
	{ID: "cpn-take20", Code: "TAKE20", Type: coupon.DiscountFixed, Value: decimal.NewFromInt(20), MinPurchase: dec("100"), UsageLimit: ptr(100), Active: true},
	{ID: "cpn-shipfree", Code: "SHIPFREE", Type: coupon.DiscountFreeShipping, Active: true},
	{ID: "cpn-biz15", Code: "BIZ15", Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(15), Active: true,
		Tiers: []account.Tier{account.Organizational}},
}

var rules = []pricing.Rule{
	{ID: "rule-biz-furniture", Tier: account.Organizational, Percentage: decimal.NewFromInt(5), CategoryID: ptr("cat-furniture")},
}

func seed(ctx context.Context, lg *zap.Logger, s *postgres.Seeder) error {
	for _, a := range accounts {
		if err := s.Account(ctx, a, a.ID+"@example.com"); err != nil {
			return err
		}
		if err := s.Address(ctx, order.Address{
			ID: "addr-" + a.ID, AccountID: a.ID, Name: "Receiving", Line1: "100 Main St",
			City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
		}); err != nil {
			return err
		}
	}

	if err := s.Profile(ctx, "prof-business", "Business Co", true, dec("500")); err != nil {
		return err
	}
	if err := s.Member(ctx, "mem-buyer", "prof-business", "acc-business", "PURCHASER", true, ptr("cc-ops")); err != nil {
		return err
	}
	if err := s.Account(ctx, account.Account{ID: "acc-approver", Type: "B2B"}, "approver@example.com"); err != nil {
		return err
	}
	if err := s.Member(ctx, "mem-admin", "prof-business", "acc-approver", "ACCOUNT_ADMIN", true, nil); err != nil {
		return err
	}

	for _, p := range products {
		if err := s.Product(ctx, p); err != nil {
			return err
		}
	}
	now := time.Now()
	for _, c := range coupons {
		c.StartsAt = now.Add(-time.Hour)
		if err := s.Coupon(ctx, c); err != nil {
			return err
		}
	}
	for _, r := range rules {
		if err := s.Rule(ctx, r); err != nil {
			return err
		}
	}

	defaults := settings.Default()
	for key, value := range map[string]string{
		settings.KeyFreeShippingThreshold: defaults.FreeShippingThreshold.String(),
		settings.KeyTaxRate:               defaults.TaxRate.String(),
	} {
		if err := s.Setting(ctx, key, value); err != nil {
			return err
		}
	}

	for _, a := range accounts {
		if err := s.CartItem(ctx, a.ID, "prod-gloves", 2); err != nil {
			return errors.Wrap(err, "seed cart")
		}
	}
	if err := s.CartItem(ctx, "acc-business", "prod-desk", 1); err != nil {
		return errors.Wrap(err, "seed cart")
	}

	lg.Info("Fixtures loaded",
		zap.Int("accounts", len(accounts)),
		zap.Int("products", len(products)),
		zap.Int("coupons", len(coupons)),
	)
	return nil
}
