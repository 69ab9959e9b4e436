package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/approval"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/pricing"
	"github.com/xenking/tiered-checkout/internal/domain/shipping"
	"github.com/xenking/tiered-checkout/internal/domain/stock"
	"github.com/xenking/tiered-checkout/internal/domain/tax"
)

// CouponPolicy controls what checkout does with a coupon that cannot be applied.
type CouponPolicy string

const (
	// CouponReject fails the checkout with a *CouponError.
	CouponReject CouponPolicy = "reject"
	// CouponWarn places the order without the discount and reports a Warning.
	CouponWarn CouponPolicy = "warn"
)

const instrumentationName = "github.com/xenking/tiered-checkout/internal/domain/order"

// Options configures a Service. Zero values select the defaults.
type Options struct {
	CouponPolicy   CouponPolicy
	StockPolicy    stock.Policy
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	Now            func() time.Time
	// CouponFinder serves coupon previews outside a checkout transaction.
	CouponFinder coupon.Finder
}

func (o *Options) setDefaults() {
	if o.CouponPolicy == "" {
		o.CouponPolicy = CouponReject
	}
	if o.StockPolicy == "" {
		o.StockPolicy = stock.PolicyBackorder
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// PlaceOrderRequest holds the checkout input. Amounts are never taken from
// the client except ClientShippingCost, which is only compared and logged.
type PlaceOrderRequest struct {
	AccountID          string
	ShippingAddressID  string
	BillingAddressID   string
	ShippingMethod     string
	PaymentMethod      string
	PaymentIntentID    string
	CouponCode         string
	CostCenterID       *string
	Notes              string
	ClientShippingCost *decimal.Decimal
}

// PlaceOrderResult holds the committed order and any non-fatal notices.
type PlaceOrderResult struct {
	Order          *Order
	Warnings       []Warning
	ApprovalReason approval.Reason
}

// Service finalizes carts into orders.
type Service struct {
	uow      UnitOfWork
	accounts account.Repository
	orders   Repository
	notifier Notifier
	coupons  *coupon.Validator
	opts     Options

	tracer      trace.Tracer
	placed      metric.Int64Counter
	redemptions metric.Int64Counter
}

// NewService creates an order Service.
func NewService(
	uow UnitOfWork,
	accounts account.Repository,
	orders Repository,
	notifier Notifier,
	opts Options,
) (*Service, error) {
	opts.setDefaults()

	s := &Service{
		uow:      uow,
		accounts: accounts,
		orders:   orders,
		notifier: notifier,
		coupons:  coupon.NewValidator(),
		opts:     opts,
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	s.tracer = tp.Tracer(instrumentationName)

	mp := opts.MeterProvider
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	var err error
	if s.placed, err = meter.Int64Counter("checkout.orders",
		metric.WithDescription("Checkout attempts by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	if s.redemptions, err = meter.Int64Counter("checkout.coupon.redemptions",
		metric.WithDescription("Coupons consumed by committed orders"),
	); err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}

	return s, nil
}

// PlaceOrder recomputes every amount from data read inside one transaction
// and commits the order, approval request, coupon redemption, cart clear and
// stock decrement together.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("account.id", req.AccountID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if req.AccountID == "" {
		s.count(ctx, "unauthenticated")
		return nil, ErrUnauthenticated
	}
	acct, err := s.accounts.Get(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.count(ctx, "unauthenticated")
			return nil, ErrUnauthenticated
		}
		s.count(ctx, "error")
		return nil, errors.Wrap(err, "get account")
	}
	tier := account.Classify(*acct)
	span.SetAttributes(attribute.String("account.tier", tier.String()))

	res, err := s.commit(ctx, req, acct.ID, tier, false)
	if err != nil && s.opts.CouponPolicy == CouponWarn && errors.Is(err, coupon.ErrCouponUsageLimitReached) {
		// Lost the redemption race after validation passed. Place the order
		// without the coupon instead.
		zctx.From(ctx).Info("Coupon exhausted during commit, retrying without it",
			zap.String("coupon", coupon.NormalizeCode(req.CouponCode)),
		)
		res, err = s.commit(ctx, req, acct.ID, tier, true)
		if err == nil {
			res.Warnings = append(res.Warnings, Warning{
				Code:   WarningCouponRejected,
				Reason: coupon.Reason(coupon.ErrCouponUsageLimitReached),
			})
		}
	}
	if err != nil {
		var ce *CouponError
		if errors.Is(err, coupon.ErrCouponUsageLimitReached) && !errors.As(err, &ce) {
			err = &CouponError{Code: coupon.NormalizeCode(req.CouponCode), Err: coupon.ErrCouponUsageLimitReached}
		}
		s.count(ctx, outcome(err))
		return nil, err
	}

	o := res.Order
	lg := zctx.From(ctx).With(
		zap.String("order", o.Number),
		zap.String("status", string(o.Status)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	if res.ApprovalReason == approval.ReasonNoApprover {
		lg.Warn("Approval required but profile has no qualified approver")
	}
	lg.Info("Order placed")

	s.count(ctx, "placed", attribute.String("status", string(o.Status)))
	if o.CouponID != nil {
		s.redemptions.Add(ctx, 1)
	}

	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(context.WithoutCancel(ctx), o); err != nil {
			lg.Error("Notify order placed", zap.Error(err))
		}
	}

	return res, nil
}

func (s *Service) commit(ctx context.Context, req PlaceOrderRequest, accountID string, tier account.Tier, skipCoupon bool) (*PlaceOrderResult, error) {
	var res *PlaceOrderResult
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		r, mutations, err := s.build(ctx, tx, req, accountID, tier, skipCoupon)
		if err != nil {
			return err
		}
		if err := tx.Apply(ctx, mutations); err != nil {
			return errors.Wrap(err, "apply")
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// build reads the authoritative state through tx and computes the order and
// the mutations that commit it.
func (s *Service) build(
	ctx context.Context,
	tx Tx,
	req PlaceOrderRequest,
	accountID string,
	tier account.Tier,
	skipCoupon bool,
) (*PlaceOrderResult, []Mutation, error) {
	c, err := tx.Cart(ctx, accountID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read cart")
	}
	if c.Empty() {
		return nil, nil, ErrEmptyCart
	}

	shipTo, err := tx.Address(ctx, accountID, req.ShippingAddressID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "shipping address")
	}
	billTo := shipTo
	if req.BillingAddressID != "" && req.BillingAddressID != req.ShippingAddressID {
		if billTo, err = tx.Address(ctx, accountID, req.BillingAddressID); err != nil {
			return nil, nil, errors.Wrap(err, "billing address")
		}
	}

	cfg, err := tx.Settings(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read settings")
	}
	rules, err := tx.DiscountRules(ctx, tier)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read discount rules")
	}
	membership, err := tx.Membership(ctx, accountID)
	switch {
	case errors.Is(err, account.ErrNotFound):
		membership = nil
	case err != nil:
		return nil, nil, errors.Wrap(err, "read membership")
	}

	now := s.opts.Now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		Number:          "ORD-" + ulid.Make().String(),
		AccountID:       accountID,
		Tier:            tier,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentIntentID: req.PaymentIntentID,
		ShippingMethod:  shipping.ParseMethod(req.ShippingMethod),
		ShippingAddress: *shipTo,
		BillingAddress:  *billTo,
		CostCenterID:    req.CostCenterID,
		Notes:           req.Notes,
		CreatedAt:       now,
	}
	if membership != nil {
		o.CreatedByMemberID = &membership.ID
		if o.CostCenterID == nil {
			o.CostCenterID = membership.CostCenterID
		}
	}

	var (
		rawSubtotal = pricing.RawSubtotal(c.Lines())
		subtotal    = decimal.Zero
		stockOps    = make([]Mutation, 0, len(c.Items))
		strict      = s.opts.StockPolicy == stock.PolicyStrict
	)
	for _, it := range c.Items {
		p := it.Product
		price := pricing.Resolve(pricing.Input{
			Product:     p,
			Tier:        tier,
			RawSubtotal: rawSubtotal,
			Rules:       rules,
		})
		route := stock.Resolve(p.StockQuantity, it.Quantity, p.DefaultSupplierID)
		if strict && route.Source != stock.OwnedWarehouse {
			return nil, nil, &StockConflictError{
				ProductID: p.ID,
				SKU:       p.SKU,
				Requested: it.Quantity,
				Available: p.StockQuantity,
			}
		}

		lineTotal := price.Unit.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal)

		item := Item{
			ID:          uuid.NewString(),
			ProductID:   p.ID,
			SKU:         p.SKU,
			Name:        p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   price.Unit,
			LineTotal:   lineTotal,
			PriceSource: price.Source,
			WarehouseID: p.DefaultWarehouseID,
			StockSource: route.Source,
		}
		if route.SupplierID != nil {
			item.SupplierID = route.SupplierID
		} else {
			item.SupplierID = p.DefaultSupplierID
		}
		o.Items = append(o.Items, item)

		stockOps = append(stockOps, DecrementStock{ProductID: p.ID, Quantity: it.Quantity, Strict: strict})
	}
	o.Subtotal = subtotal.Round(2)

	res := &PlaceOrderResult{Order: o}

	discount := decimal.Zero
	freeShipping := false
	if code := coupon.NormalizeCode(req.CouponCode); code != "" && !skipCoupon {
		applied, err := s.coupons.Validate(ctx, tx, code, o.Subtotal, tier)
		switch {
		case err == nil:
			discount = applied.Discount.Amount
			freeShipping = applied.Discount.FreeShipping
			o.CouponCode = applied.Coupon.Code
			o.CouponID = &applied.Coupon.ID
		case coupon.Reason(err) == "":
			return nil, nil, err
		case s.opts.CouponPolicy == CouponWarn:
			zctx.From(ctx).Info("Coupon dropped", zap.String("coupon", code), zap.Error(err))
			res.Warnings = append(res.Warnings, Warning{Code: WarningCouponRejected, Reason: coupon.Reason(err)})
		default:
			return nil, nil, &CouponError{Code: code, Err: err}
		}
	}
	o.Discount = clampZero(discount).Round(2)

	quote := shipping.Calculate(shipping.Input{
		Subtotal:     o.Subtotal,
		TotalWeight:  c.TotalWeight(),
		Method:       o.ShippingMethod,
		FreeShipping: freeShipping,
	}, cfg)
	o.ShippingCost = quote.Cost
	if req.ClientShippingCost != nil && !req.ClientShippingCost.Equal(quote.Cost) {
		zctx.From(ctx).Debug("Ignoring client shipping cost",
			zap.String("client", req.ClientShippingCost.String()),
			zap.String("computed", quote.Cost.String()),
		)
	}

	o.Tax = tax.Calculate(tier, tax.TaxableAmount(o.Subtotal, o.Discount), cfg.TaxRate)
	o.Total = clampZero(o.Subtotal.Sub(o.Discount).Add(o.ShippingCost).Add(o.Tax))

	gate := approval.Decide(membership, o.Total)
	res.ApprovalReason = gate.Reason

	mutations := make([]Mutation, 0, len(stockOps)+4)
	mutations = append(mutations, CreateOrder{Order: o})
	if gate.Hold {
		o.Status = StatusOnHold
		o.Approval = &ApprovalRequest{
			ID:                  uuid.NewString(),
			OrderID:             o.ID,
			RequestedByMemberID: membership.ID,
			ApproverMemberID:    gate.ApproverID,
			OrderTotal:          o.Total,
			Status:              approval.StatusPending,
			CreatedAt:           now,
		}
		mutations = append(mutations, CreateApproval{Request: *o.Approval})
	}
	if o.CouponID != nil {
		mutations = append(mutations, RedeemCoupon{CouponID: *o.CouponID})
	}
	mutations = append(mutations, ClearCart{CartID: c.ID})
	mutations = append(mutations, stockOps...)

	return res, mutations, nil
}

// PreviewCoupon validates a coupon against a storefront subtotal for the
// account's tier. It mutates nothing; checkout revalidates inside its
// transaction.
func (s *Service) PreviewCoupon(ctx context.Context, accountID, code string, subtotal decimal.Decimal) (*coupon.Application, error) {
	ctx, span := s.tracer.Start(ctx, "order.PreviewCoupon")
	defer span.End()

	if accountID == "" {
		return nil, ErrUnauthenticated
	}
	if s.opts.CouponFinder == nil {
		return nil, errors.New("coupon preview not configured")
	}
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "get account")
	}

	app, err := s.coupons.Validate(ctx, s.opts.CouponFinder, code, clampZero(subtotal).Round(2), account.Classify(*acct))
	if err != nil {
		if coupon.Reason(err) != "" {
			return nil, &CouponError{Code: coupon.NormalizeCode(code), Err: err}
		}
		span.RecordError(err)
		return nil, err
	}
	return app, nil
}

// GetOrder returns an order owned by accountID.
func (s *Service) GetOrder(ctx context.Context, accountID, number string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder")
	defer span.End()

	if accountID == "" {
		return nil, ErrUnauthenticated
	}
	o, err := s.orders.GetByNumber(ctx, accountID, number)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return o, nil
}

func (s *Service) count(ctx context.Context, result string, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String("outcome", result))
	s.placed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func outcome(err error) string {
	var (
		ce *CouponError
		se *StockConflictError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrAddressNotFound):
		return "address_not_found"
	case errors.As(err, &ce):
		return "coupon_rejected"
	case errors.As(err, &se):
		return "stock_conflict"
	default:
		return "error"
	}
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
