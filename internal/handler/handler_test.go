package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/tiered-checkout/internal/domain/account"
	"github.com/xenking/tiered-checkout/internal/domain/auth"
	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/domain/shipping"
)

type mockCheckout struct {
	placeReq order.PlaceOrderRequest
	placeRes *order.PlaceOrderResult
	placeErr error

	getArgs [2]string
	got     *order.Order
	getErr  error

	previewCode     string
	previewSubtotal decimal.Decimal
	app             *coupon.Application
	previewErr      error
}

func (m *mockCheckout) PlaceOrder(_ context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error) {
	m.placeReq = req
	return m.placeRes, m.placeErr
}

func (m *mockCheckout) GetOrder(_ context.Context, accountID, number string) (*order.Order, error) {
	m.getArgs = [2]string{accountID, number}
	return m.got, m.getErr
}

func (m *mockCheckout) PreviewCoupon(_ context.Context, _ string, code string, subtotal decimal.Decimal) (*coupon.Application, error) {
	m.previewCode, m.previewSubtotal = code, subtotal
	return m.app, m.previewErr
}

func sampleOrder() *order.Order {
	return &order.Order{
		ID:             "o-1",
		Number:         "ORD-1",
		AccountID:      "acc-1",
		Tier:           account.Personal,
		Status:         order.StatusPending,
		PaymentStatus:  order.PaymentPending,
		ShippingMethod: shipping.MethodGround,
		Subtotal:       decimal.RequireFromString("100"),
		ShippingCost:   decimal.Zero,
		Tax:            decimal.RequireFromString("8"),
		Total:          decimal.RequireFromString("108"),
		CreatedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func serve(t *testing.T, m *mockCheckout, method, target, body, accountID string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	New(m).Register(mux, nil)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if accountID != "" {
		req = req.WithContext(auth.WithAccount(req.Context(), accountID))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestPlaceOrder(t *testing.T) {
	m := &mockCheckout{placeRes: &order.PlaceOrderResult{
		Order:    sampleOrder(),
		Warnings: []order.Warning{{Code: order.WarningCouponRejected, Reason: "expired"}},
	}}

	w, body := serve(t, m, http.MethodPost, "/api/orders", `{
		"shippingAddressId": "addr-1",
		"billingAddressId": null,
		"shippingMethod": "EXPRESS",
		"paymentMethod": "card",
		"couponCode": "save10",
		"costCenterId": "cc-1",
		"notes": "leave at dock",
		"shippingCost": 0,
		"unknown": {"nested": [1, 2]}
	}`, "acc-1")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ORD-1", body["orderNumber"])
	assert.Equal(t, 108.0, body["total"])
	assert.Len(t, body["warnings"], 1)

	req := m.placeReq
	assert.Equal(t, "acc-1", req.AccountID)
	assert.Equal(t, "addr-1", req.ShippingAddressID)
	assert.Empty(t, req.BillingAddressID)
	assert.Equal(t, "EXPRESS", req.ShippingMethod)
	assert.Equal(t, "save10", req.CouponCode)
	require.NotNil(t, req.CostCenterID)
	assert.Equal(t, "cc-1", *req.CostCenterID)
	require.NotNil(t, req.ClientShippingCost)
	assert.True(t, req.ClientShippingCost.IsZero())
}

func TestPlaceOrder_BadBody(t *testing.T) {
	for _, tt := range []struct {
		name string
		body string
	}{
		{name: "NotJSON", body: `nope`},
		{name: "WrongType", body: `{"shippingAddressId": 5}`},
		{name: "MissingAddress", body: `{"paymentMethod": "card"}`},
		{name: "BadShippingCost", body: `{"shippingAddressId": "a", "shippingCost": true}`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockCheckout{}
			w, body := serve(t, m, http.MethodPost, "/api/orders", tt.body, "acc-1")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 400.0, body["code"])
			assert.Empty(t, m.placeReq.AccountID, "service must not be called")
		})
	}
}

func TestPlaceOrder_Anonymous(t *testing.T) {
	for _, body := range []string{`{}`, `nope`, `{"shippingAddressId":"a"}`} {
		t.Run(body, func(t *testing.T) {
			m := &mockCheckout{placeRes: &order.PlaceOrderResult{Order: sampleOrder()}}
			w, out := serve(t, m, http.MethodPost, "/api/orders", body, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, 401.0, out["code"])
			assert.Empty(t, m.placeReq.ShippingAddressID, "service must not be called")
		})
	}
}

func TestPlaceOrder_Errors(t *testing.T) {
	for _, tt := range []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{name: "Unauthenticated", err: order.ErrUnauthenticated, status: http.StatusUnauthorized},
		{name: "EmptyCart", err: order.ErrEmptyCart, status: http.StatusBadRequest},
		{name: "Address", err: order.ErrAddressNotFound, status: http.StatusUnprocessableEntity},
		{
			name:   "Coupon",
			err:    &order.CouponError{Code: "OLD", Err: coupon.ErrCouponExpired},
			status: http.StatusUnprocessableEntity,
			reason: "expired",
		},
		{
			name:   "CouponWrapped",
			err:    errors.Wrap(&order.CouponError{Code: "X", Err: coupon.ErrCouponUsageLimitReached}, "commit"),
			status: http.StatusUnprocessableEntity,
			reason: "usage_limit_reached",
		},
		{
			name:   "Stock",
			err:    &order.StockConflictError{ProductID: "p-1", Requested: 5, Available: 2},
			status: http.StatusConflict,
		},
		{name: "Internal", err: errors.New("connection reset"), status: http.StatusInternalServerError},
	} {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockCheckout{placeErr: tt.err}
			w, body := serve(t, m, http.MethodPost, "/api/orders", `{"shippingAddressId":"a"}`, "acc-1")
			assert.Equal(t, tt.status, w.Code)
			assert.EqualValues(t, tt.status, body["code"])
			if tt.reason != "" {
				assert.Equal(t, tt.reason, body["reason"])
			} else {
				assert.NotContains(t, body, "reason")
			}
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["message"])
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	m := &mockCheckout{got: sampleOrder()}
	w, body := serve(t, m, http.MethodGet, "/api/orders/ORD-1", "", "acc-1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"acc-1", "ORD-1"}, m.getArgs)
	assert.Equal(t, "PENDING", body["status"])
	assert.NotContains(t, body, "warnings")
}

func TestGetOrder_NotFound(t *testing.T) {
	m := &mockCheckout{getErr: order.ErrOrderNotFound}
	w, _ := serve(t, m, http.MethodGet, "/api/orders/ORD-404", "", "acc-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewCoupon(t *testing.T) {
	m := &mockCheckout{app: &coupon.Application{
		Coupon:   &coupon.Coupon{Code: "SAVE10", Type: coupon.DiscountPercentage},
		Discount: coupon.Discount{Amount: decimal.RequireFromString("12.5")},
	}}
	w, body := serve(t, m, http.MethodPost, "/api/coupons/validate", `{"code":"save10","subtotal":125}`, "acc-1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "save10", m.previewCode)
	assert.Equal(t, "125", m.previewSubtotal.String())
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, 12.5, body["discount"])
	assert.Equal(t, "percentage", body["discountType"])
}

func TestPreviewCoupon_Rejected(t *testing.T) {
	m := &mockCheckout{previewErr: &order.CouponError{Code: "GONE", Err: coupon.ErrCouponNotFound}}
	w, body := serve(t, m, http.MethodPost, "/api/coupons/validate", `{"code":"gone"}`, "acc-1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "not_found", body["reason"])
}

func TestPreviewCoupon_Errors(t *testing.T) {
	w, _ := serve(t, &mockCheckout{}, http.MethodPost, "/api/coupons/validate", `{"subtotal":1}`, "acc-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, &mockCheckout{previewErr: order.ErrUnauthenticated}, http.MethodPost, "/api/coupons/validate", `{"code":"A"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_CouponLimit(t *testing.T) {
	mux := http.NewServeMux()
	limited := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	New(&mockCheckout{}).Register(mux, limited)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/coupons/validate", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
