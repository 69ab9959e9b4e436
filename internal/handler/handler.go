// Package handler serves the checkout HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/coupon"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/pkg/httpmiddleware"
)

// maxBodySize bounds request bodies.
const maxBodySize = 64 << 10

// Checkout is the order service as seen by the HTTP layer.
type Checkout interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	GetOrder(ctx context.Context, accountID, number string) (*order.Order, error)
	PreviewCoupon(ctx context.Context, accountID, code string, subtotal decimal.Decimal) (*coupon.Application, error)
}

var _ Checkout = (*order.Service)(nil)

// Handler maps HTTP requests onto Checkout.
type Handler struct {
	checkout Checkout
}

// New creates a Handler.
func New(checkout Checkout) *Handler {
	return &Handler{checkout: checkout}
}

// Register mounts the API on mux. couponLimit guards the coupon preview
// endpoint; nil leaves it unlimited.
func (h *Handler) Register(mux *http.ServeMux, couponLimit httpmiddleware.Middleware) {
	var preview http.Handler = http.HandlerFunc(h.PreviewCoupon)
	if couponLimit != nil {
		preview = couponLimit(preview)
	}

	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders/{number}", h.GetOrder)
	mux.Handle("POST /api/coupons/validate", preview)
}

type apiError struct {
	status  int
	message string
	reason  string
}

func writeError(w http.ResponseWriter, e apiError) {
	writeJSON(w, e.status, func(enc *jx.Encoder) {
		enc.ObjStart()
		enc.Field("code", func(enc *jx.Encoder) { enc.Int(e.status) })
		enc.Field("message", func(enc *jx.Encoder) { enc.Str(e.message) })
		if e.reason != "" {
			enc.Field("reason", func(enc *jx.Encoder) { enc.Str(e.reason) })
		}
		enc.ObjEnd()
	})
}

func writeJSON(w http.ResponseWriter, status int, body func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	body(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func badRequest(msg string) apiError {
	return apiError{status: http.StatusBadRequest, message: msg}
}
