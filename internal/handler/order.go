package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/tiered-checkout/internal/domain/auth"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/wire"
)

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())
	if accountID == "" {
		writeError(w, orderError(r, order.ErrUnauthenticated))
		return
	}
	req, err := decodePlaceOrder(jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 1024))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	req.AccountID = accountID

	res, err := h.checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, orderError(r, err))
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		wire.EncodeOrder(e, res.Order, res.Warnings)
	})
}

// GetOrder handles GET /api/orders/{number}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkout.GetOrder(r.Context(), auth.AccountID(r.Context()), r.PathValue("number"))
	if err != nil {
		writeError(w, orderError(r, err))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeOrder(e, o, nil)
	})
}

func decodePlaceOrder(d *jx.Decoder) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "shippingAddressId":
			req.ShippingAddressID, err = d.Str()
		case "billingAddressId":
			req.BillingAddressID, err = optStr(d)
		case "shippingMethod":
			req.ShippingMethod, err = optStr(d)
		case "paymentMethod":
			req.PaymentMethod, err = optStr(d)
		case "paymentIntentId":
			req.PaymentIntentID, err = optStr(d)
		case "couponCode":
			req.CouponCode, err = optStr(d)
		case "notes":
			req.Notes, err = optStr(d)
		case "costCenterId":
			var s string
			if s, err = optStr(d); err == nil && s != "" {
				req.CostCenterID = &s
			}
		case "shippingCost":
			req.ClientShippingCost, err = optDecimal(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return req, errors.Wrap(err, "invalid request body")
	}
	if req.ShippingAddressID == "" {
		return req, errors.New("shippingAddressId is required")
	}
	return req, nil
}

func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func optDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	n, err := d.Num()
	if err != nil {
		return nil, err
	}
	v, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func orderError(r *http.Request, err error) apiError {
	var (
		ce *order.CouponError
		se *order.StockConflictError
	)
	switch {
	case errors.Is(err, order.ErrUnauthenticated):
		return apiError{status: http.StatusUnauthorized, message: "authentication required"}
	case errors.Is(err, order.ErrEmptyCart):
		return badRequest(err.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		return apiError{status: http.StatusNotFound, message: err.Error()}
	case errors.Is(err, order.ErrAddressNotFound):
		return apiError{status: http.StatusUnprocessableEntity, message: err.Error()}
	case errors.As(err, &ce):
		return apiError{status: http.StatusUnprocessableEntity, message: "coupon cannot be applied", reason: ce.Reason()}
	case errors.As(err, &se):
		return apiError{status: http.StatusConflict, message: se.Error()}
	}
	zctx.From(r.Context()).Error("Checkout request failed", zap.Error(err))
	return apiError{status: http.StatusInternalServerError, message: "internal error"}
}
