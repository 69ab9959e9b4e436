package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/auth"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/wire"
)

// PreviewCoupon handles POST /api/coupons/validate. Rejections are reported
// as {"valid": false, "reason": ...} with 200 so storefronts can show them
// inline.
func (h *Handler) PreviewCoupon(w http.ResponseWriter, r *http.Request) {
	var (
		code     string
		subtotal decimal.Decimal
	)
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 256)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Str()
			code = v
			return err
		case "subtotal":
			v, err := optDecimal(d)
			if v != nil {
				subtotal = *v
			}
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, badRequest(errors.Wrap(err, "invalid request body").Error()))
		return
	}
	if code == "" {
		writeError(w, badRequest("code is required"))
		return
	}

	app, err := h.checkout.PreviewCoupon(r.Context(), auth.AccountID(r.Context()), code, subtotal)
	var ce *order.CouponError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
			e.ObjStart()
			e.Field("valid", func(e *jx.Encoder) { e.Bool(false) })
			e.Field("code", func(e *jx.Encoder) { e.Str(ce.Code) })
			e.Field("reason", func(e *jx.Encoder) { e.Str(ce.Reason()) })
			e.ObjEnd()
		})
		return
	}
	if err != nil {
		writeError(w, orderError(r, err))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("valid", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("code", func(e *jx.Encoder) { e.Str(app.Coupon.Code) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(app.Coupon.Type)) })
		e.Field("discount", func(e *jx.Encoder) { wire.Money(e, app.Discount.Amount) })
		e.Field("freeShipping", func(e *jx.Encoder) { e.Bool(app.Discount.FreeShipping) })
		e.ObjEnd()
	})
}
