// Package wire encodes checkout results as JSON for HTTP responses and
// order events.
package wire

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/order"
)

// Money writes an amount as a JSON number with two decimals.
func Money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func optStr(e *jx.Encoder, name string, v *string) {
	e.FieldStart(name)
	if v == nil {
		e.Null()
		return
	}
	e.Str(*v)
}

// EncodeOrder writes o and any checkout warnings as one JSON object.
func EncodeOrder(e *jx.Encoder, o *order.Order, warnings []order.Warning) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
	e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.Number) })
	e.Field("accountId", func(e *jx.Encoder) { e.Str(o.AccountID) })
	e.Field("accountType", func(e *jx.Encoder) { e.Str(o.Tier.String()) })
	e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
	e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
	e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
	e.Field("shippingMethod", func(e *jx.Encoder) { e.Str(string(o.ShippingMethod)) })
	e.Field("subtotal", func(e *jx.Encoder) { Money(e, o.Subtotal) })
	e.Field("discount", func(e *jx.Encoder) { Money(e, o.Discount) })
	e.Field("shippingCost", func(e *jx.Encoder) { Money(e, o.ShippingCost) })
	e.Field("tax", func(e *jx.Encoder) { Money(e, o.Tax) })
	e.Field("total", func(e *jx.Encoder) { Money(e, o.Total) })
	if o.CouponCode != "" {
		e.Field("couponCode", func(e *jx.Encoder) { e.Str(o.CouponCode) })
	}
	optStr(e, "costCenterId", o.CostCenterID)
	if o.Notes != "" {
		e.Field("notes", func(e *jx.Encoder) { e.Str(o.Notes) })
	}
	e.Field("shippingAddress", func(e *jx.Encoder) { encodeAddress(e, o.ShippingAddress) })
	e.Field("billingAddress", func(e *jx.Encoder) { encodeAddress(e, o.BillingAddress) })
	e.Field("items", func(e *jx.Encoder) {
		e.ArrStart()
		for _, it := range o.Items {
			encodeItem(e, it)
		}
		e.ArrEnd()
	})
	if o.Approval != nil {
		e.Field("approval", func(e *jx.Encoder) { encodeApproval(e, *o.Approval) })
	}
	e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
	if len(warnings) > 0 {
		e.Field("warnings", func(e *jx.Encoder) { EncodeWarnings(e, warnings) })
	}
	e.ObjEnd()
}

// EncodeWarnings writes warnings as an array of {code, reason} objects.
func EncodeWarnings(e *jx.Encoder, warnings []order.Warning) {
	e.ArrStart()
	for _, w := range warnings {
		e.ObjStart()
		e.Field("code", func(e *jx.Encoder) { e.Str(w.Code) })
		e.Field("reason", func(e *jx.Encoder) { e.Str(w.Reason) })
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
	e.Field("name", func(e *jx.Encoder) { e.Str(a.Name) })
	e.Field("line1", func(e *jx.Encoder) { e.Str(a.Line1) })
	if a.Line2 != "" {
		e.Field("line2", func(e *jx.Encoder) { e.Str(a.Line2) })
	}
	e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
	e.Field("state", func(e *jx.Encoder) { e.Str(a.State) })
	e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
	e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
	e.ObjEnd()
}

func encodeItem(e *jx.Encoder, it order.Item) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
	e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
	e.Field("sku", func(e *jx.Encoder) { e.Str(it.SKU) })
	e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
	e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
	e.Field("unitPrice", func(e *jx.Encoder) { Money(e, it.UnitPrice) })
	e.Field("lineTotal", func(e *jx.Encoder) { Money(e, it.LineTotal) })
	e.Field("priceSource", func(e *jx.Encoder) { e.Str(string(it.PriceSource)) })
	optStr(e, "supplierId", it.SupplierID)
	optStr(e, "warehouseId", it.WarehouseID)
	e.Field("stockSource", func(e *jx.Encoder) { e.Str(string(it.StockSource)) })
	e.ObjEnd()
}

func encodeApproval(e *jx.Encoder, a order.ApprovalRequest) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
	e.Field("approverMemberId", func(e *jx.Encoder) { e.Str(a.ApproverMemberID) })
	e.Field("requestedByMemberId", func(e *jx.Encoder) { e.Str(a.RequestedByMemberID) })
	e.Field("orderTotal", func(e *jx.Encoder) { Money(e, a.OrderTotal) })
	e.Field("status", func(e *jx.Encoder) { e.Str(string(a.Status)) })
	e.ObjEnd()
}
