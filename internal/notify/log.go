package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/tiered-checkout/internal/domain/order"
)

var _ order.Notifier = Log{}

// Log records committed orders in the service log. It stands in for Stream
// when no Redis is configured.
type Log struct{}

// OrderPlaced implements order.Notifier.
func (Log) OrderPlaced(ctx context.Context, o *order.Order) error {
	zctx.From(ctx).Info("Order placed",
		zap.String("order_number", o.Number),
		zap.String("account_id", o.AccountID),
		zap.String("status", string(o.Status)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	return nil
}
