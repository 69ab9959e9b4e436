// Package notify publishes committed orders to downstream consumers.
package notify

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/wire"
)

// DefaultStream receives one entry per committed order.
const DefaultStream = "orders:placed"

// streamer is the subset of redis.Cmdable the notifier needs.
type streamer interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

var (
	_ streamer       = (*redis.Client)(nil)
	_ order.Notifier = (*Stream)(nil)
)

// Stream appends order events to a Redis stream.
type Stream struct {
	rdb    streamer
	stream string
	maxLen int64
}

// NewStream creates a Stream publisher. The stream is trimmed approximately
// to maxLen entries; zero disables trimming.
func NewStream(rdb streamer, stream string, maxLen int64) *Stream {
	if stream == "" {
		stream = DefaultStream
	}
	return &Stream{rdb: rdb, stream: stream, maxLen: maxLen}
}

// OrderPlaced implements order.Notifier.
func (s *Stream) OrderPlaced(ctx context.Context, o *order.Order) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	wire.EncodeOrder(e, o, nil)

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"order_number": o.Number,
			"account_id":   o.AccountID,
			"status":       string(o.Status),
			"payload":      string(e.Bytes()),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return errors.Wrapf(err, "xadd %s", s.stream)
	}
	return nil
}
