package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/tiered-checkout/internal/domain/order"
)

type fakeStreamer struct {
	args *redis.XAddArgs
	err  error
}

func (f *fakeStreamer) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = a
	return redis.NewStringResult("1-0", f.err)
}

func TestStream_OrderPlaced(t *testing.T) {
	f := &fakeStreamer{}
	s := NewStream(f, "", 1000)

	err := s.OrderPlaced(context.Background(), &order.Order{
		ID:        "o-1",
		Number:    "ORD-1",
		AccountID: "a-1",
		Status:    order.StatusPending,
		Total:     decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)

	require.NotNil(t, f.args)
	assert.Equal(t, DefaultStream, f.args.Stream)
	assert.EqualValues(t, 1000, f.args.MaxLen)
	assert.True(t, f.args.Approx)

	values := f.args.Values.(map[string]any)
	assert.Equal(t, "ORD-1", values["order_number"])
	assert.Equal(t, "PENDING", values["status"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &payload))
	assert.Equal(t, 12.5, payload["total"])
}

func TestStream_OrderPlacedError(t *testing.T) {
	f := &fakeStreamer{err: errors.New("connection refused")}
	s := NewStream(f, "custom", 0)

	err := s.OrderPlaced(context.Background(), &order.Order{Number: "ORD-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xadd custom")
	assert.Zero(t, f.args.MaxLen)
}

func TestLog_OrderPlaced(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	require.NoError(t, Log{}.OrderPlaced(ctx, &order.Order{
		Number: "ORD-3",
		Status: order.StatusOnHold,
		Total:  decimal.RequireFromString("650"),
	}))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "ORD-3", fields["order_number"])
	assert.Equal(t, "ON_HOLD", fields["status"])
	assert.Equal(t, "650.00", fields["total"])
}
