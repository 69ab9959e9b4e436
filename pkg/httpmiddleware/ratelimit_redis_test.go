//go:build integration

package httpmiddleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisLimiter(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	l := NewRedisLimiter(rdb, "test:ratelimit:", Quota{Max: 3, Window: time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := range 3 {
		v, err := l.Allow(ctx, "acc-1")
		require.NoError(t, err)
		assert.True(t, v.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, v.Remaining)
	}

	v, err := l.Allow(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.True(t, v.ResetAt.After(now))

	v, err = l.Allow(ctx, "acc-2")
	require.NoError(t, err)
	assert.True(t, v.Allowed)

	// One token refills every 20s.
	now = now.Add(21 * time.Second)
	v, err = l.Allow(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, v.Allowed)

	ttl, err := rdb.TTL(ctx, "test:ratelimit:acc-1").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
