package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/tiered-checkout/internal/domain/auth"
	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/domain/stock"
	"github.com/xenking/tiered-checkout/internal/handler"
	"github.com/xenking/tiered-checkout/internal/notify"
	"github.com/xenking/tiered-checkout/internal/storage/postgres"
	"github.com/xenking/tiered-checkout/pkg/health"
	"github.com/xenking/tiered-checkout/pkg/httpmiddleware"
)

const serviceName = "tiered-checkout"

// Run creates all dependencies, serves HTTP and shuts down gracefully when
// ctx is cancelled. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("coupon_policy", cfg.Checkout.CouponPolicy),
		zap.String("stock_policy", cfg.Checkout.StockPolicy),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	g, ctx := errgroup.WithContext(ctx)

	healthSvc := health.New()
	healthSvc.Readiness(health.Check{Name: "postgres", Timeout: 5 * time.Second, Func: health.Ping(pool)})
	healthSvc.Liveness(health.Check{Name: "goroutines", Func: health.GoroutineCount(10000)})

	couponQuota := httpmiddleware.Quota{Max: cfg.RateLimit.CouponMax, Window: cfg.RateLimit.CouponWindow}
	var (
		notifier order.Notifier = notify.Log{}
		limiter  httpmiddleware.Limiter
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		healthSvc.Readiness(health.Check{Name: "redis", Timeout: 2 * time.Second, Func: health.RedisPing(rdb)})
		notifier = notify.NewStream(rdb, cfg.Redis.Stream, cfg.Redis.MaxLen)
		limiter = httpmiddleware.NewRedisLimiter(rdb, "checkout:ratelimit:coupon:", couponQuota)
	} else {
		lg.Warn("Redis not configured; order events go to the log and rate limits are per process")
		wl := httpmiddleware.NewWindowLimiter(couponQuota)
		g.Go(func() error { return wl.Run(ctx) })
		limiter = wl
	}

	orderService, err := order.NewService(
		postgres.NewUnitOfWork(pool),
		postgres.NewAccountRepository(pool),
		postgres.NewOrderRepository(pool),
		notifier,
		order.Options{
			CouponPolicy:   order.CouponPolicy(cfg.Checkout.CouponPolicy),
			StockPolicy:    stock.Policy(cfg.Checkout.StockPolicy),
			MeterProvider:  m.MeterProvider(),
			TracerProvider: m.TracerProvider(),
			CouponFinder:   postgres.NewCouponRepository(pool),
		},
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.New(orderService).Register(mux, httpmiddleware.RateLimit(limiter, accountOrIP))

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	sessions := auth.NewSessions([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
			httpmiddleware.Authenticate(sessions),
		),
	}

	g.Go(func() error { return healthSvc.Run(ctx, 10*time.Second) })
	g.Go(func() error {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// accountOrIP keys coupon previews by session, falling back to the client
// address for anonymous callers.
func accountOrIP(r *http.Request) string {
	if id := auth.AccountID(r.Context()); id != "" {
		return "account:" + id
	}
	return "ip:" + httpmiddleware.ClientIP(r)
}
