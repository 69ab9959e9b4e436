// Command seed-db loads development fixtures and prints a session token for
// each seeded account.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/tiered-checkout/internal/domain/auth"
	"github.com/xenking/tiered-checkout/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		jwtSecret   string
		issuer      string
		tokenTTL    time.Duration
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&jwtSecret, "jwt-secret", "", "session signing secret (or CHECKOUT_AUTH_JWT_SECRET env)")
	flag.StringVar(&issuer, "issuer", "", "session token issuer")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of printed session tokens")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("CHECKOUT_AUTH_JWT_SECRET")
	}
	if databaseURL == "" || jwtSecret == "" {
		lg.Fatal("Database URL and session secret are required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, auth.NewSessions([]byte(jwtSecret), issuer), tokenTTL); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, sessions *auth.Sessions, ttl time.Duration) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seed(ctx, lg, postgres.NewSeeder(pool)); err != nil {
		return err
	}

	for _, a := range accounts {
		token, err := sessions.Issue(a.ID, ttl)
		if err != nil {
			return errors.Wrapf(err, "issue token for %s", a.ID)
		}
		lg.Info("Session token", zap.String("account_id", a.ID), zap.String("type", a.Type), zap.String("token", token))
	}
	return nil
}
