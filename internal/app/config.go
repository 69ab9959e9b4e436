package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/tiered-checkout/internal/domain/order"
	"github.com/xenking/tiered-checkout/internal/domain/stock"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Redis       RedisConfig
	Auth        AuthConfig
	Checkout    CheckoutConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// RedisConfig locates the Redis instance used for order events and shared
// rate limiting. An empty Addr disables both.
type RedisConfig struct {
	Addr     string `default:"" usage:"Redis address host:port (or REDIS_URL)"`
	Password string `default:"" usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database"`
	Stream   string `default:"orders:placed" usage:"Stream receiving committed orders"`
	MaxLen   int64  `default:"100000" usage:"Approximate stream length cap" flag:"redis-max-len"`
}

// AuthConfig verifies session tokens minted by the identity layer.
type AuthConfig struct {
	JWTSecret string `usage:"HS256 session signing secret (CHECKOUT_AUTH_JWT_SECRET)" flag:"jwt-secret"`
	Issuer    string `default:"" usage:"Expected token issuer; empty accepts any"`
}

// CheckoutConfig selects checkout policies.
type CheckoutConfig struct {
	CouponPolicy string `default:"reject" usage:"Unusable coupon handling: reject or warn" flag:"coupon-policy"`
	StockPolicy  string `default:"backorder" usage:"Short stock handling: backorder or strict" flag:"stock-policy"`
}

// RateLimitConfig bounds coupon preview lookups per account.
type RateLimitConfig struct {
	CouponMax    int           `default:"10" usage:"Coupon previews per window" flag:"coupon-rate-max"`
	CouponWindow time.Duration `default:"1m" usage:"Coupon preview window" flag:"coupon-rate-window"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML files,
// then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.applyPlatformDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL, REDIS_URL and PORT
// variables set by hosting platforms onto the configuration.
func (c *Config) applyPlatformDefaults() error {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if u := os.Getenv("REDIS_URL"); u != "" && c.Redis.Addr == "" {
		opt, err := redis.ParseURL(u)
		if err != nil {
			return errors.Wrap(err, "parse REDIS_URL")
		}
		c.Redis.Addr, c.Redis.Password, c.Redis.DB = opt.Addr, opt.Password, opt.DB
	}
	return nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("session secret is required: set CHECKOUT_AUTH_JWT_SECRET")
	}
	switch order.CouponPolicy(c.Checkout.CouponPolicy) {
	case order.CouponReject, order.CouponWarn:
	default:
		return errors.Errorf("unknown coupon policy %q", c.Checkout.CouponPolicy)
	}
	switch stock.Policy(c.Checkout.StockPolicy) {
	case stock.PolicyBackorder, stock.PolicyStrict:
	default:
		return errors.Errorf("unknown stock policy %q", c.Checkout.StockPolicy)
	}
	if c.RateLimit.CouponMax <= 0 || c.RateLimit.CouponWindow <= 0 {
		return errors.New("coupon rate limit must be positive")
	}
	return nil
}
