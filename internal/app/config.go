package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SOUQ_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SOUQ_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWTSecret   string `usage:"HMAC secret for bearer token verification (SOUQ_JWT_SECRET)" flag:"jwt-secret"`
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
	PayPal      PayPalConfig
	Ziina       ZiinaConfig
	Reconcile   ReconcileConfig
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// PayPalConfig holds the PayPal REST API credentials.
type PayPalConfig struct {
	BaseURL  string `default:"https://api-m.sandbox.paypal.com" usage:"PayPal API base URL" flag:"paypal-base-url"`
	ClientID string `usage:"PayPal client id" flag:"paypal-client-id"`
	Secret   string `usage:"PayPal client secret" flag:"paypal-secret"`
	Currency string `default:"AED" usage:"PayPal order currency" flag:"paypal-currency"`
}

// ZiinaConfig holds the Ziina payment intent API credentials.
type ZiinaConfig struct {
	BaseURL    string `default:"https://api-v2.ziina.com" usage:"Ziina API base URL" flag:"ziina-base-url"`
	APIKey     string `usage:"Ziina API key" flag:"ziina-api-key"`
	SuccessURL string `usage:"Redirect URL after successful payment" flag:"ziina-success-url"`
	CancelURL  string `usage:"Redirect URL after cancelled payment" flag:"ziina-cancel-url"`
}

// ReconcileConfig controls the pending-payment reconciliation job.
type ReconcileConfig struct {
	Interval time.Duration `default:"5m"  usage:"How often to scan for stale pending payments" flag:"reconcile-interval"`
	Timeout  time.Duration `default:"30m" usage:"How long an order may await payment before restock" flag:"reconcile-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SOUQ",
		Files:     []string{"config.yaml", "/etc/souq/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SOUQ_DATABASE_URL or DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set SOUQ_JWT_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SOUQ_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
