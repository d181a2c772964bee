package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/pos-till/internal/domain/auth"
	"github.com/xenking/pos-till/internal/settings"
)

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; empty serves the bundled catalog from memory" flag:"database-url"`
	RedisURL    string `usage:"Redis URL for the product cache; empty disables caching" flag:"redis-url"`
	AMQP        AMQPConfig
	Auth        AuthConfig
	Gateway     GatewayConfig
	Cart        CartConfig
	Tills       TillsConfig
	Printer     PrinterConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// AMQPConfig controls completed-order events.
type AMQPConfig struct {
	URL   string `usage:"AMQP broker URL; empty disables order events" flag:"amqp-url"`
	Queue string `default:"pos.orders.completed" usage:"Queue receiving completed orders" flag:"amqp-queue"`
}

// AuthConfig controls till API keys.
type AuthConfig struct {
	Enabled bool     `default:"false" usage:"Require X-API-Key on API routes" flag:"auth-enabled"`
	Pepper  string   `usage:"HMAC pepper for API key hashing (POS_AUTH_PEPPER)" flag:"auth-pepper"`
	Keys    []string `usage:"In-memory keys as id:scope:hash, used without a database" flag:"auth-keys"`
}

// GatewayConfig seeds the payment gateway settings. Values stored through the
// settings API take precedence.
type GatewayConfig struct {
	ServiceCode string        `usage:"Payment gateway service code" flag:"gateway-service-code"`
	PosAppID    string        `usage:"Payment gateway POS application id" flag:"gateway-pos-app-id"`
	APIURL      string        `default:"http://localhost:5078/api/pos/earn" usage:"Payment gateway earn endpoint" flag:"gateway-api-url"`
	Timeout     time.Duration `default:"30s" usage:"Payment gateway call timeout" flag:"gateway-timeout"`
	Breaker     BreakerConfig
}

// BreakerConfig tunes the gateway circuit breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `default:"5"   usage:"Consecutive failures that open the breaker"`
	OpenTimeout         time.Duration `default:"30s" usage:"How long the breaker stays open"`
	MaxRequests         uint32        `default:"1"   usage:"Requests allowed while half-open"`
}

// CartConfig controls cart rules.
type CartConfig struct {
	EnforceStock bool `default:"false" usage:"Reject cart quantities above product stock" flag:"enforce-stock"`
}

// TillsConfig bounds the till sessions the server keeps.
type TillsConfig struct {
	IDs []string `usage:"Allowed till ids; empty accepts any id up to Max" flag:"till-ids"`
	Max int      `default:"64" usage:"Maximum number of till sessions" flag:"max-tills"`
}

// PrinterConfig controls receipt printing.
type PrinterConfig struct {
	Width     int    `default:"32" usage:"Receipt paper width in characters"`
	StoreName string `default:"POS" usage:"Store name printed on receipts" flag:"store-name"`
	Output    string `default:"stdout" usage:"Printer output: stdout or a file path" flag:"printer-output"`
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

// LoadConfig loads configuration from an optional .env file, environment
// variables and YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Auth.Enabled && cfg.DatabaseURL == "" && len(cfg.Auth.Keys) == 0 {
		return nil, errors.New("auth is enabled but no keys are configured: set POS_AUTH_KEYS or POS_DATABASE_URL")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// GatewayDefaults returns the statically configured gateway settings.
func (c *Config) GatewayDefaults() settings.Config {
	return settings.Config{
		ServiceCode: strings.TrimSpace(c.Gateway.ServiceCode),
		PosAppID:    strings.TrimSpace(c.Gateway.PosAppID),
		APIURL:      strings.TrimSpace(c.Gateway.APIURL),
	}
}

// StaticKeys parses Auth.Keys entries of the form id:scope:hash.
func (c *Config) StaticKeys() ([]auth.Key, error) {
	keys := make([]auth.Key, 0, len(c.Auth.Keys))
	for _, entry := range c.Auth.Keys {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, errors.Errorf("invalid auth key %q: want id:scope:hash", entry)
		}
		switch parts[1] {
		case auth.ScopeTill, auth.ScopeAdmin:
		default:
			return nil, errors.Errorf("invalid auth key %q: unknown scope %q", parts[0], parts[1])
		}
		keys = append(keys, auth.Key{
			ID:     parts[0],
			Name:   parts[0],
			Hash:   parts[2],
			Scopes: []string{parts[1]},
		})
	}
	return keys, nil
}
