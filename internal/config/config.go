package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:":8080"`
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	GinMode    string `env:"GIN_MODE" envDefault:"release"`

	DatabaseDriver   string `env:"DATABASE_DRIVER" envDefault:"sqlite3"`
	DatabaseURL      string `env:"DATABASE_URL" envDefault:"./url_shortener.db"`
	DatabaseMaxConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`

	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"app.log"` // Empty logs to stdout only
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	RedisURL string        `env:"REDIS_URL"` // Empty disables the lookup cache
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	DefaultValidityMinutes int `env:"DEFAULT_VALIDITY_MINUTES" envDefault:"30"`
	ShortCodeLength        int `env:"SHORTCODE_LENGTH" envDefault:"7"`
	MaxAllocationAttempts  int `env:"MAX_ALLOCATION_ATTEMPTS" envDefault:"10"`

	ClickWorkerCount int `env:"CLICK_WORKER_COUNT" envDefault:"0"` // 0 records clicks synchronously
	ClickQueueSize   int `env:"CLICK_QUEUE_SIZE" envDefault:"100"`

	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"0"` // 0 disables rate limiting
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","` // IPs or CIDRs; empty trusts none

	GeoCountry string `env:"GEO_COUNTRY" envDefault:"Unknown"`
	GeoRegion  string `env:"GEO_REGION" envDefault:"Unknown"`
	GeoCity    string `env:"GEO_CITY" envDefault:"Unknown"`

	QRCodeSize int `env:"QR_CODE_SIZE" envDefault:"256"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite3 or postgres, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}

	if c.MaxAllocationAttempts <= 0 {
		return fmt.Errorf("MAX_ALLOCATION_ATTEMPTS must be positive, got %d", c.MaxAllocationAttempts)
	}
	if c.ClickWorkerCount < 0 {
		return fmt.Errorf("CLICK_WORKER_COUNT must not be negative, got %d", c.ClickWorkerCount)
	}
	if c.ClickQueueSize <= 0 {
		return fmt.Errorf("CLICK_QUEUE_SIZE must be positive, got %d", c.ClickQueueSize)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %v", c.RateLimitRPS)
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
			}
		}
	}
	if c.QRCodeSize <= 0 {
		return fmt.Errorf("QR_CODE_SIZE must be positive, got %d", c.QRCodeSize)
	}
	return nil
}

// RedactedDatabaseURL hides the password of a URL-style DSN for logging.
func (c *Config) RedactedDatabaseURL() string {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.User == nil {
		return c.DatabaseURL
	}
	if _, ok := u.User.Password(); !ok {
		return c.DatabaseURL
	}
	return u.Redacted()
}
