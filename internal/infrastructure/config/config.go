package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Auction   AuctionConfig   `koanf:"auction"`
	Security  SecurityConfig  `koanf:"security"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuctionConfig tunes the bidding engine. Increment tiers come from
// the built-in table unless overridden here; an override must keep the
// table ordered with a single open-ended last tier.
type AuctionConfig struct {
	SnipeWindow    time.Duration `koanf:"snipe_window"`
	SnipeExtension time.Duration `koanf:"snipe_extension"`
	LockWait       time.Duration `koanf:"lock_wait"`
	PersistRetries int           `koanf:"persist_retries"`
	SweepInterval  time.Duration `koanf:"sweep_interval"`

	IncrementTiers []IncrementTierConfig `koanf:"increment_tiers"`
}

type IncrementTierConfig struct {
	MaxPrice  string `koanf:"max_price"`
	Increment string `koanf:"increment"`
	Unbounded bool   `koanf:"unbounded"`
}

type SecurityConfig struct {
	JWTSecret   string          `koanf:"jwt_secret"`
	TokenExpiry time.Duration   `koanf:"token_expiry"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
	BidRate     BidRateConfig   `koanf:"bid_rate"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

// BidRateConfig caps bid submissions per bidder
type BidRateConfig struct {
	PerMinute int           `koanf:"per_minute"`
	Window    time.Duration `koanf:"window"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SampleRate   float64 `koanf:"sample_rate"`
	ServiceName  string  `koanf:"service_name"`
}

// Load reads configuration from defaults, an optional YAML file and
// CCX_ prefixed environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Auction: AuctionConfig{
			SnipeWindow:    2 * time.Minute,
			SnipeExtension: 2 * time.Minute,
			LockWait:       5 * time.Second,
			PersistRetries: 3,
			SweepInterval:  15 * time.Second,
		},
		Security: SecurityConfig{
			TokenExpiry: 24 * time.Hour,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
			BidRate: BidRateConfig{
				PerMinute: 30,
				Window:    time.Minute,
			},
		},
		Telemetry: TelemetryConfig{
			SampleRate:  0.1,
			ServiceName: "card-exchange",
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/config.yaml"
	}
	// config file is optional
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(env.Provider("CCX_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CCX_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Auction.SnipeWindow < 0 || c.Auction.SnipeExtension < 0 {
		return fmt.Errorf("anti-snipe window and extension must be non-negative")
	}
	if c.Auction.PersistRetries < 1 {
		return fmt.Errorf("persist_retries must be at least 1")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
