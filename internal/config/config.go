package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Users     UsersConfig     `yaml:"users" mapstructure:"users"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Generate  GenerateConfig  `yaml:"generate" mapstructure:"generate"`
	Listing   ListingConfig   `yaml:"listing" mapstructure:"listing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures where deals are persisted.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	SheetPath   string `yaml:"sheet_path" mapstructure:"sheet_path"`
	SheetName   string `yaml:"sheet_name" mapstructure:"sheet_name"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// UsersConfig configures the user and newsletter database.
type UsersConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Disabled    bool    `yaml:"disabled" mapstructure:"disabled"`
}

// PlacesConfig holds Google Places settings. An empty key disables lookups.
type PlacesConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
}

// CacheConfig configures the Redis candidate cache. An empty address
// disables caching.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLMinutes    int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// GenerateConfig configures deal generation.
type GenerateConfig struct {
	CountPerCity  int    `yaml:"count_per_city" mapstructure:"count_per_city"`
	Concurrency   int    `yaml:"concurrency" mapstructure:"concurrency"`
	DailyKey      string `yaml:"daily_key" mapstructure:"daily_key"`
	MinIntervalMS int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// ListingConfig configures deal listings.
type ListingConfig struct {
	DefaultCity   string  `yaml:"default_city" mapstructure:"default_city"`
	DefaultRadius float64 `yaml:"default_radius" mapstructure:"default_radius"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHEAPEATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sheet")
	v.SetDefault("store.sheet_path", "data/deals.xlsx")
	v.SetDefault("store.sheet_name", "Deals")
	v.SetDefault("users.driver", "sqlite")
	v.SetDefault("users.database_url", "data/users.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4000)
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("anthropic.timeout_secs", 15)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.rate_limit", 5.0)
	v.SetDefault("places.radius_meters", 25000.0)
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("generate.count_per_city", 35)
	v.SetDefault("generate.concurrency", 3)
	v.SetDefault("generate.min_interval_ms", 0)
	v.SetDefault("listing.default_city", "New York")
	v.SetDefault("listing.default_radius", 25.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Keys without defaults still need binding for AutomaticEnv to see them
	// during Unmarshal.
	for _, key := range []string{
		"store.database_url", "anthropic.key", "anthropic.disabled", "places.key",
		"cache.redis_addr", "cache.redis_password", "cache.redis_db", "generate.daily_key",
		"store.max_conns", "store.min_conns",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is one of serve,
// generate or deals.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}

	switch mode {
	case "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateUsers()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Listing.DefaultRadius <= 0 {
			errs = append(errs, "listing.default_radius must be > 0")
		}
	case "generate":
		errs = append(errs, c.validateStore()...)
		if c.Anthropic.Key == "" && !c.Anthropic.Disabled {
			errs = append(errs, "anthropic.key is required unless anthropic.disabled is set")
		}
		if c.Generate.CountPerCity <= 0 {
			errs = append(errs, "generate.count_per_city must be > 0")
		}
		if c.Generate.Concurrency < 1 || c.Generate.Concurrency > 10 {
			errs = append(errs, "generate.concurrency must be between 1 and 10")
		}
	case "deals":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sheet":
		if c.Store.SheetPath == "" {
			return []string{"store.sheet_path is required for the sheet driver"}
		}
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the " + c.Store.Driver + " driver"}
		}
	default:
		return []string{fmt.Sprintf("store.driver must be sheet, sqlite or postgres, got %q", c.Store.Driver)}
	}
	return nil
}

func (c *Config) validateUsers() []string {
	switch c.Users.Driver {
	case "sqlite", "postgres":
		if c.Users.DatabaseURL == "" {
			return []string{"users.database_url is required"}
		}
	default:
		return []string{fmt.Sprintf("users.driver must be sqlite or postgres, got %q", c.Users.Driver)}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
