package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Geocoder  GeocoderConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Parser    ParserConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds catalog source configuration
type CatalogConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// GeocoderConfig holds reverse geocoding configuration
type GeocoderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	LinkTTL  time.Duration `mapstructure:"link_ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// ParserConfig holds the order-parsing tunables
type ParserConfig struct {
	VectorThreshold     float64       `mapstructure:"vector_threshold"`
	FuzzyThreshold      float64       `mapstructure:"fuzzy_threshold"`
	SuggestionThreshold float64       `mapstructure:"suggestion_threshold"`
	MaxQuantity         int           `mapstructure:"max_quantity"`
	LinkTimeout         time.Duration `mapstructure:"link_timeout"`

	// Service-area bounding box
	MinLat float64 `mapstructure:"min_lat"`
	MaxLat float64 `mapstructure:"max_lat"`
	MinLng float64 `mapstructure:"min_lng"`
	MaxLng float64 `mapstructure:"max_lng"`

	MinPlausibleTotal float64 `mapstructure:"min_plausible_total"`
	MaxPlausibleTotal float64 `mapstructure:"max_plausible_total"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cocopet/")

	// Environment variable settings
	v.SetEnvPrefix("COCOPET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Catalog defaults
	v.SetDefault("catalog.refresh_interval", "15m")

	// Geocoder defaults
	v.SetDefault("geocoder.enabled", false)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.link_ttl", "720h") // 30 days

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Parser defaults
	v.SetDefault("parser.vector_threshold", 0.70)
	v.SetDefault("parser.fuzzy_threshold", 0.80)
	v.SetDefault("parser.suggestion_threshold", 0.60)
	v.SetDefault("parser.max_quantity", 1000)
	v.SetDefault("parser.link_timeout", "10s")
	v.SetDefault("parser.min_lat", 20.5)
	v.SetDefault("parser.max_lat", 21.5)
	v.SetDefault("parser.min_lng", -87.5)
	v.SetDefault("parser.max_lng", -86.5)
	v.SetDefault("parser.min_plausible_total", 10)
	v.SetDefault("parser.max_plausible_total", 50000)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// loadEnvFile reads a .env file from the working directory into the process
// environment. Variables already set in the environment win. A missing file
// is not an error.
func loadEnvFile() error {
	data, err := os.ReadFile(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base URL is required (set COCOPET_CATALOG_BASE_URL)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Parser.MinLat >= config.Parser.MaxLat || config.Parser.MinLng >= config.Parser.MaxLng {
		return fmt.Errorf("invalid service-area bounding box")
	}

	return nil
}
