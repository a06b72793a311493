package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Backend BackendConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Journal JournalConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// BackendConfig describes the review service the console talks to.
type BackendConfig struct {
	BaseURL       string
	TimeoutSec    int
	DefaultUserID string
	Breaker       BreakerConfig
}

type BreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	TimeoutSec       int
}

type CacheConfig struct {
	Driver string
	TTLSec int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JournalConfig struct {
	Enabled bool
	Path    string
}

// ServerConfig is only used by the reference backend (cmd/devapi).
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        int
	WriteTimeout       int
	BodyLimit          int
	RateLimitPerMinute int
	AllowedOrigins     []string
	Seed               bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSec) * time.Second
}

func (b BreakerConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSec) * time.Second
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/review-console")

	v.SetEnvPrefix("REVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend.baseURL cannot be empty")
	}

	if c.Backend.TimeoutSec <= 0 {
		return fmt.Errorf("backend.timeoutSec must be positive")
	}

	if c.Backend.Breaker.Enabled && c.Backend.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("backend.breaker.failureThreshold must be positive")
	}

	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.driver %q is not one of memory, redis, none", c.Cache.Driver)
	}

	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return fmt.Errorf("journal.path cannot be empty when the journal is enabled")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.baseURL", "http://localhost:8000")
	v.SetDefault("backend.timeoutSec", 30)
	v.SetDefault("backend.defaultUserID", "reviewer")
	v.SetDefault("backend.breaker.enabled", false)
	v.SetDefault("backend.breaker.failureThreshold", 5)
	v.SetDefault("backend.breaker.timeoutSec", 30)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttlSec", 30)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "./data/journal.db")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.rateLimitPerMinute", 600)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.seed", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
