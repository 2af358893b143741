package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Aggregator  AggregatorConfig `mapstructure:"aggregator"`
	Client      ClientConfig     `mapstructure:"client"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Log         LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AggregatorConfig drives the server-side price aggregator and its upstream sources.
type AggregatorConfig struct {
	CacheDuration   time.Duration   `mapstructure:"cache_duration"`
	SourceTimeout   time.Duration   `mapstructure:"source_timeout"`
	RefreshInterval time.Duration   `mapstructure:"refresh_interval"`
	UserAgent       string          `mapstructure:"user_agent"`
	CoinGecko       CoinGeckoConfig `mapstructure:"coingecko"`
	Binance         SourceConfig    `mapstructure:"binance"`
	CoinCap         SourceConfig    `mapstructure:"coincap"`
	Coinbase        SourceConfig    `mapstructure:"coinbase"`
}

type SourceConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type CoinGeckoConfig struct {
	BaseURL string `mapstructure:"base_url"`
	DemoKey string `mapstructure:"demo_key"`
	// APIKeyParam names an SSM parameter holding the demo key; only read in prod.
	APIKeyParam string `mapstructure:"api_key_param"`
}

// ClientConfig drives the client-side wrapper used by cmd/ticker.
type ClientConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	CacheDuration time.Duration `mapstructure:"cache_duration"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("aggregator.cache_duration", 30*time.Second)
	v.SetDefault("aggregator.source_timeout", 8*time.Second)
	v.SetDefault("aggregator.refresh_interval", 15*time.Second)
	v.SetDefault("aggregator.user_agent", "CryptoDesk/1.0")
	v.SetDefault("aggregator.coingecko.base_url", "https://api.coingecko.com")
	v.SetDefault("aggregator.coingecko.demo_key", "CG-demo")
	v.SetDefault("aggregator.binance.base_url", "https://api.binance.com")
	v.SetDefault("aggregator.coincap.base_url", "https://api.coincap.io")
	v.SetDefault("aggregator.coinbase.base_url", "https://api.coinbase.com")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.cache_duration", 15*time.Second)
	v.SetDefault("client.timeout", 5*time.Second)
	v.SetDefault("client.max_retries", 3)
	v.SetDefault("client.retry_delay", time.Second)
	v.SetDefault("client.poll_interval", 15*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "cryptodesk:prices")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")
}

// Load loads application configuration using Viper.
// It reads .env, then config.yaml, and overrides both with environment variables.
// A missing config.yaml is not an error; defaults apply.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if ex, err := os.Executable(); err == nil && !strings.Contains(ex, "go-build") {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	return load(v)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Support environment variables with dot notation (e.g., AGGREGATOR_CACHE_DURATION)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
