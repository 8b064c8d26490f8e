// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Redis struct {
	Addr               string        `mapstructure:"addr"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	DB                 int           `mapstructure:"db"`
	PoolSizeMultiplier int           `mapstructure:"pool_size_multiplier"`
	MinIdleConns       int           `mapstructure:"min_idle_conns"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

type Consumer struct {
	HeartbeatTTL      time.Duration `mapstructure:"heartbeat_ttl"`
	BRPopLPushTimeout time.Duration `mapstructure:"brpoplpush_timeout"`
	BreakerPause      time.Duration `mapstructure:"breaker_pause"`
}

type Producer struct {
	ScanDir         string   `mapstructure:"scan_dir"`
	IncludeGlobs    []string `mapstructure:"include_globs"`
	ExcludeGlobs    []string `mapstructure:"exclude_globs"`
	RateLimitPerSec int      `mapstructure:"rate_limit_per_sec"`
	RateLimitKey    string   `mapstructure:"rate_limit_key"`
}

type GC struct {
	CronSpec string `mapstructure:"cron_spec"`
}

type CircuitBreaker struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	MinSamples       int           `mapstructure:"min_samples"`
}

type Observability struct {
	MetricsPort int    `mapstructure:"metrics_port"`
	LogLevel    string `mapstructure:"log_level"`
}

type AdminAPI struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Redis          Redis          `mapstructure:"redis"`
	Consumer       Consumer       `mapstructure:"consumer"`
	Producer       Producer       `mapstructure:"producer"`
	GC             GC             `mapstructure:"gc"`
	CircuitBreaker CircuitBreaker `mapstructure:"circuit_breaker"`
	Observability  Observability  `mapstructure:"observability"`
	AdminAPI       AdminAPI       `mapstructure:"admin_api"`
}

func defaultConfig() *Config {
	return &Config{
		Redis: Redis{
			Addr:               "127.0.0.1:6379",
			PoolSizeMultiplier: 10,
			MinIdleConns:       5,
			DialTimeout:        5 * time.Second,
			ReadTimeout:        3 * time.Second,
			WriteTimeout:       3 * time.Second,
			MaxRetries:         3,
		},
		Consumer: Consumer{
			HeartbeatTTL:      30 * time.Second,
			BRPopLPushTimeout: 1 * time.Second,
			BreakerPause:      100 * time.Millisecond,
		},
		Producer: Producer{
			ScanDir:         "./data",
			IncludeGlobs:    []string{"**/*"},
			ExcludeGlobs:    []string{"**/*.tmp", "**/.DS_Store"},
			RateLimitPerSec: 0,
			RateLimitKey:    "orizuru:rate_limit:producer",
		},
		GC: GC{
			CronSpec: "@every 5s",
		},
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 0.5,
			Window:           1 * time.Minute,
			CooldownPeriod:   30 * time.Second,
			MinSamples:       20,
		},
		Observability: Observability{
			MetricsPort: 9090,
			LogLevel:    "info",
		},
		AdminAPI: AdminAPI{
			Addr: ":8089",
		},
	}
}

// Load reads configuration from a YAML file and env overrides, falling
// back to defaults when path does not exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("redis.addr", def.Redis.Addr)
	v.SetDefault("redis.pool_size_multiplier", def.Redis.PoolSizeMultiplier)
	v.SetDefault("redis.min_idle_conns", def.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", def.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", def.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", def.Redis.WriteTimeout)
	v.SetDefault("redis.max_retries", def.Redis.MaxRetries)

	v.SetDefault("consumer.heartbeat_ttl", def.Consumer.HeartbeatTTL)
	v.SetDefault("consumer.brpoplpush_timeout", def.Consumer.BRPopLPushTimeout)
	v.SetDefault("consumer.breaker_pause", def.Consumer.BreakerPause)

	v.SetDefault("producer.scan_dir", def.Producer.ScanDir)
	v.SetDefault("producer.include_globs", def.Producer.IncludeGlobs)
	v.SetDefault("producer.exclude_globs", def.Producer.ExcludeGlobs)
	v.SetDefault("producer.rate_limit_per_sec", def.Producer.RateLimitPerSec)
	v.SetDefault("producer.rate_limit_key", def.Producer.RateLimitKey)

	v.SetDefault("gc.cron_spec", def.GC.CronSpec)

	v.SetDefault("circuit_breaker.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.window", def.CircuitBreaker.Window)
	v.SetDefault("circuit_breaker.cooldown_period", def.CircuitBreaker.CooldownPeriod)
	v.SetDefault("circuit_breaker.min_samples", def.CircuitBreaker.MinSamples)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)

	v.SetDefault("admin_api.addr", def.AdminAPI.Addr)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config constraints and returns an error on invalid settings.
func Validate(cfg *Config) error {
	if cfg.Consumer.HeartbeatTTL < 5*time.Second {
		return fmt.Errorf("consumer.heartbeat_ttl must be >= 5s")
	}
	if cfg.Consumer.BRPopLPushTimeout < 0 || cfg.Consumer.BRPopLPushTimeout > cfg.Consumer.HeartbeatTTL/2 {
		return fmt.Errorf("consumer.brpoplpush_timeout must be >= 0 and <= heartbeat_ttl/2")
	}
	if cfg.Producer.RateLimitPerSec < 0 {
		return fmt.Errorf("producer.rate_limit_per_sec must be >= 0")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	if cfg.CircuitBreaker.MinSamples < 1 {
		return fmt.Errorf("circuit_breaker.min_samples must be >= 1")
	}
	return nil
}
