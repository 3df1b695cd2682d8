package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jwalitptl/notify-engine/internal/model"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Engine    EngineConfig    `mapstructure:"engine"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// EngineConfig carries the notification engine's runtime tunables.
// These are deployment configuration in the source platform, so none of
// them are hard-coded at call sites.
type EngineConfig struct {
	ProfileCacheTTL     time.Duration    `mapstructure:"profile_cache_ttl"`
	ProfileCacheCleanup time.Duration    `mapstructure:"profile_cache_cleanup"`
	DedupWindow         time.Duration    `mapstructure:"dedup_window"`
	DedupThreshold      float64          `mapstructure:"dedup_threshold"`
	DefaultChannels     []model.Channel  `mapstructure:"default_channels"`
	DefaultQuietHours   model.QuietHours `mapstructure:"default_quiet_hours"`
	TimingBuffer        time.Duration    `mapstructure:"timing_buffer"`
	ExternalCallTimeout time.Duration    `mapstructure:"external_call_timeout"`
	ModelVersion        string           `mapstructure:"model_version"`
	SchedulerChannel    string           `mapstructure:"scheduler_channel"`
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("rate_limit.requests_per_second", 100.0)
	viper.SetDefault("rate_limit.burst", 200)

	viper.SetDefault("engine.profile_cache_ttl", 10*time.Minute)
	viper.SetDefault("engine.profile_cache_cleanup", time.Hour)
	viper.SetDefault("engine.dedup_window", 24*time.Hour)
	viper.SetDefault("engine.dedup_threshold", 0.8)
	viper.SetDefault("engine.default_channels", []string{"in_app", "email", "web_push"})
	viper.SetDefault("engine.default_quiet_hours.start_hour", 22)
	viper.SetDefault("engine.default_quiet_hours.end_hour", 8)
	viper.SetDefault("engine.timing_buffer", 5*time.Minute)
	viper.SetDefault("engine.external_call_timeout", 3*time.Second)
	viper.SetDefault("engine.model_version", "personalization-v2")
	viper.SetDefault("engine.scheduler_channel", "notifications:scheduled")
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults plus environment are enough to run; only a malformed
		// file is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
