// Package config loads runtime settings for the bowtie CLI and server from a
// YAML file and BOWTIE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/timagonch/bowtie-diagram/pkg/validation"
)

// EnvPrefix is prepended to every environment override, e.g.
// BOWTIE_STORE_BACKEND=s3 or BOWTIE_SERVER_ADDR=:9090.
const EnvPrefix = "BOWTIE"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendS3     = "s3"
)

// Config is the full runtime configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes       int           `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	// HistorySize bounds the in-memory edit history shared by all diagrams.
	HistorySize int `mapstructure:"history_size" yaml:"history_size"`
}

// LogConfig configures the JSON logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// StoreConfig selects and configures the diagram store.
type StoreConfig struct {
	Backend  string   `mapstructure:"backend" yaml:"backend"`
	Dir      string   `mapstructure:"dir" yaml:"dir"`
	Format   string   `mapstructure:"format" yaml:"format"`
	Compress bool     `mapstructure:"compress" yaml:"compress"`
	S3       S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config addresses an S3 (or S3-compatible) bucket.
type S3Config struct {
	Bucket       string `mapstructure:"bucket" yaml:"bucket"`
	Prefix       string `mapstructure:"prefix" yaml:"prefix"`
	Region       string `mapstructure:"region" yaml:"region"`
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style" yaml:"use_path_style"`
	// Static credentials; when empty the default AWS credential chain applies.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// EngineConfig tunes risk propagation.
type EngineConfig struct {
	// SharedCenterCredit credits preventive barriers on the Top Event to
	// every threat.
	SharedCenterCredit bool `mapstructure:"shared_center_credit" yaml:"shared_center_credit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			MaxBodyBytes:       10 << 20,
			RateLimitPerMinute: 600,
			HistorySize:        1024,
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend: BackendMemory,
			Dir:     "./diagrams",
			Format:  "json",
		},
		Engine: EngineConfig{SharedCenterCredit: true},
	}
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.cors_allowed_origins", d.Server.CORSAllowedOrigins)
	v.SetDefault("server.rate_limit_per_minute", d.Server.RateLimitPerMinute)
	v.SetDefault("server.history_size", d.Server.HistorySize)

	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.format", d.Store.Format)
	v.SetDefault("store.compress", d.Store.Compress)
	v.SetDefault("store.s3.bucket", d.Store.S3.Bucket)
	v.SetDefault("store.s3.prefix", d.Store.S3.Prefix)
	v.SetDefault("store.s3.region", d.Store.S3.Region)
	v.SetDefault("store.s3.endpoint", d.Store.S3.Endpoint)
	v.SetDefault("store.s3.use_path_style", d.Store.S3.UsePathStyle)
	v.SetDefault("store.s3.access_key_id", d.Store.S3.AccessKeyID)
	v.SetDefault("store.s3.secret_access_key", d.Store.S3.SecretAccessKey)

	v.SetDefault("engine.shared_center_credit", d.Engine.SharedCenterCredit)
}

// Load reads configuration from path (optional) with BOWTIE_* environment
// overrides applied on top, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	server := validation.NewConfigValidator("server").
		Required("addr", c.Server.Addr).
		MinDuration("read_timeout", c.Server.ReadTimeout, time.Millisecond).
		MinDuration("write_timeout", c.Server.WriteTimeout, time.Millisecond).
		Positive("max_body_bytes", c.Server.MaxBodyBytes).
		RangeInt("rate_limit_per_minute", c.Server.RateLimitPerMinute, 0, 1_000_000).
		Positive("history_size", c.Server.HistorySize)

	log := validation.NewConfigValidator("log").
		OneOf("level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "warning", "error"})

	store := validation.NewConfigValidator("store").
		OneOf("backend", c.Store.Backend, []string{BackendMemory, BackendFile, BackendS3}).
		OneOf("format", c.Store.Format, []string{"json", "yaml"}).
		When(c.Store.Backend == BackendFile, func(cv *validation.ConfigValidator) {
			cv.Required("dir", c.Store.Dir)
		}).
		When(c.Store.Backend == BackendS3, func(cv *validation.ConfigValidator) {
			cv.Required("s3.bucket", c.Store.S3.Bucket)
			cv.When(c.Store.S3.AccessKeyID != "", func(cv *validation.ConfigValidator) {
				cv.Required("s3.secret_access_key", c.Store.S3.SecretAccessKey)
			})
		})

	var errs []error
	for _, cv := range []*validation.ConfigValidator{server, log, store} {
		errs = append(errs, cv.Errors()...)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}
