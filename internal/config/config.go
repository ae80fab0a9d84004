package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"rag-console/internal/db"
)

const (
	envPrefix         = "CONSOLE_"
	configPathEnv     = "CONSOLE_CONFIG"
	defaultConfigFile = "config.yaml"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	History   HistoryConfig   `koanf:"history"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Workers   WorkersConfig   `koanf:"workers"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
	// PublicURL is where stage workers reach the webhook endpoint
	PublicURL   string        `koanf:"public_url"`
	ReadTimeout time.Duration `koanf:"read_timeout"`
	// WriteTimeout stays 0 by default; it would cut event streams
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	PoolSize int    `koanf:"pool_size"`
}

type HistoryConfig struct {
	Path string `koanf:"path"`
}

type PipelineConfig struct {
	DefaultPriority int           `koanf:"default_priority"`
	MaxJobAge       time.Duration `koanf:"max_job_age"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	// JobRetention removes terminal jobs older than this; 0 keeps them
	JobRetention   time.Duration `koanf:"job_retention"`
	StrictWebhooks bool          `koanf:"strict_webhooks"`
	ChainWorkers   int           `koanf:"chain_workers"`
	ChainQueueSize int           `koanf:"chain_queue_size"`
}

type WorkersConfig struct {
	BaseURL             string        `koanf:"base_url"`
	Timeout             time.Duration `koanf:"timeout"`
	Retries             int           `koanf:"retries"`
	DispatchEnabled     bool          `koanf:"dispatch_enabled"`
	DispatchInterval    time.Duration `koanf:"dispatch_interval"`
	DispatchConcurrency int           `koanf:"dispatch_concurrency"`
	BatchSize           int           `koanf:"batch_size"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			PublicURL:       "http://localhost:8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		History: HistoryConfig{Path: "data/history.db"},
		Pipeline: PipelineConfig{
			DefaultPriority: 5,
			MaxJobAge:       time.Hour,
			SweepInterval:   time.Minute,
			JobRetention:    7 * 24 * time.Hour,
			StrictWebhooks:  true,
			ChainWorkers:    1,
			ChainQueueSize:  256,
		},
		Workers: WorkersConfig{
			BaseURL:             "http://localhost:8000",
			Timeout:             60 * time.Second,
			Retries:             3,
			DispatchEnabled:     true,
			DispatchInterval:    2 * time.Second,
			DispatchConcurrency: 2,
			BatchSize:           10,
		},
		Telemetry: TelemetryConfig{ServiceName: "rag-console"},
	}
}

// Load builds the configuration from defaults, an optional YAML file, .env
// and CONSOLE_ environment variables, in increasing precedence. Nested keys
// use a double underscore: CONSOLE_REDIS__HOST sets redis.host.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv(configPathEnv)
		explicit = path != ""
	}
	if path == "" {
		path = defaultConfigFile
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// a missing default file is fine
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the console cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if _, err := url.ParseRequestURI(c.Server.PublicURL); err != nil {
		errs = append(errs, fmt.Errorf("server.public_url is invalid: %w", err))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis.port out of range: %d", c.Redis.Port))
	}
	if c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required"))
	}
	if c.Pipeline.MaxJobAge <= 0 {
		errs = append(errs, errors.New("pipeline.max_job_age must be positive"))
	}
	if c.Pipeline.SweepInterval <= 0 {
		errs = append(errs, errors.New("pipeline.sweep_interval must be positive"))
	}
	if c.Pipeline.JobRetention < 0 {
		errs = append(errs, errors.New("pipeline.job_retention must not be negative"))
	}
	if c.Pipeline.ChainWorkers < 1 {
		errs = append(errs, errors.New("pipeline.chain_workers must be at least 1"))
	}
	if c.Pipeline.ChainQueueSize < 1 {
		errs = append(errs, errors.New("pipeline.chain_queue_size must be at least 1"))
	}
	if c.Workers.DispatchEnabled {
		if _, err := url.ParseRequestURI(c.Workers.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("workers.base_url is invalid: %w", err))
		}
	}
	if c.Workers.Retries < 0 {
		errs = append(errs, errors.New("workers.retries must not be negative"))
	}
	if c.Workers.DispatchInterval <= 0 {
		errs = append(errs, errors.New("workers.dispatch_interval must be positive"))
	}
	return errors.Join(errs...)
}

// RedisClientConfig converts the redis section for db.NewRedisClient
func (c *Config) RedisClientConfig() db.RedisConfig {
	rc := db.DefaultRedisConfig()
	rc.Host = c.Redis.Host
	rc.Port = c.Redis.Port
	rc.Password = c.Redis.Password
	rc.DB = c.Redis.DB
	if c.Redis.PoolSize > 0 {
		rc.PoolSize = c.Redis.PoolSize
	}
	return rc
}
