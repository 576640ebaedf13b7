package config

import (
	"time"

	"github.com/yungbote/neurobridge-tutor/internal/data/store"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/simulator"
)

type Duration struct {
	Duration time.Duration
}

type Config struct {
	Env string `yaml:"env"`

	// CatalogPath replaces the embedded default catalog when set.
	CatalogPath string `yaml:"catalog_path"`

	Store     StoreConfig      `yaml:"store"`
	Policy    PolicyConfig     `yaml:"policy"`
	Simulator simulator.Config `yaml:"simulator"`
	Rollout   RolloutConfig    `yaml:"rollout"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
}

type StoreConfig struct {
	// Backend is one of memory, redis, sqlite, postgres.
	Backend   string   `yaml:"backend"`
	DSN       string   `yaml:"dsn"`
	RedisAddr string   `yaml:"redis_addr"`
	Prefix    string   `yaml:"prefix"`
	TTL       Duration `yaml:"ttl"`
	CacheSize int      `yaml:"cache_size"`
	// Timeout bounds each session load and save.
	Timeout Duration `yaml:"timeout"`
}

type PolicyConfig struct {
	// Type is one of none, linear, remote, fixed, random.
	Type string `yaml:"type"`
	// Path is the linear snapshot file.
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	// InputSize is the observation length a remote policy expects; 0 means the
	// natural length.
	InputSize int      `yaml:"input_size"`
	Timeout   Duration `yaml:"timeout"`
	Seed      int64    `yaml:"seed"`
}

type RolloutConfig struct {
	Episodes int   `yaml:"episodes"`
	Workers  int   `yaml:"workers"`
	Seed     int64 `yaml:"seed"`
}

type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`
}

func (c StoreConfig) Options() store.Config {
	return store.Config{
		Backend:   c.Backend,
		DSN:       c.DSN,
		RedisAddr: c.RedisAddr,
		Prefix:    c.Prefix,
		TTL:       c.TTL.Duration,
		CacheSize: c.CacheSize,
	}
}
