package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/simulator"
	"github.com/yungbote/neurobridge-tutor/internal/platform/envutil"
)

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n), nil
	}
	return time.ParseDuration(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar like \"5s\", line %d", node.Line)
	}
	dd, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("duration line %d: %w", node.Line, err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if u, err := strconv.Unquote(s); err == nil {
		s = u
	}
	dd, err := parseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func Default() *Config {
	return &Config{
		Env: "development",
		Store: StoreConfig{
			Backend:   "memory",
			TTL:       Duration{Duration: 24 * time.Hour},
			CacheSize: 0,
			Timeout:   Duration{Duration: 2 * time.Second},
		},
		Policy: PolicyConfig{
			Type:    "none",
			Timeout: Duration{Duration: 2 * time.Second},
		},
		Simulator: simulator.DefaultConfig(),
		Rollout:   RolloutConfig{Episodes: 16, Workers: 4, Seed: 1},
		Telemetry: TelemetryConfig{ServiceName: "neurobridge-tutor"},
	}
}

// Load builds the config from defaults, then the YAML file at TUTOR_CONFIG_PATH (or
// ./config/tutor.yaml when present), then environment overrides.
func Load() (*Config, error) {
	path := strings.TrimSpace(os.Getenv("TUTOR_CONFIG_PATH"))
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "tutor.yaml")
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file; an empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.CatalogPath = envutil.String("TUTOR_CATALOG_PATH", cfg.CatalogPath)

	cfg.Store.Backend = envutil.String("TUTOR_STORE", cfg.Store.Backend)
	cfg.Store.DSN = envutil.String("TUTOR_STORE_DSN", cfg.Store.DSN)
	cfg.Store.RedisAddr = envutil.String("REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.TTL.Duration = envutil.Duration("TUTOR_STORE_TTL", cfg.Store.TTL.Duration)
	cfg.Store.CacheSize = envutil.Int("TUTOR_STORE_CACHE_SIZE", cfg.Store.CacheSize)
	cfg.Store.Timeout.Duration = envutil.Duration("TUTOR_STORE_TIMEOUT", cfg.Store.Timeout.Duration)

	cfg.Policy.Type = envutil.String("TUTOR_POLICY", cfg.Policy.Type)
	cfg.Policy.Path = envutil.String("TUTOR_POLICY_PATH", cfg.Policy.Path)
	cfg.Policy.URL = envutil.String("TUTOR_POLICY_URL", cfg.Policy.URL)
	cfg.Policy.APIKey = envutil.String("TUTOR_POLICY_API_KEY", cfg.Policy.APIKey)
	cfg.Policy.Timeout.Duration = envutil.Duration("TUTOR_POLICY_TIMEOUT", cfg.Policy.Timeout.Duration)

	cfg.Simulator.Horizon = envutil.Int("TUTOR_HORIZON", cfg.Simulator.Horizon)
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "development"
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case "", "memory":
		c.Store.Backend = "memory"
	case "redis":
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return errors.New("store.backend=redis requires store.redis_addr or REDIS_ADDR")
		}
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return errors.New("store.backend=postgres requires store.dsn or TUTOR_STORE_DSN")
		}
	default:
		return fmt.Errorf("invalid store.backend=%q", c.Store.Backend)
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("invalid store.cache_size=%d", c.Store.CacheSize)
	}
	if c.Store.Timeout.Duration <= 0 {
		c.Store.Timeout = Duration{Duration: 2 * time.Second}
	}

	c.Policy.Type = strings.ToLower(strings.TrimSpace(c.Policy.Type))
	switch c.Policy.Type {
	case "", "none":
		c.Policy.Type = "none"
	case "linear":
		if strings.TrimSpace(c.Policy.Path) == "" {
			return errors.New("policy.type=linear requires policy.path or TUTOR_POLICY_PATH")
		}
	case "remote":
		if strings.TrimSpace(c.Policy.URL) == "" {
			return errors.New("policy.type=remote requires policy.url or TUTOR_POLICY_URL")
		}
	case "fixed", "random":
	default:
		return fmt.Errorf("invalid policy.type=%q", c.Policy.Type)
	}
	if c.Policy.Timeout.Duration <= 0 {
		c.Policy.Timeout = Duration{Duration: 2 * time.Second}
	}

	if c.Simulator.Horizon <= 0 {
		return fmt.Errorf("invalid simulator.horizon=%d", c.Simulator.Horizon)
	}
	if p := c.Simulator.Override.Probability; p < 0 || p > 1 {
		return fmt.Errorf("invalid simulator.override.probability=%v", p)
	}
	if c.Rollout.Episodes <= 0 {
		c.Rollout.Episodes = 1
	}
	if c.Rollout.Workers <= 0 {
		c.Rollout.Workers = 1
	}
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = "neurobridge-tutor"
	}
	return nil
}
