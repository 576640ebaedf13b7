package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tutor.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "none", cfg.Policy.Type)
	assert.Equal(t, 2*time.Second, cfg.Policy.Timeout.Duration)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout.Duration)
	assert.Equal(t, 100, cfg.Simulator.Horizon)
	assert.Equal(t, 50.0, cfg.Simulator.Reward.GainWeight)
}

func TestFileMergesOverDefaults(t *testing.T) {
	p := writeYAML(t, `
env: production
store:
  backend: sqlite
  dsn: "file:test.db"
  ttl: 90m
policy:
  type: remote
  url: http://policy:9000
  timeout: 750ms
simulator:
  horizon: 40
  reward:
    gain_weight: 25
`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 90*time.Minute, cfg.Store.TTL.Duration)
	assert.Equal(t, 750*time.Millisecond, cfg.Policy.Timeout.Duration)
	assert.Equal(t, 40, cfg.Simulator.Horizon)
	assert.Equal(t, 25.0, cfg.Simulator.Reward.GainWeight)
	// untouched reward weights keep their defaults
	assert.Equal(t, 10.0, cfg.Simulator.Reward.MilestoneBonus)

	sc := cfg.Store.Options()
	assert.Equal(t, 90*time.Minute, sc.TTL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TUTOR_STORE", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TUTOR_POLICY", "linear")
	t.Setenv("TUTOR_POLICY_PATH", "/models/policy.json")
	t.Setenv("TUTOR_POLICY_TIMEOUT", "300ms")
	t.Setenv("TUTOR_HORIZON", "12")
	t.Setenv("TUTOR_STORE_TIMEOUT", "150ms")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, "linear", cfg.Policy.Type)
	assert.Equal(t, 300*time.Millisecond, cfg.Policy.Timeout.Duration)
	assert.Equal(t, 12, cfg.Simulator.Horizon)
	assert.Equal(t, 150*time.Millisecond, cfg.Store.Timeout.Duration)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"unknown store":   "store: {backend: etcd}",
		"redis no addr":   "store: {backend: redis}",
		"postgres no dsn": "store: {backend: postgres}",
		"linear no path":  "policy: {type: linear}",
		"remote no url":   "policy: {type: remote}",
		"unknown policy":  "policy: {type: oracle}",
		"bad horizon":     "simulator: {horizon: -3}",
		"bad override":    "simulator: {override: {probability: 2}}",
		"bad duration":    "policy: {timeout: soon}",
		"negative cache":  "store: {cache_size: -1}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeYAML(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	p := writeYAML(t, "simulator: {horizon: 7}")
	t.Setenv("TUTOR_CONFIG_PATH", p)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Simulator.Horizon)
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"5s"`), &d))
	assert.Equal(t, 5*time.Second, d.Duration)
	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Duration)
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Zero(t, d.Duration)
	assert.Error(t, json.Unmarshal([]byte(`"later"`), &d))

	b, err := json.Marshal(Duration{Duration: time.Minute})
	require.NoError(t, err)
	assert.JSONEq(t, `"1m0s"`, string(b))
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", "config", "tutor.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 720*time.Hour, cfg.Store.TTL.Duration)
	assert.Equal(t, 256, cfg.Store.CacheSize)
	assert.InDelta(t, 0.2, cfg.Simulator.Override.Probability, 1e-12)
	assert.Equal(t, 50.0, cfg.Simulator.Reward.GainWeight)
}
