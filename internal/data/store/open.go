package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/observability"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

type Config struct {
	// Backend is one of memory, redis, sqlite, postgres.
	Backend   string        `yaml:"backend" json:"backend"`
	DSN       string        `yaml:"dsn" json:"dsn"`
	RedisAddr string        `yaml:"redis_addr" json:"redis_addr"`
	Prefix    string        `yaml:"prefix" json:"prefix"`
	TTL       time.Duration `yaml:"-" json:"-"`
	// CacheSize > 0 fronts the backend with an LRU of that many sessions.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

func Open(ctx context.Context, cfg Config, log *logger.Logger, m *observability.Metrics) (SessionStore, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	var (
		s   SessionStore
		err error
	)
	switch backend {
	case "", "memory":
		backend = "memory"
		s = NewMemory(cfg.TTL)
	case "redis":
		s, err = OpenRedis(ctx, cfg.RedisAddr, cfg.Prefix, cfg.TTL, log)
	case "sqlite", "postgres":
		s, err = OpenSQL(backend, cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if m != nil {
		s = &instrumented{next: s, backend: backend, metrics: m}
	}
	if cfg.CacheSize > 0 {
		return NewCached(s, cfg.CacheSize, log)
	}
	return s, nil
}

type instrumented struct {
	next    SessionStore
	backend string
	metrics *observability.Metrics
}

func (i *instrumented) record(op string, err error) error {
	if err != nil && !errors.Is(err, ErrNotFound) {
		i.metrics.StoreError(i.backend, op)
	}
	return err
}

func (i *instrumented) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s, err := i.next.Load(ctx, id)
	return s, i.record("load", err)
}

func (i *instrumented) Save(ctx context.Context, s *domain.Session) error {
	return i.record("save", i.next.Save(ctx, s))
}

func (i *instrumented) Delete(ctx context.Context, id uuid.UUID) error {
	return i.record("delete", i.next.Delete(ctx, id))
}

func (i *instrumented) Close() error { return i.next.Close() }
