package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

const DefaultRedisPrefix = "tutor:session:"

type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// OpenRedis dials addr and pings it before returning.
func OpenRedis(ctx context.Context, addr, prefix string, ttl time.Duration, log *logger.Logger) (*Redis, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, unavailable("redis ping", err)
	}
	return NewRedis(rdb, prefix, ttl, log), nil
}

func NewRedis(rdb *goredis.Client, prefix string, ttl time.Duration, log *logger.Logger) *Redis {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, log: log.With("service", "RedisSessionStore")}
}

func (r *Redis) key(id uuid.UUID) string { return r.prefix + id.String() }

func (r *Redis) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.log.Warn("redis load failed", "session_id", id.String(), "error", err)
		return nil, unavailable("redis get", err)
	}
	return decode(raw)
}

func (r *Redis) Save(ctx context.Context, s *domain.Session) error {
	if err := validate(s); err != nil {
		return err
	}
	b, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key(s.ID), b, r.ttl).Err(); err != nil {
		r.log.Warn("redis save failed", "session_id", s.ID.String(), "error", err)
		return unavailable("redis set", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return unavailable("redis del", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
