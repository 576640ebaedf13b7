package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

// Cached fronts a store with an LRU of encoded sessions. Loads hit the cache first, so
// a recently used session stays readable while the backend is down. Writes go to the
// backend before the cache.
type Cached struct {
	next  SessionStore
	cache *lru.Cache[uuid.UUID, []byte]
	log   *logger.Logger
}

func NewCached(next SessionStore, size int, log *logger.Logger) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[uuid.UUID, []byte](size)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cached{next: next, cache: c, log: log.With("service", "SessionCache")}, nil
}

func (c *Cached) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if raw, ok := c.cache.Get(id); ok {
		return decode(raw)
	}
	s, err := c.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := encode(s); err == nil {
		c.cache.Add(id, b)
	}
	return s, nil
}

func (c *Cached) Save(ctx context.Context, s *domain.Session) error {
	if err := validate(s); err != nil {
		return err
	}
	if err := c.next.Save(ctx, s); err != nil {
		if errors.Is(err, ErrUnavailable) {
			// a stale cached copy would hide the failed write
			c.cache.Remove(s.ID)
		}
		return err
	}
	b, err := encode(s)
	if err != nil {
		return err
	}
	c.cache.Add(s.ID, b)
	return nil
}

func (c *Cached) Delete(ctx context.Context, id uuid.UUID) error {
	c.cache.Remove(id)
	return c.next.Delete(ctx, id)
}

func (c *Cached) Len() int { return c.cache.Len() }

func (c *Cached) Close() error {
	c.cache.Purge()
	return c.next.Close()
}
