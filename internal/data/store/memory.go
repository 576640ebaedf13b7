package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

// Memory keeps encoded sessions in process with an idle TTL. Values are stored
// encoded so callers never share state with the store.
type Memory struct {
	c   *gocache.Cache
	ttl time.Duration
}

// NewMemory expires sessions ttl after their last save; ttl <= 0 keeps them forever.
func NewMemory(ttl time.Duration) *Memory {
	exp := ttl
	if exp <= 0 {
		exp = gocache.NoExpiration
	}
	cleanup := 10 * time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &Memory{c: gocache.New(exp, cleanup), ttl: exp}
}

func (m *Memory) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.c.Get(id.String())
	if !ok {
		return nil, ErrNotFound
	}
	return decode(v.([]byte))
}

func (m *Memory) Save(ctx context.Context, s *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(s); err != nil {
		return err
	}
	b, err := encode(s)
	if err != nil {
		return err
	}
	m.c.Set(s.ID.String(), b, gocache.DefaultExpiration)
	return nil
}

func (m *Memory) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.c.Delete(id.String())
	return nil
}

func (m *Memory) Len() int { return m.c.ItemCount() }

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}
