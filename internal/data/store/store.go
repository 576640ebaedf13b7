// Package store persists tutoring sessions (learner profile and state) keyed by
// session id. Backends: in-process memory, Redis and SQL via gorm, optionally fronted
// by an LRU read-through cache.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable marks transient backend failures; callers may retry or serve
	// cached state.
	ErrUnavailable = errors.New("session store unavailable")
	ErrInvalid     = errors.New("invalid session")
)

type SessionStore interface {
	Load(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

func validate(s *domain.Session) error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil session", ErrInvalid)
	case s.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalid)
	case s.State == nil:
		return fmt.Errorf("%w: missing state", ErrInvalid)
	}
	return nil
}

func encode(s *domain.Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return b, nil
}

func decode(raw []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.State == nil {
		return nil, fmt.Errorf("%w: session %s has no state", ErrInvalid, s.ID)
	}
	s.State.EnsureMaps()
	return &s, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
