// Package policy defines the contract between the tutoring core and a trained
// decision policy.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

var (
	// ErrUnavailable marks transient failures: the caller may retry or fall back.
	ErrUnavailable = errors.New("policy unavailable")
	// ErrInvalidAction marks output that does not fit the action cardinality.
	ErrInvalidAction = errors.New("policy returned invalid action")
	// ErrInputSize marks an observation whose length differs from InputSize.
	ErrInputSize = errors.New("policy input size mismatch")
)

// Policy maps an observation vector to one index per action head. Implementations
// must be deterministic for inference and safe for concurrent use.
type Policy interface {
	Predict(ctx context.Context, obs []float64) (domain.ActionIndices, error)
	// InputSize is the observation length the policy was trained on; 0 means any.
	InputSize() int
}

// Named is implemented by policies that can describe themselves for logs.
type Named interface {
	Name() string
}

func NameOf(p Policy) string {
	if p == nil {
		return "none"
	}
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}

// Resolve validates raw output against the catalog size.
func Resolve(idx domain.ActionIndices, topicCount int) (domain.Action, error) {
	a, err := idx.ToAction(topicCount)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return a, nil
}

// Func adapts a plain function.
type Func func(ctx context.Context, obs []float64) (domain.ActionIndices, error)

func (f Func) Predict(ctx context.Context, obs []float64) (domain.ActionIndices, error) {
	return f(ctx, obs)
}

func (Func) InputSize() int { return 0 }
