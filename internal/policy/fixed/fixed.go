// Package fixed is a policy that always answers with the same action.
package fixed

import (
	"context"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

type Policy struct {
	action domain.ActionIndices
	size   int
}

func New(a domain.Action, inputSize int) *Policy {
	return &Policy{action: a.Indices(), size: inputSize}
}

// FromIndices keeps raw indices as-is, including out-of-range ones.
func FromIndices(idx domain.ActionIndices, inputSize int) *Policy {
	return &Policy{action: idx, size: inputSize}
}

func (p *Policy) Name() string { return "fixed" }

func (p *Policy) InputSize() int { return p.size }

func (p *Policy) Predict(_ context.Context, _ []float64) (domain.ActionIndices, error) {
	return p.action, nil
}
