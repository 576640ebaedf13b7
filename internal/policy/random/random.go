// Package random samples uniformly over the action space. It is a baseline for
// rollouts, not an inference policy.
package random

import (
	"context"
	"math/rand"
	"sync"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

type Policy struct {
	mu   sync.Mutex
	rng  *rand.Rand
	card [domain.ActionHeads]int
}

func New(topicCount int, seed int64) *Policy {
	return &Policy{
		rng:  rand.New(rand.NewSource(seed)),
		card: domain.ActionCardinality(topicCount),
	}
}

func (p *Policy) Name() string { return "random" }

func (p *Policy) InputSize() int { return 0 }

func (p *Policy) Predict(_ context.Context, _ []float64) (domain.ActionIndices, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out domain.ActionIndices
	for i, n := range p.card {
		if n > 0 {
			out[i] = p.rng.Intn(n)
		}
	}
	return out, nil
}
