// Package linear serves a policy exported as per-head linear layers. Each action head
// is argmax(W·obs + b), which is how a trained network's final layer is evaluated
// deterministically.
package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/policy"
)

// HeadSnapshot is one action head: Weights has one row per output index.
type HeadSnapshot struct {
	Name    string      `json:"name"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

type Snapshot struct {
	Version   string         `json:"version"`
	InputSize int            `json:"input_size"`
	Heads     []HeadSnapshot `json:"heads"`
}

type head struct {
	w *mat.Dense
	b *mat.VecDense
}

type Policy struct {
	version   string
	inputSize int
	heads     [domain.ActionHeads]head
}

func Load(path string) (*Policy, error) {
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("read policy snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse policy snapshot %s: %w", path, err)
	}
	return New(snap)
}

func New(snap Snapshot) (*Policy, error) {
	if snap.InputSize <= 0 {
		return nil, fmt.Errorf("linear policy: input_size must be positive, got %d", snap.InputSize)
	}
	if len(snap.Heads) != domain.ActionHeads {
		return nil, fmt.Errorf("linear policy: want %d heads, got %d", domain.ActionHeads, len(snap.Heads))
	}
	p := &Policy{version: snap.Version, inputSize: snap.InputSize}
	for i, h := range snap.Heads {
		rows := len(h.Weights)
		if rows == 0 {
			return nil, fmt.Errorf("linear policy: head %d (%s) has no outputs", i, h.Name)
		}
		data := make([]float64, 0, rows*snap.InputSize)
		for r, row := range h.Weights {
			if len(row) != snap.InputSize {
				return nil, fmt.Errorf("linear policy: head %d row %d has %d weights, want %d", i, r, len(row), snap.InputSize)
			}
			data = append(data, row...)
		}
		bias := make([]float64, rows)
		if len(h.Bias) > 0 {
			if len(h.Bias) != rows {
				return nil, fmt.Errorf("linear policy: head %d bias has %d entries, want %d", i, len(h.Bias), rows)
			}
			copy(bias, h.Bias)
		}
		p.heads[i] = head{
			w: mat.NewDense(rows, snap.InputSize, data),
			b: mat.NewVecDense(rows, bias),
		}
	}
	return p, nil
}

func (p *Policy) Name() string { return "linear:" + p.version }

func (p *Policy) InputSize() int { return p.inputSize }

// Outputs reports how many indices each head can produce.
func (p *Policy) Outputs() [domain.ActionHeads]int {
	var out [domain.ActionHeads]int
	for i, h := range p.heads {
		out[i], _ = h.w.Dims()
	}
	return out
}

func (p *Policy) Predict(ctx context.Context, obs []float64) (domain.ActionIndices, error) {
	var out domain.ActionIndices
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("%w: %v", policy.ErrUnavailable, err)
	}
	if len(obs) != p.inputSize {
		return out, fmt.Errorf("%w: got %d want %d", policy.ErrInputSize, len(obs), p.inputSize)
	}
	x := mat.NewVecDense(len(obs), append([]float64(nil), obs...))
	for i, h := range p.heads {
		rows, _ := h.w.Dims()
		var logits mat.VecDense
		logits.MulVec(h.w, x)
		logits.AddVec(&logits, h.b)
		vals := make([]float64, rows)
		for r := range vals {
			vals[r] = logits.AtVec(r)
		}
		out[i] = floats.MaxIdx(vals)
	}
	return out, nil
}
