package app

import (
	"fmt"

	"github.com/yungbote/neurobridge-tutor/internal/config"
	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/policy"
	"github.com/yungbote/neurobridge-tutor/internal/policy/fixed"
	"github.com/yungbote/neurobridge-tutor/internal/policy/linear"
	"github.com/yungbote/neurobridge-tutor/internal/policy/random"
	"github.com/yungbote/neurobridge-tutor/internal/policy/remote"
)

// buildPolicy returns a nil Policy for type "none"; the engine then serves default plans.
func buildPolicy(cfg config.PolicyConfig, g *curriculum.Graph) (policy.Policy, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "linear":
		p, err := linear.Load(cfg.Path)
		if err != nil {
			return nil, err
		}
		if out := p.Outputs(); out[1] != g.Len() {
			return nil, fmt.Errorf("policy topic head has %d outputs, catalog has %d topics", out[1], g.Len())
		}
		return p, nil
	case "remote":
		p, err := remote.New(remote.Config{
			BaseURL:   cfg.URL,
			APIKey:    cfg.APIKey,
			Timeout:   cfg.Timeout.Duration,
			InputSize: cfg.InputSize,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "fixed":
		return fixed.New(domain.DefaultAction(), 0), nil
	case "random":
		return random.New(g.Len(), cfg.Seed), nil
	default:
		return nil, fmt.Errorf("unknown policy type %q", cfg.Type)
	}
}
