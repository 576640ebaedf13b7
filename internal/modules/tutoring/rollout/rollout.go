// Package rollout drives many isolated simulated learners with one policy and
// summarises each episode. Every episode owns its own simulator, so workers share
// nothing but the read-only curriculum graph and the policy.
package rollout

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/dynamics"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/observation"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/simulator"
	"github.com/yungbote/neurobridge-tutor/internal/observability"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
	"github.com/yungbote/neurobridge-tutor/internal/policy"
)

type Config struct {
	Episodes  int              `yaml:"episodes" json:"episodes"`
	Workers   int              `yaml:"workers" json:"workers"`
	Seed      int64            `yaml:"seed" json:"seed"`
	Simulator simulator.Config `yaml:"simulator" json:"simulator"`
}

func DefaultConfig() Config {
	return Config{Episodes: 16, Workers: 4, Seed: 1, Simulator: simulator.DefaultConfig()}
}

type EpisodeSummary struct {
	Episode               int     `json:"episode"`
	Seed                  int64   `json:"seed"`
	Return                float64 `json:"return"`
	InitialMastery        float64 `json:"initial_mastery"`
	FinalMastery          float64 `json:"final_mastery"`
	Steps                 int     `json:"steps"`
	Overrides             int     `json:"overrides"`
	Fallbacks             int     `json:"fallbacks"`
	MisconceptionsFormed  int     `json:"misconceptions_formed"`
	MisconceptionsCleared int     `json:"misconceptions_cleared"`
	DegradedObservations  int     `json:"degraded_observations"`
}

func (s EpisodeSummary) MasteryGain() float64 { return s.FinalMastery - s.InitialMastery }

type Report struct {
	Episodes    []EpisodeSummary `json:"episodes"`
	MeanReturn  float64          `json:"mean_return"`
	StdReturn   float64          `json:"std_return"`
	MeanGain    float64          `json:"mean_gain"`
	TotalSteps  int              `json:"total_steps"`
	PolicyName  string           `json:"policy"`
	HorizonUsed int              `json:"horizon"`
}

type Runner struct {
	graph    *curriculum.Graph
	policy   policy.Policy
	cfg      Config
	log      *logger.Logger
	metrics  *observability.Metrics
	progress func(done, total int)
}

type Option func(*Runner)

func WithLogger(log *logger.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithProgress is called after every finished episode; calls are serialised.
func WithProgress(fn func(done, total int)) Option {
	return func(r *Runner) { r.progress = fn }
}

func New(g *curriculum.Graph, p policy.Policy, cfg Config, opts ...Option) (*Runner, error) {
	if p == nil {
		return nil, fmt.Errorf("rollout: policy required")
	}
	if cfg.Episodes <= 0 {
		return nil, fmt.Errorf("rollout: episodes must be positive, got %d", cfg.Episodes)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	r := &Runner{graph: g, policy: p, cfg: cfg, log: logger.Nop()}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With("component", "Rollout")
	return r, nil
}

func (r *Runner) Run(ctx context.Context) (Report, error) {
	out := make([]EpisodeSummary, r.cfg.Episodes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	var (
		done       int32
		progressMu sync.Mutex
	)
	for i := 0; i < r.cfg.Episodes; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := r.episode(gctx, i)
			if err != nil {
				return fmt.Errorf("episode %d: %w", i, err)
			}
			out[i] = sum
			n := int(atomic.AddInt32(&done, 1))
			if r.progress != nil {
				progressMu.Lock()
				r.progress(n, r.cfg.Episodes)
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Episode < out[b].Episode })
	returns := make([]float64, len(out))
	gains := make([]float64, len(out))
	rep := Report{Episodes: out, PolicyName: policy.NameOf(r.policy), HorizonUsed: r.cfg.Simulator.Horizon}
	for i, s := range out {
		returns[i] = s.Return
		gains[i] = s.MasteryGain()
		rep.TotalSteps += s.Steps
	}
	rep.MeanReturn, rep.StdReturn = stat.MeanStdDev(returns, nil)
	rep.MeanGain = stat.Mean(gains, nil)
	r.log.Info("rollout finished",
		"episodes", len(out),
		"mean_return", rep.MeanReturn,
		"mean_gain", rep.MeanGain,
		"policy", rep.PolicyName,
	)
	return rep, nil
}

func (r *Runner) episode(ctx context.Context, i int) (EpisodeSummary, error) {
	seed := r.cfg.Seed + int64(i)*7919
	enc := observation.NewEncoder(r.graph, r.policy.InputSize(), r.log,
		observation.WithDegradedHook(func(int, int) { r.metrics.ObservationDegraded() }))
	sim := simulator.New(r.graph, r.cfg.Simulator,
		simulator.WithSeed(seed),
		simulator.WithLogger(r.log),
		simulator.WithEncoder(enc),
		simulator.WithStepHook(func(simulator.StepResult) { r.metrics.SimulatorStep() }),
	)

	sum := EpisodeSummary{Episode: i, Seed: seed}
	obs := sim.Reset()
	sum.InitialMastery = dynamics.AverageMastery(r.graph, sim.State())

	for !sim.Terminated() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		action, ok := r.act(ctx, obs)
		if !ok {
			sum.Fallbacks++
		}
		res, err := sim.Step(action)
		if err != nil {
			return sum, err
		}
		obs = res.Observation
		sum.Return += res.Reward
		sum.Steps++
		if res.Info.Overridden {
			sum.Overrides++
		}
		if res.Info.MisconceptionFormed {
			sum.MisconceptionsFormed++
		}
		if res.Info.MisconceptionCleared {
			sum.MisconceptionsCleared++
		}
		if res.Info.Degraded {
			sum.DegradedObservations++
		}
	}
	sum.FinalMastery = dynamics.AverageMastery(r.graph, sim.State())
	r.metrics.EpisodeReturn(sum.Return)
	return sum, nil
}

// act falls back to the default action on any policy failure so one bad prediction
// does not end the episode.
func (r *Runner) act(ctx context.Context, obs []float64) (domain.Action, bool) {
	idx, err := r.policy.Predict(ctx, obs)
	if err == nil {
		var a domain.Action
		if a, err = policy.Resolve(idx, r.graph.Len()); err == nil {
			return a, true
		}
	}
	r.metrics.PolicyFallback("rollout")
	r.log.Debug("rollout policy fallback", "error", err)
	return domain.DefaultAction(), false
}
