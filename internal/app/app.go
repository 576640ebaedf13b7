package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/neurobridge-tutor/internal/config"
	"github.com/yungbote/neurobridge-tutor/internal/data/store"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/decision"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/review"
	"github.com/yungbote/neurobridge-tutor/internal/observability"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
	"github.com/yungbote/neurobridge-tutor/internal/platform/shutdown"
	"github.com/yungbote/neurobridge-tutor/internal/policy"
)

// App holds the wired tutoring core. Every handle is explicit; nothing is kept in
// package-level state.
type App struct {
	Log       *logger.Logger
	Cfg       *config.Config
	Graph     *curriculum.Graph
	Store     store.SessionStore
	Policy    policy.Policy
	Engine    *decision.Engine
	Scheduler *review.Scheduler
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry

	now     func() time.Time
	closers []func(context.Context) error
}

type Option func(*App)

// WithLogger skips logger construction from cfg.Env.
func WithLogger(log *logger.Logger) Option {
	return func(a *App) { a.Log = log }
}

// WithStore skips opening the configured backend.
func WithStore(s store.SessionStore) Option {
	return func(a *App) { a.Store = s }
}

// WithPolicy skips building the configured policy.
func WithPolicy(p policy.Policy) Option {
	return func(a *App) { a.Policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	if a.Log == nil {
		log, err := logger.New(cfg.Env)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		a.Log = log
	}

	a.closers = append(a.closers, observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Telemetry.Version,
	}))

	a.Registry = prometheus.NewRegistry()
	a.Metrics = observability.NewMetrics(a.Registry)

	g, err := LoadGraph(cfg, a.Log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Graph = g

	if a.Store == nil {
		s, err := store.Open(ctx, cfg.Store.Options(), a.Log, a.Metrics)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open session store: %w", err)
		}
		a.Store = s
	}
	a.closers = append(a.closers, func(context.Context) error { return a.Store.Close() })

	if a.Policy == nil {
		p, err := buildPolicy(cfg.Policy, g)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build policy: %w", err)
		}
		a.Policy = p
	}

	a.Engine = decision.New(g,
		decision.WithPolicy(a.Policy),
		decision.WithTimeout(cfg.Policy.Timeout.Duration),
		decision.WithLogger(a.Log),
		decision.WithMetrics(a.Metrics),
		decision.WithClock(a.now),
	)
	a.Scheduler = review.New(g, review.WithClock(a.now))

	a.Log.Info("tutor initialized",
		"catalog_version", g.Version(),
		"topics", g.Len(),
		"store", cfg.Store.Backend,
		"policy", policy.NameOf(a.Policy),
	)
	return a, nil
}

// LoadGraph builds the curriculum graph from cfg.CatalogPath, or the embedded catalog.
func LoadGraph(cfg *config.Config, log *logger.Logger) (*curriculum.Graph, error) {
	cat := curriculum.DefaultCatalog()
	if cfg.CatalogPath != "" {
		c, err := curriculum.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		cat = c
	}
	g, err := curriculum.NewGraph(cat, log)
	if err != nil {
		return nil, fmt.Errorf("build curriculum graph: %w", err)
	}
	return g, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if err := shutdown.Drain(5*time.Second, a.closers...); err != nil && a.Log != nil {
		a.Log.Warn("shutdown incomplete", "error", err)
	}
	a.closers = nil
	if a.Log != nil {
		a.Log.Sync()
	}
}
