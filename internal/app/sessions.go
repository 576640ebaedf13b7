package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-tutor/internal/data/store"
	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/decision"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/learner"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/review"
	"github.com/yungbote/neurobridge-tutor/internal/platform/ctxutil"
)

const defaultStoreTimeout = 2 * time.Second

// NewSession creates and stores a session. A nil seed uses the population-average
// profile; otherwise a learner profile is sampled from the seed.
func (a *App) NewSession(ctx context.Context, seed *int64) (*domain.Session, error) {
	subjects := a.Graph.Subjects()
	profile := learner.DefaultProfile(subjects)
	if seed != nil {
		profile = learner.SampleProfile(rand.New(rand.NewSource(*seed)), subjects)
	}
	sess := domain.NewSession(profile, learner.NewSessionState(a.Graph, profile), a.Graph.Version(), a.now())
	if err := a.storeSave(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	a.Log.Info("session created", "session_id", sess.ID.String(), "catalog_version", sess.CatalogVersion)
	return sess, nil
}

// LoadSession loads a session and fills per-topic entries for topics added to the
// catalog since it was saved.
func (a *App) LoadSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess, err := a.storeLoad(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.CatalogVersion != a.Graph.Version() {
		a.Log.Warn("session catalog version differs",
			"session_id", id.String(),
			"session_version", sess.CatalogVersion,
			"catalog_version", a.Graph.Version(),
		)
	}
	if sess.Profile == nil {
		sess.Profile = learner.DefaultProfile(a.Graph.Subjects())
	}
	if sess.State == nil {
		a.Log.Warn("session has no learner state, starting fresh", "session_id", id.String())
		sess.State = learner.NewSessionState(a.Graph, sess.Profile)
	}
	sess.State.EnsureMaps()
	for _, k := range a.Graph.Keys() {
		if _, ok := sess.State.Mastery[k]; !ok {
			sess.State.Mastery[k] = 0
		}
	}
	return sess, nil
}

func withTrace(ctx context.Context, id uuid.UUID) context.Context {
	td := &ctxutil.TraceData{SessionID: id.String(), RequestID: uuid.NewString()}
	if prev := ctxutil.GetTraceData(ctx); prev != nil && prev.RequestID != "" {
		td.RequestID = prev.RequestID
	}
	return ctxutil.WithTraceData(ctx, td)
}

func (a *App) save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = a.now().UTC()
	sess.CatalogVersion = a.Graph.Version()
	if err := a.storeSave(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (a *App) storeTimeout() time.Duration {
	if a.Cfg != nil && a.Cfg.Store.Timeout.Duration > 0 {
		return a.Cfg.Store.Timeout.Duration
	}
	return defaultStoreTimeout
}

func (a *App) storeLoad(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return bounded(ctx, a.storeTimeout(), "load", func(ctx context.Context) (*domain.Session, error) {
		return a.Store.Load(ctx, id)
	})
}

func (a *App) storeSave(ctx context.Context, sess *domain.Session) error {
	_, err := bounded(ctx, a.storeTimeout(), "save", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.Store.Save(ctx, sess)
	})
	return err
}

// bounded runs fn under timeout. A call still running at the deadline is abandoned,
// and deadline failures surface as store.ErrUnavailable.
func bounded[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	var zero T
	select {
	case r := <-ch:
		if r.err != nil {
			return zero, storeErr(op, r.err)
		}
		return r.v, nil
	case <-ctx.Done():
		return zero, storeErr(op, ctx.Err())
	}
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: session %s: %w", store.ErrUnavailable, op, err)
	}
	return err
}

// Decide returns the next plan for a stored session. The plan is returned even when
// saving the updated history fails, alongside the save error.
func (a *App) Decide(ctx context.Context, id uuid.UUID, topic string) (domain.InstructionalPlan, error) {
	ctx = withTrace(ctx, id)
	sess, err := a.LoadSession(ctx, id)
	if err != nil {
		return domain.InstructionalPlan{}, err
	}
	plan := a.Engine.Decide(ctx, sess.State, sess.Profile, topic)
	return plan, a.save(ctx, sess)
}

func (a *App) ReportOutcome(ctx context.Context, id uuid.UUID, out domain.Outcome) (decision.OutcomeResult, error) {
	ctx = withTrace(ctx, id)
	sess, err := a.LoadSession(ctx, id)
	if err != nil {
		return decision.OutcomeResult{}, err
	}
	res, err := a.Engine.ReportOutcome(ctx, sess.State, sess.Profile, out)
	if err != nil {
		return decision.OutcomeResult{}, err
	}
	return res, a.save(ctx, sess)
}

func (a *App) Schedule(ctx context.Context, id uuid.UUID) ([]review.Due, error) {
	sess, err := a.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Scheduler.Plan(sess.State), nil
}
