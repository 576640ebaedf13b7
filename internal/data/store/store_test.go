package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/learner"
	"github.com/yungbote/neurobridge-tutor/internal/observability"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

func newSession(t *testing.T) *domain.Session {
	t.Helper()
	g, err := curriculum.NewGraph(curriculum.DefaultCatalog(), logger.Nop())
	require.NoError(t, err)
	p := learner.DefaultProfile([]string{"Math", "Science", "English"})
	st := learner.NewSessionState(g, p)
	st.Mastery["Math-Numbers"] = 0.42
	st.Misconceptions["Math-Addition"] = 0.3
	st.LastPracticedAt["Math-Numbers"] = time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	return domain.NewSession(p, st, g.Version(), time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC))
}

// exerciseStore is the contract every backend satisfies.
func exerciseStore(t *testing.T, s SessionStore) {
	ctx := context.Background()

	_, err := s.Load(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	sess := newSession(t)
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.CatalogVersion, got.CatalogVersion)
	assert.Equal(t, 0.42, got.State.Mastery["Math-Numbers"])
	assert.Equal(t, 0.3, got.State.Misconceptions["Math-Addition"])
	assert.True(t, sess.State.LastPracticedAt["Math-Numbers"].Equal(got.State.LastPracticedAt["Math-Numbers"]))
	assert.Equal(t, sess.Profile.LearningRate, got.Profile.LearningRate)

	// loaded sessions are copies
	got.State.Mastery["Math-Numbers"] = 0.99
	again, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.42, again.State.Mastery["Math-Numbers"])

	sess.State.Mastery["Math-Numbers"] = 0.5
	sess.UpdatedAt = sess.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.Save(ctx, sess))
	again, err = s.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, again.State.Mastery["Math-Numbers"])

	assert.ErrorIs(t, s.Save(ctx, &domain.Session{}), ErrInvalid)
	assert.ErrorIs(t, s.Save(ctx, nil), ErrInvalid)

	require.NoError(t, s.Delete(ctx, sess.ID))
	_, err = s.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory(time.Hour)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemory(20 * time.Millisecond)
	defer s.Close()
	sess := newSession(t)
	require.NoError(t, s.Save(context.Background(), sess))
	time.Sleep(40 * time.Millisecond)
	_, err := s.Load(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := OpenSQL("sqlite", dsn, logger.Nop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLStoreUpdatedSince(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := OpenSQL("sqlite", dsn, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	old := newSession(t)
	old.UpdatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := newSession(t)
	recent.UpdatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, old))
	require.NoError(t, s.Save(ctx, recent))

	ids, err := s.UpdatedSince(ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{recent.ID}, ids)
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL("oracle", "", logger.Nop())
	assert.Error(t, err)
	_, err = OpenSQL("postgres", "", logger.Nop())
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := OpenRedis(context.Background(), addr, "tutor:test:"+uuid.NewString()+":", time.Minute, logger.Nop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStoreUnavailable(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	s := NewRedis(rdb, "", time.Minute, logger.Nop())
	defer s.Close()

	_, err := s.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Save(context.Background(), newSession(t)), ErrUnavailable)
}

func TestCachedStore(t *testing.T) {
	c, err := NewCached(NewMemory(0), 8, logger.Nop())
	require.NoError(t, err)
	defer c.Close()
	exerciseStore(t, c)
}

type flakyStore struct {
	SessionStore
	down bool
}

func (f *flakyStore) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if f.down {
		return nil, fmt.Errorf("%w: connection reset", ErrUnavailable)
	}
	return f.SessionStore.Load(ctx, id)
}

func (f *flakyStore) Save(ctx context.Context, s *domain.Session) error {
	if f.down {
		return fmt.Errorf("%w: connection reset", ErrUnavailable)
	}
	return f.SessionStore.Save(ctx, s)
}

func TestCachedServesDuringOutage(t *testing.T) {
	backend := &flakyStore{SessionStore: NewMemory(0)}
	c, err := NewCached(backend, 8, logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	sess := newSession(t)
	require.NoError(t, c.Save(ctx, sess))

	backend.down = true
	got, err := c.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	// a failed write evicts, so the next read reports the outage
	assert.ErrorIs(t, c.Save(ctx, sess), ErrUnavailable)
	_, err = c.Load(ctx, sess.ID)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestOpenMemoryWithMetricsAndCache(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	s, err := Open(context.Background(), Config{Backend: "memory", CacheSize: 4}, logger.Nop(), m)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*Cached)
	assert.True(t, ok)
	exerciseStore(t, s)

	_, err = Open(context.Background(), Config{Backend: "etcd"}, logger.Nop(), nil)
	assert.Error(t, err)
}

func TestDecodeRejectsMissingState(t *testing.T) {
	id := uuid.New()
	for _, raw := range []string{
		fmt.Sprintf(`{"id":%q,"state":null}`, id),
		fmt.Sprintf(`{"id":%q}`, id),
	} {
		_, err := decode([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalid, raw)
	}

	s, err := decode([]byte(fmt.Sprintf(`{"id":%q,"state":{}}`, id)))
	require.NoError(t, err)
	assert.NotNil(t, s.State.Mastery)
}

func TestSQLRowWithoutState(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := OpenSQL("sqlite", dsn, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	id := uuid.New()
	require.NoError(t, s.DB().Create(&SessionRow{ID: id.String(), Profile: datatypes.JSON("null"), State: datatypes.JSON("null")}).Error)
	_, err = s.Load(context.Background(), id)
	assert.ErrorIs(t, err, ErrInvalid)
}
