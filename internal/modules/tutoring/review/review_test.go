package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/learner"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

func TestNextInterval(t *testing.T) {
	cases := []struct {
		name                    string
		mastery, previous, perf float64
		want                    float64
	}{
		{"failed resets", 0.9, 30, 0.5, 1},
		{"first review", 0.5, 0, 0.9, 1},
		{"second review", 0.5, 1, 0.9, 3},
		{"grows with ease", 0.5, 10, 0.6, 10 * 1.3 * 1.0},
		{"capped", 1.0, 50, 1.0, MaxIntervalDays},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, NextInterval(tc.mastery, tc.previous, tc.perf), 1e-9)
		})
	}
}

func TestNextIntervalRewardsMastery(t *testing.T) {
	assert.Greater(t, NextInterval(0.8, 10, 0.9), NextInterval(0.2, 10, 0.9))
}

func TestSchedule(t *testing.T) {
	g, err := curriculum.NewGraph(curriculum.DefaultCatalog(), logger.Nop())
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sch := New(g, WithClock(func() time.Time { return now }))

	st := learner.NewSessionState(g, nil)
	fresh := g.Topic(0).Key
	recent := g.Topic(1).Key
	stale := g.Topic(2).Key

	st.Mastery[recent] = 0.7
	st.LastPracticedAt[recent] = now.Add(-24 * time.Hour)
	st.ReviewIntervalDays[recent] = 4

	st.Mastery[stale] = 0.4
	st.LastPracticedAt[stale] = now.Add(-10 * 24 * time.Hour)
	st.ReviewIntervalDays[stale] = 3

	due := sch.Schedule(st)
	assert.Len(t, due, g.Len())
	assert.Equal(t, now, due[fresh])
	assert.Equal(t, now.Add(3*24*time.Hour), due[recent])
	assert.Equal(t, now, due[stale])

	dueNow := sch.DueBy(st, now)
	assert.Contains(t, dueNow, fresh)
	assert.Contains(t, dueNow, stale)
	assert.NotContains(t, dueNow, recent)

	plan := sch.Plan(st)
	assert.Equal(t, recent, plan[len(plan)-1].Topic)
}

func TestIntervalWithoutRecordedInterval(t *testing.T) {
	g, err := curriculum.NewGraph(curriculum.DefaultCatalog(), logger.Nop())
	require.NoError(t, err)
	st := learner.NewSessionState(g, nil)
	k := g.Topic(0).Key
	st.Mastery[k] = 0.8
	st.LastPerformance[k] = 0.3
	assert.Equal(t, 1.0, Interval(st, k))
}

func TestIntervalFallbackIsOneDay(t *testing.T) {
	g, err := curriculum.NewGraph(curriculum.DefaultCatalog(), logger.Nop())
	require.NoError(t, err)
	k := g.Topic(0).Key
	for _, tc := range []struct{ mastery, perf float64 }{{0, 0}, {0.5, 0.7}, {0.95, 1}} {
		st := learner.NewSessionState(g, nil)
		st.Mastery[k] = tc.mastery
		st.LastPerformance[k] = tc.perf
		assert.Equal(t, 1.0, Interval(st, k), "mastery=%v perf=%v", tc.mastery, tc.perf)
	}

	st := learner.NewSessionState(g, nil)
	st.ReviewIntervalDays[k] = 7.5
	assert.Equal(t, 7.5, Interval(st, k))
}
