package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDrainRunsInReverseAndJoinsErrors(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	err := Drain(time.Second,
		func(context.Context) error { order = append(order, 1); return nil },
		nil,
		func(context.Context) error { order = append(order, 3); return boom },
	)
	assert.Equal(t, []int{3, 1}, order)
	assert.ErrorIs(t, err, boom)
}

func TestDrainSharesDeadline(t *testing.T) {
	err := Drain(10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
