package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ImmediateSuccess(t *testing.T) {
	t.Parallel()

	waits := 0
	err := Until(context.Background(), time.Hour, func() bool { return true }, func() { waits++ })
	require.NoError(t, err)
	assert.Zero(t, waits)
}

func TestUntil_PollsUntilTrue(t *testing.T) {
	t.Parallel()

	var calls, waits atomic.Int32
	err := Until(context.Background(), time.Millisecond, func() bool {
		return calls.Add(1) >= 3
	}, func() { waits.Add(1) })

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(2), waits.Load())
}

func TestUntil_ContextEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Until(ctx, time.Millisecond, func() bool { return false }, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUntil_InvalidInterval(t *testing.T) {
	t.Parallel()

	err := Until(context.Background(), 0, func() bool { return true }, nil)
	require.ErrorIs(t, err, ErrInvalidInterval)
}
