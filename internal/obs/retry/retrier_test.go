package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noWait struct{}

func (noWait) Next(int) time.Duration { return 0 }

func TestExpoJitter_CapsAtMax(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}

	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
	assert.Equal(t, 100*time.Millisecond, b.Next(-3))
}

func TestExpoJitter_StaysWithinSpread(t *testing.T) {
	b := ExpoJitter{Base: time.Second, Jitter: 0.2}
	for i := 0; i < 100; i++ {
		d := b.Next(0)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	}, Policy{Name: "test_success", Attempts: 5, Backoff: noWait{}})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	exhausted := false

	err := Do(context.Background(), func() error {
		calls++
		return permanent
	}, Policy{
		Name:      "test_permanent",
		Attempts:  5,
		Backoff:   noWait{},
		Retryable: func(err error) bool { return !errors.Is(err, permanent) },
		OnExhaust: func(error) { exhausted = true },
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.True(t, exhausted)
}

func TestDo_ReturnsLastErrorAfterAttempts(t *testing.T) {
	calls := 0
	var seen []int
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("still failing")
	}, Policy{
		Name:      "test_exhaust",
		Attempts:  3,
		Backoff:   noWait{},
		OnAttempt: func(i int, _ error) { seen = append(seen, i) },
	})

	require.EqualError(t, err, "still failing")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestDo_HonoursContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("fail")
	}, Policy{Name: "test_cancel", Attempts: 5, Backoff: ExpoJitter{Base: time.Hour}})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("bad payload")
	calls := 0

	err := Do(context.Background(), func() error {
		calls++
		return Permanent(cause)
	}, Policy{Name: "test_marked_permanent", Attempts: 4, Backoff: noWait{}})

	require.ErrorIs(t, err, cause)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}
