package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGate(clock *fakeClock, spacing time.Duration, limit int) *Gate {
	return New(Config{
		MinSpacing: spacing,
		HourlyLimits: map[Class]int{
			ClassDetails: limit,
			ClassGPS:     limit,
		},
	}, logger.Discard(), WithClock(clock.Now))
}

func TestThrottleSpacing(t *testing.T) {
	spacing := 60 * time.Millisecond
	g := New(Config{MinSpacing: spacing}, logger.Discard())
	ctx := context.Background()

	require.NoError(t, g.Throttle(ctx))
	start := time.Now()
	require.NoError(t, g.Throttle(ctx))
	first := time.Since(start)
	require.NoError(t, g.Throttle(ctx))
	second := time.Since(start)

	assert.GreaterOrEqual(t, first, spacing-time.Millisecond)
	assert.GreaterOrEqual(t, second, 2*spacing-time.Millisecond)
}

func TestThrottleZeroSpacing(t *testing.T) {
	g := New(Config{}, logger.Discard())
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, g.Throttle(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestThrottleCancelled(t *testing.T) {
	g := New(Config{MinSpacing: time.Hour}, logger.Discard())
	require.NoError(t, g.Throttle(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Throttle(ctx))
}

func TestQuotaExhaustion(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock, 0, 3)

	for i := 0; i < 3; i++ {
		d := g.CheckQuota(ClassDetails)
		require.True(t, d.Allowed, "call %d", i)
		g.RecordCall(ClassDetails)
		clock.Advance(5 * time.Minute)
	}

	d := g.CheckQuota(ClassDetails)
	assert.False(t, d.Allowed)
	// oldest at t0, now t0+15m
	assert.Equal(t, 45, d.WaitMinutes)

	// other restricted classes keep their own budget
	assert.True(t, g.CheckQuota(ClassGPS).Allowed)
	// unrestricted calls are never refused
	assert.True(t, g.CheckQuota(ClassStandard).Allowed)
}

func TestQuotaWindowExpiry(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock, 0, 2)

	g.RecordCall(ClassGPS)
	clock.Advance(30 * time.Minute)
	g.RecordCall(ClassGPS)
	require.False(t, g.CheckQuota(ClassGPS).Allowed)

	clock.Advance(29*time.Minute + 30*time.Second)
	d := g.CheckQuota(ClassGPS)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.WaitMinutes)

	clock.Advance(30 * time.Second)
	assert.True(t, g.CheckQuota(ClassGPS).Allowed)

	remaining, ok := g.Remaining(ClassGPS)
	require.True(t, ok)
	assert.Equal(t, 1, remaining)
}

func TestRemaining(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock, 0, 2)

	_, ok := g.Remaining(ClassStandard)
	assert.False(t, ok)

	expected := []int{1, 0, 0}
	for _, want := range expected {
		g.RecordCall(ClassDetails)
		got, ok := g.Remaining(ClassDetails)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestUsage(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock, 0, 3)

	usage, ok := g.Usage(ClassDetails)
	require.True(t, ok)
	assert.Equal(t, Usage{Limit: 3, Remaining: 3}, usage)

	g.RecordCall(ClassDetails)
	clock.Advance(10 * time.Minute)

	usage, ok = g.Usage(ClassDetails)
	require.True(t, ok)
	assert.Equal(t, 1, usage.Used)
	assert.Equal(t, 2, usage.Remaining)
	assert.Equal(t, 50, usage.ResetInMinutes)

	_, ok = g.Usage(ClassStandard)
	assert.False(t, ok)
}

func TestDoCountsOnlySuccess(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock, 0, 1)
	ctx := context.Background()

	failure := errors.New("upstream went away")
	err := g.Do(ctx, ClassDetails, func(context.Context) error { return failure })
	require.ErrorIs(t, err, failure)

	remaining, _ := g.Remaining(ClassDetails)
	assert.Equal(t, 1, remaining, "failed call must not consume quota")

	require.NoError(t, g.Do(ctx, ClassDetails, func(context.Context) error { return nil }))
	remaining, _ = g.Remaining(ClassDetails)
	assert.Equal(t, 0, remaining)

	called := false
	err = g.Do(ctx, ClassDetails, func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, domain.IsKind(err, domain.KindQuotaExceeded))
	assert.Equal(t, 60, domain.WaitMinutesOf(err))
}

func TestAcquireReservesSlot(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock, 0, 1)
	ctx := context.Background()

	ticket, err := g.Acquire(ctx, ClassGPS)
	require.NoError(t, err)

	// a second caller cannot take the reserved slot
	_, err = g.Acquire(ctx, ClassGPS)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindQuotaExceeded))
	assert.Equal(t, 1, domain.WaitMinutesOf(err))

	ticket.Release()
	ticket.Commit() // no-op after release

	remaining, _ := g.Remaining(ClassGPS)
	assert.Equal(t, 1, remaining)

	ticket, err = g.Acquire(ctx, ClassGPS)
	require.NoError(t, err)
	ticket.Commit()

	remaining, _ = g.Remaining(ClassGPS)
	assert.Equal(t, 0, remaining)
}

func TestZeroLimitReportsFullWindow(t *testing.T) {
	g := newTestGate(newFakeClock(), 0, 0)

	_, err := g.Acquire(context.Background(), ClassGPS)
	require.Error(t, err)
	assert.Equal(t, 60, domain.WaitMinutesOf(err))
}

func TestConcurrentAcquireNeverExceedsLimit(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock, 0, 3)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Do(ctx, ClassDetails, func(context.Context) error { return nil }); err == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowed)
}
