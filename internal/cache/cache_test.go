package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"onu-map/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type payload struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

// failingStore fails every operation
type failingStore struct{}

var errStorage = errors.New("disk on fire")

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errStorage
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStorage
}

func (failingStore) Delete(context.Context, string) error {
	return errStorage
}

func (failingStore) Flush(context.Context) error {
	return errStorage
}

func (failingStore) Close() error {
	return nil
}

func newTestCache() (*Cache, *testClock) {
	clock := &testClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	return New(NewMemoryStore(WithMemoryClock(clock.Now)), logger.Discard()), clock
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	want := payload{Name: "B1", Count: 2, Tags: []string{"a", "b"}}
	c.Set(ctx, "onus:list:x", want, time.Minute)

	var got payload
	require.True(t, c.Get(ctx, "onus:list:x", &got))
	assert.Equal(t, want, got)
}

func TestCacheExpiry(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "short", 1, 10*time.Second)
	c.Set(ctx, "long", 2, time.Hour)

	clock.Advance(9 * time.Second)
	var v int
	require.True(t, c.Get(ctx, "short", &v))
	assert.Equal(t, 1, v)

	// touching unrelated keys must not extend the entry
	for i := 0; i < 10; i++ {
		c.Set(ctx, "other", i, time.Minute)
	}

	clock.Advance(time.Second)
	assert.False(t, c.Get(ctx, "short", &v))
	require.True(t, c.Get(ctx, "long", &v))
	assert.Equal(t, 2, v)
}

func TestCacheOverwrite(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "k", "first", time.Second)
	c.Set(ctx, "k", "second", time.Minute)
	clock.Advance(2 * time.Second)

	var v string
	require.True(t, c.Get(ctx, "k", &v))
	assert.Equal(t, "second", v)
}

func TestCacheNonPositiveTTL(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "k", "v", 0)
	var v string
	assert.False(t, c.Get(ctx, "k", &v))
}

func TestCacheInvalidateAndFlush(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "b", 2, time.Minute)

	require.NoError(t, c.Invalidate(ctx, "a"))
	var v int
	assert.False(t, c.Get(ctx, "a", &v))
	assert.True(t, c.Get(ctx, "b", &v))

	require.NoError(t, c.FlushAll(ctx))
	assert.False(t, c.Get(ctx, "b", &v))
}

func TestCacheSwallowsStorageFaults(t *testing.T) {
	c := New(failingStore{}, logger.Discard())
	ctx := context.Background()

	assert.NotPanics(t, func() {
		c.Set(ctx, "k", "v", time.Minute)
	})

	var v string
	assert.False(t, c.Get(ctx, "k", &v))

	// diagnostics report the fault
	assert.ErrorIs(t, c.Invalidate(ctx, "k"), errStorage)
	assert.ErrorIs(t, c.FlushAll(ctx), errStorage)
}

func TestCacheUndecodableEntryIsMiss(t *testing.T) {
	store := NewMemoryStore()
	c := New(store, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("{not json"), time.Minute))

	var v payload
	assert.False(t, c.Get(ctx, "k", &v))
}

func TestMemoryStoreCleanup(t *testing.T) {
	clock := &testClock{now: time.Now()}
	store := NewMemoryStore(WithMemoryClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Hour))
	clock.Advance(time.Minute)

	assert.Equal(t, 1, store.Cleanup())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Set(context.Background(), "a", nil, time.Second), ErrClosed)
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore(logger.Discard())
	require.NoError(t, err)
	defer store.Close()

	c := New(store, logger.Discard())
	ctx := context.Background()

	want := payload{Name: "odb-7", Count: 4}
	c.Set(ctx, "onus:geo:x", want, time.Hour)

	var got payload
	require.True(t, c.Get(ctx, "onus:geo:x", &got))
	assert.Equal(t, want, got)

	require.NoError(t, c.Invalidate(ctx, "onus:geo:x"))
	assert.False(t, c.Get(ctx, "onus:geo:x", &got))

	// deleting an absent key is not an error
	require.NoError(t, c.Invalidate(ctx, "missing"))

	c.Set(ctx, "a", 1, time.Hour)
	require.NoError(t, c.FlushAll(ctx))
	var v int
	assert.False(t, c.Get(ctx, "a", &v))
}

func TestBadgerStoreSubSecondTTL(t *testing.T) {
	store, err := NewBadgerStore(logger.Discard())
	require.NoError(t, err)
	defer store.Close()

	c := New(store, logger.Discard())
	ctx := context.Background()

	for i := range 20 {
		c.Set(ctx, "onu:status:HWTC1", i, 500*time.Millisecond)

		var got int
		require.True(t, c.Get(ctx, "onu:status:HWTC1", &got), "round %d", i)
		assert.Equal(t, i, got)
	}
}

func TestBadgerStoreExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for badger TTL expiry")
	}

	store, err := NewBadgerStore(logger.Discard())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	time.Sleep(2100 * time.Millisecond)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestPrefixOf(t *testing.T) {
	assert.Equal(t, "onus:list", prefixOf("onus:list:board=&olt_id=1"))
	assert.Equal(t, "onu:status", prefixOf("onu:status:HWTC1"))
	assert.Equal(t, "plain", prefixOf("plain"))
}
