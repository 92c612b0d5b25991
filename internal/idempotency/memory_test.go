package idempotency

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Guard = (*MemoryGuard)(nil)
var _ Guard = (*RedisGuard)(nil)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestGuard() (*MemoryGuard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := NewMemoryGuard(Options{TTL: time.Hour, PendingTTL: time.Minute})
	g.SetClock(clock.Now)
	return g, clock
}

func TestMemoryGuard_Lifecycle(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	st, err := g.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)

	st, err = g.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StatePending, st)

	require.NoError(t, g.Commit(ctx, "k1"))

	st, err = g.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, st)
}

func TestMemoryGuard_ReleaseAllowsRetry(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	_, err := g.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NoError(t, g.Release(ctx, "k1"))

	st, err := g.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}

func TestMemoryGuard_ReleaseKeepsCommitted(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	_, err := g.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NoError(t, g.Commit(ctx, "k1"))
	require.NoError(t, g.Release(ctx, "k1"))

	st, err := g.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, st)
}

func TestMemoryGuard_Expiry(t *testing.T) {
	g, clock := newTestGuard()
	ctx := context.Background()

	_, err := g.Begin(ctx, "pending")
	require.NoError(t, err)
	_, err = g.Begin(ctx, "done")
	require.NoError(t, err)
	require.NoError(t, g.Commit(ctx, "done"))
	assert.Equal(t, 2, g.Len())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, g.Len(), "pending token outlives its TTL")

	st, err := g.Begin(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)

	clock.Advance(2 * time.Hour)
	st, err = g.Begin(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}

func TestMemoryGuard_ConcurrentBeginSingleOwner(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	owners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := g.Begin(ctx, "shared")
			if err != nil {
				t.Error(err)
				return
			}
			if st == StateNew {
				mu.Lock()
				owners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, owners)
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultTTL, o.TTL)
	assert.Equal(t, DefaultPendingTTL, o.PendingTTL)
}

func TestState_String(t *testing.T) {
	for st, want := range map[State]string{
		StateNew:       "new",
		StatePending:   "pending",
		StateCommitted: "committed",
		State(9):       "unknown",
	} {
		assert.Equal(t, want, st.String(), fmt.Sprint(int(st)))
	}
}
