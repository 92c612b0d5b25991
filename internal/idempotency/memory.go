package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryGuard keeps tokens in process memory. Suitable for a single
// instance deployment and for tests.
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	opts    Options
	now     func() time.Time
}

func NewMemoryGuard(opts Options) *MemoryGuard {
	return &MemoryGuard{
		entries: make(map[string]memoryEntry),
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

// SetClock overrides the time source (for tests).
func (g *MemoryGuard) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

func (g *MemoryGuard) Begin(_ context.Context, key string) (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := keyPrefix + key
	now := g.now()
	if e, ok := g.entries[k]; ok && now.Before(e.expires) {
		return e.state, nil
	}

	g.entries[k] = memoryEntry{state: StatePending, expires: now.Add(g.opts.PendingTTL)}
	g.sweep(now)
	return StateNew, nil
}

func (g *MemoryGuard) Commit(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entries[keyPrefix+key] = memoryEntry{state: StateCommitted, expires: g.now().Add(g.opts.TTL)}
	return nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := keyPrefix + key
	if e, ok := g.entries[k]; ok && e.state == StatePending {
		delete(g.entries, k)
	}
	return nil
}

// Len returns the number of unexpired tokens.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sweep(g.now())
	return len(g.entries)
}

// sweep drops expired entries. Caller holds mu.
func (g *MemoryGuard) sweep(now time.Time) {
	for k, e := range g.entries {
		if !now.Before(e.expires) {
			delete(g.entries, k)
		}
	}
}
