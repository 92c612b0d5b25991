// Package idempotency suppresses duplicate purchase submissions keyed by a
// client supplied token.
//
// A token moves through three states: Begin marks it pending, Commit marks
// it committed after a successful purchase, and Release forgets a pending
// token after a failed one so the client can retry with the same key.
package idempotency

import (
	"context"
	"time"
)

type State int

const (
	// StateNew means the caller now owns the token (it is pending).
	StateNew State = iota
	// StatePending means another request holds the token.
	StatePending
	// StateCommitted means a purchase with this token already completed.
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

const (
	keyPrefix = "purchase_"

	DefaultTTL        = 24 * time.Hour
	DefaultPendingTTL = 5 * time.Minute
)

// Guard is implemented by MemoryGuard and RedisGuard.
type Guard interface {
	Begin(ctx context.Context, key string) (State, error)
	Commit(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// Options configures how long tokens are remembered. Zero values fall back to
// DefaultTTL and DefaultPendingTTL.
type Options struct {
	TTL        time.Duration
	PendingTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.PendingTTL <= 0 {
		o.PendingTTL = DefaultPendingTTL
	}
	return o
}
