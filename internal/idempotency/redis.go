package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	valuePending   = "pending"
	valueCommitted = "committed"
)

// releaseScript deletes the key only while it is still pending, so a
// committed token is never dropped by a late Release.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard stores tokens in Redis so every instance shares them.
type RedisGuard struct {
	client *redis.Client
	opts   Options
}

// NewRedisGuard connects to redisURL (redis://host:port/db) and pings it.
func NewRedisGuard(redisURL string, opts Options) (*RedisGuard, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisGuard{client: client, opts: opts.withDefaults()}, nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

func (g *RedisGuard) Begin(ctx context.Context, key string) (State, error) {
	k := keyPrefix + key

	// A second round covers the key expiring between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := g.client.SetNX(ctx, k, valuePending, g.opts.PendingTTL).Result()
		if err != nil {
			return 0, fmt.Errorf("idempotency begin: %w", err)
		}
		if ok {
			return StateNew, nil
		}

		val, err := g.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("idempotency begin: %w", err)
		}
		if val == valueCommitted {
			return StateCommitted, nil
		}
		return StatePending, nil
	}
	return 0, fmt.Errorf("idempotency begin: key %q kept expiring", key)
}

func (g *RedisGuard) Commit(ctx context.Context, key string) error {
	if err := g.client.Set(ctx, keyPrefix+key, valueCommitted, g.opts.TTL).Err(); err != nil {
		return fmt.Errorf("idempotency commit: %w", err)
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, g.client, []string{keyPrefix + key}, valuePending).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}
