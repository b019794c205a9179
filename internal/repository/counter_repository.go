package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript bumps a counter and arms its expiry in one atomic step.
// The expiry is set when the key is created, or when it has none (a key left
// behind without TTL must not outlive its window).
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// CounterRepository stores fixed-window counters in Redis.
type CounterRepository struct {
	rdb *redis.Client
}

// NewCounterRepository creates a new CounterRepository.
func NewCounterRepository(rdb *redis.Client) *CounterRepository {
	return &CounterRepository{rdb: rdb}
}

// Increment atomically bumps key and returns the new count. Only the
// increment that creates the key starts the window, so it never slides.
func (r *CounterRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return incrementScript.Run(ctx, r.rdb, []string{key}, window.Milliseconds()).Int64()
}

// TTL returns the time left on key. A key without expiry yields a negative
// duration, as Redis reports it.
func (r *CounterRepository) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.rdb.TTL(ctx, key).Result()
}
