package repository

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyHook fails the first command whose name starts with failPrefix and
// records the name of every command sent.
type flakyHook struct {
	mu         sync.Mutex
	failPrefix string
	failed     bool
	seen       []string
}

func (h *flakyHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *flakyHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		name := cmd.Name()
		h.seen = append(h.seen, name)
		fail := !h.failed && strings.HasPrefix(name, h.failPrefix)
		if fail {
			h.failed = true
		}
		h.mu.Unlock()

		if fail {
			err := errors.New("i/o timeout")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (h *flakyHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *flakyHook) commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func newCounterRepo(t *testing.T) (*CounterRepository, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCounterRepository(rdb), mr, rdb
}

func TestCounterIncrement_WindowStartsOnFirstHit(t *testing.T) {
	repo, mr, _ := newCounterRepo(t)
	ctx := context.Background()

	n, err := repo.Increment(ctx, "ratelimit:a", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:a"))

	mr.FastForward(20 * time.Second)
	n, err = repo.Increment(ctx, "ratelimit:a", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 40*time.Second, mr.TTL("ratelimit:a"))
}

func TestCounterIncrement_ArmsExpiryOnKeyWithoutTTL(t *testing.T) {
	repo, mr, _ := newCounterRepo(t)
	ctx := context.Background()

	// A counter left behind without expiry, e.g. by an interrupted writer.
	require.NoError(t, mr.Set("ratelimit:ip", "5"))

	n, err := repo.Increment(ctx, "ratelimit:ip", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:ip"))

	mr.FastForward(time.Minute + time.Second)
	n, err = repo.Increment(ctx, "ratelimit:ip", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCounterIncrement_FailedCallLeavesNoImmortalKey(t *testing.T) {
	repo, mr, rdb := newCounterRepo(t)
	hook := &flakyHook{failPrefix: "eval"}
	rdb.AddHook(hook)
	ctx := context.Background()

	_, err := repo.Increment(ctx, "ratelimit:ip", time.Minute)
	require.Error(t, err)

	for i := 0; i < 3; i++ {
		_, err := repo.Increment(ctx, "ratelimit:ip", time.Minute)
		require.NoError(t, err)
	}
	assert.Greater(t, mr.TTL("ratelimit:ip"), time.Duration(0))

	mr.FastForward(48 * time.Hour)
	assert.False(t, mr.Exists("ratelimit:ip"))

	n, err := repo.Increment(ctx, "ratelimit:ip", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	for _, name := range hook.commands() {
		assert.NotEqual(t, "incr", name)
		assert.NotEqual(t, "expire", name)
	}
}
