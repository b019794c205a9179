package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
)

type fakeSink struct {
	mu        sync.Mutex
	batchErr  error
	rejectIDs map[uuid.UUID]bool
	stored    []model.AnalyticsEvent
	batches   int
}

func (s *fakeSink) InsertBatch(_ context.Context, events []model.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if s.batchErr != nil {
		return s.batchErr
	}
	s.stored = append(s.stored, events...)
	return nil
}

func (s *fakeSink) Insert(_ context.Context, e *model.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectIDs[e.ID] {
		return errors.New("constraint violation")
	}
	s.stored = append(s.stored, *e)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

func newTestWorker(t *testing.T, sink EventSink) (*AnalyticsWorker, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	w := NewAnalyticsWorker(rdb, sink, zerolog.Nop())
	w.batchTimeout = 50 * time.Millisecond
	w.requeueBackoff = 0
	return w, mr, rdb
}

func pushEvent(t *testing.T, rdb *redis.Client, name string) model.AnalyticsEvent {
	t.Helper()
	e := model.AnalyticsEvent{
		ID:         uuid.New(),
		Name:       name,
		UserID:     "user-1",
		Properties: map[string]any{"questionId": "q-1"},
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.AnalyticsEventsQueue, data).Err())
	return e
}

func TestAnalyticsWorker_PersistsQueuedEvents(t *testing.T) {
	sink := &fakeSink{}
	w, _, rdb := newTestWorker(t, sink)

	for i := 0; i < 3; i++ {
		pushEvent(t, rdb, model.EventExplanationRequested)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sink.count() == 3 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestAnalyticsWorker_DiscardsMalformedPayloads(t *testing.T) {
	sink := &fakeSink{}
	w, _, rdb := newTestWorker(t, sink)

	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.AnalyticsEventsQueue, "{not json").Err())
	pushEvent(t, rdb, model.EventExplanationRequested)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestAnalyticsWorker_FallsBackToRowInsertAndRequeuesFailures(t *testing.T) {
	sink := &fakeSink{batchErr: errors.New("copy failed"), rejectIDs: map[uuid.UUID]bool{}}
	w, _, rdb := newTestWorker(t, sink)

	good := model.AnalyticsEvent{ID: uuid.New(), Name: model.EventExplanationRequested}
	bad := model.AnalyticsEvent{ID: uuid.New(), Name: model.EventExplanationRequested}
	sink.rejectIDs[bad.ID] = true

	w.flushSafe(context.Background(), []model.AnalyticsEvent{good, bad})

	assert.Equal(t, 1, sink.count())
	queued, err := rdb.LRange(context.Background(), config.WorkerKey.AnalyticsEventsQueue, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, queued, 1)

	var requeued model.AnalyticsEvent
	require.NoError(t, json.Unmarshal([]byte(queued[0]), &requeued))
	assert.Equal(t, bad.ID, requeued.ID)
}

func TestAnalyticsWorker_ShutdownDrainsBufferAndQueue(t *testing.T) {
	sink := &fakeSink{}
	w, mr, rdb := newTestWorker(t, sink)

	for i := 0; i < 4; i++ {
		pushEvent(t, rdb, model.EventExplanationRequested)
	}
	buffered := []model.AnalyticsEvent{{ID: uuid.New(), Name: model.EventExplanationRequested}}

	w.shutdown(buffered)

	assert.Equal(t, 5, sink.count())
	assert.False(t, mr.Exists(config.WorkerKey.AnalyticsEventsQueue))
}
