package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// EventSink persists analytics events.
type EventSink interface {
	InsertBatch(ctx context.Context, events []model.AnalyticsEvent) error
	Insert(ctx context.Context, e *model.AnalyticsEvent) error
}

// AnalyticsWorker drains the analytics queue into Postgres in batches.
type AnalyticsWorker struct {
	rdb  *redis.Client
	sink EventSink
	log  zerolog.Logger

	batchSize      int
	batchTimeout   time.Duration
	pollTimeout    time.Duration
	requeueBackoff time.Duration
}

// NewAnalyticsWorker creates a new AnalyticsWorker.
func NewAnalyticsWorker(rdb *redis.Client, sink EventSink, log zerolog.Logger) *AnalyticsWorker {
	return &AnalyticsWorker{
		rdb:            rdb,
		sink:           sink,
		log:            log.With().Str("component", "analytics_worker").Logger(),
		batchSize:      BatchSize,
		batchTimeout:   BatchTimeout,
		pollTimeout:    PollTimeout,
		requeueBackoff: 2 * time.Second,
	}
}

// Start runs the worker loop until ctx is cancelled. Call in a goroutine.
func (w *AnalyticsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Analytics worker started")

	buffer := make([]model.AnalyticsEvent, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, w.pollTimeout, config.WorkerKey.AnalyticsEventsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleepCtx(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var event model.AnalyticsEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed payloads can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			metrics.AnalyticsEvents.WithLabelValues("discarded").Inc()
			continue
		}
		buffer = append(buffer, event)
	}
}

// flushSafe tries one bulk insert, then row-by-row, then requeues what is left.
func (w *AnalyticsWorker) flushSafe(ctx context.Context, batch []model.AnalyticsEvent) {
	err := w.sink.InsertBatch(ctx, batch)
	if err == nil {
		metrics.AnalyticsEvents.WithLabelValues("persisted").Add(float64(len(batch)))
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var requeue []model.AnalyticsEvent
	for i := range batch {
		if err := w.sink.Insert(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).Str("event_id", batch[i].ID.String()).Msg("Insert failed, requeueing")
			requeue = append(requeue, batch[i])
			continue
		}
		metrics.AnalyticsEvents.WithLabelValues("persisted").Inc()
	}
	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *AnalyticsWorker) requeue(ctx context.Context, events []model.AnalyticsEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range events {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.AnalyticsEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.AnalyticsEvents.WithLabelValues("dropped").Add(float64(len(events)))
		w.log.Error().Err(err).Int("count", len(events)).Msg("Failed to requeue analytics events, events lost")
		return
	}
	metrics.AnalyticsEvents.WithLabelValues("requeued").Add(float64(len(events)))
	w.log.Info().Int("count", len(events)).Msg("Requeued failed events")
	// Avoid thrashing while the database is down.
	sleepCtx(ctx, w.requeueBackoff)
}

// shutdown flushes the in-memory buffer and whatever is still queued.
func (w *AnalyticsWorker) shutdown(buffer []model.AnalyticsEvent) {
	w.log.Info().Msg("Analytics worker stopping, flushing remaining events")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(ctx, buffer)
	}
	w.drain(ctx)
	w.log.Info().Msg("Analytics worker stopped")
}

// drain persists the events left in the queue, one bulk insert per batch.
func (w *AnalyticsWorker) drain(ctx context.Context) {
	drained := 0
	for ctx.Err() == nil {
		raw, err := w.rdb.LPopCount(ctx, config.WorkerKey.AnalyticsEventsQueue, w.batchSize).Result()
		if err != nil || len(raw) == 0 {
			break
		}

		batch := make([]model.AnalyticsEvent, 0, len(raw))
		for _, item := range raw {
			var e model.AnalyticsEvent
			if err := json.Unmarshal([]byte(item), &e); err != nil {
				w.log.Error().Err(err).Msg("Drain unmarshal error")
				continue
			}
			batch = append(batch, e)
		}

		if err := w.sink.InsertBatch(ctx, batch); err != nil {
			w.log.Error().Err(err).Msg("Drain insert error, leaving events queued")
			w.requeue(ctx, batch)
			break
		}
		metrics.AnalyticsEvents.WithLabelValues("persisted").Add(float64(len(batch)))
		drained += len(batch)
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining events")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
