package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// EventWriter persists one attempt event.
type EventWriter interface {
	Insert(ctx context.Context, ev *model.AttemptEvent) error
}

// Worker consumes the attempt event queue and writes each event to the store.
type Worker struct {
	store      EventWriter
	rdb        *redis.Client
	log        zerolog.Logger
	queue      string
	pollWait   time.Duration
	retryDelay time.Duration
}

// NewWorker creates a new Worker.
func NewWorker(store EventWriter, rdb *redis.Client, log zerolog.Logger) *Worker {
	return &Worker{
		store:      store,
		rdb:        rdb,
		log:        log.With().Str("component", "journal_worker").Logger(),
		queue:      config.WorkerKey.PersistAttemptEventsQueue,
		pollWait:   time.Second,
		retryDelay: 5 * time.Second,
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *Worker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or pollWait elapses.
	result, err := w.rdb.BLPop(ctx, w.pollWait, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	ev, ok := w.decode(result[1])
	if !ok {
		return
	}

	if err := w.store.Insert(ctx, ev); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", ev.AttemptID.String()).
			Str("kind", string(ev.Kind)).
			Msg("Persist error, retrying later")
		// Push back to queue for retry.
		w.rdb.RPush(context.WithoutCancel(ctx), w.queue, result[1])
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// drain persists every queued event before shutdown.
func (w *Worker) drain(ctx context.Context) int {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, w.queue).Result()
		if err != nil {
			break
		}

		ev, ok := w.decode(raw)
		if !ok {
			continue
		}

		if err := w.store.Insert(ctx, ev); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, w.queue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
	return drained
}

// decode drops unparsable payloads; retrying them would never succeed.
func (w *Worker) decode(raw string) (*model.AttemptEvent, bool) {
	var ev model.AttemptEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return nil, false
	}
	return &ev, true
}
