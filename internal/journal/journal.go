// Package journal queues attempt events in Redis and persists them to
// PostgreSQL from a background worker.
package journal

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// RedisJournal pushes attempt events onto the persistence queue. Recording
// never fails the caller; queue errors are logged.
type RedisJournal struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisJournal creates a new RedisJournal.
func NewRedisJournal(rdb *redis.Client, log zerolog.Logger) *RedisJournal {
	return &RedisJournal{
		rdb: rdb,
		log: log.With().Str("component", "journal").Logger(),
	}
}

// Record enqueues ev.
func (j *RedisJournal) Record(ctx context.Context, ev model.AttemptEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		j.log.Error().Err(err).Msg("Marshal event error")
		return
	}
	if err := j.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.PersistAttemptEventsQueue, data).Err(); err != nil {
		j.log.Error().Err(err).
			Str("attempt_id", ev.AttemptID.String()).
			Str("kind", string(ev.Kind)).
			Msg("Enqueue event error")
	}
}
