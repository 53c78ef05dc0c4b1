package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Redis rejects BLPOP timeouts under a second
)

// ActivityStore persists activity batches.
type ActivityStore interface {
	BulkInsert(ctx context.Context, batch []model.Activity) error
	Insert(ctx context.Context, a model.Activity) error
}

// ActivityWorker moves the audit trail queued by ApplicationService into
// application_activities.
type ActivityWorker struct {
	store   ActivityStore
	rdb     *redis.Client
	log     zerolog.Logger
	backoff time.Duration
}

func NewActivityWorker(store ActivityStore, rdb *redis.Client, log zerolog.Logger) *ActivityWorker {
	return &ActivityWorker{
		store:   store,
		rdb:     rdb,
		log:     log.With().Str("component", "activity_worker").Logger(),
		backoff: 2 * time.Second,
	}
}

// pending is the set of activities read from the queue but not yet stored.
type pending struct {
	items []model.Activity
	since time.Time
}

func (p *pending) add(a model.Activity) {
	if len(p.items) == 0 {
		p.since = time.Now()
	}
	p.items = append(p.items, a)
}

func (p *pending) due() bool {
	return len(p.items) >= BatchSize || (len(p.items) > 0 && time.Since(p.since) >= BatchTimeout)
}

func (p *pending) take() []model.Activity {
	out := p.items
	p.items = make([]model.Activity, 0, BatchSize)
	return out
}

// Start blocks until ctx is cancelled, then stores whatever is still pending.
func (w *ActivityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Activity worker started")

	p := &pending{items: make([]model.Activity, 0, BatchSize)}
	for {
		if p.due() {
			w.persist(ctx, p.take())
		}
		if ctx.Err() != nil {
			w.drain(p.take())
			return
		}
		if a, ok := w.next(ctx); ok {
			p.add(a)
		}
	}
}

// next pops one activity, waiting at most PollTimeout.
func (w *ActivityWorker) next(ctx context.Context) (model.Activity, bool) {
	var a model.Activity
	result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistActivitiesQueue).Result()
	switch {
	case errors.Is(err, redis.Nil), ctx.Err() != nil:
		return a, false
	case err != nil:
		w.log.Error().Err(err).Dur("retry_in", w.backoff).Msg("Activity queue unreachable")
		time.Sleep(w.backoff)
		return a, false
	case len(result) < 2:
		return a, false
	}

	if err := json.Unmarshal([]byte(result[1]), &a); err != nil {
		w.log.Error().Err(err).Str("data", result[1]).Msg("Skipping unreadable activity")
		return a, false
	}
	return a, true
}

// persist stores a batch in one COPY, falling back to single inserts.
func (w *ActivityWorker) persist(ctx context.Context, batch []model.Activity) {
	if err := w.store.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Activity batch rejected, storing one by one")
		w.persistEach(ctx, batch)
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Activities persisted")
}

func (w *ActivityWorker) persistEach(ctx context.Context, batch []model.Activity) {
	var retry []model.Activity
	for _, a := range batch {
		err := w.store.Insert(ctx, a)
		if err == nil {
			continue
		}
		// A row Postgres refused, e.g. for a withdrawn application, stays refused.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			w.log.Error().Err(err).
				Str("application_id", a.ApplicationID).
				Str("kind", string(a.Kind)).
				Msg("Dropping activity refused by the database")
			continue
		}
		retry = append(retry, a)
	}
	if len(retry) > 0 {
		w.retryLater(ctx, retry)
	}
}

// retryLater puts activities back at the tail of the queue and pauses.
func (w *ActivityWorker) retryLater(ctx context.Context, items []model.Activity) {
	pipe := w.rdb.Pipeline()
	for _, a := range items {
		data, _ := json.Marshal(a)
		pipe.RPush(ctx, config.WorkerKey.PersistActivitiesQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("Activities lost: neither stored nor queued again")
		return
	}
	w.log.Warn().Int("count", len(items)).Dur("retry_in", w.backoff).Msg("Activities queued again after a store failure")
	time.Sleep(w.backoff)
}

func (w *ActivityWorker) drain(items []model.Activity) {
	w.log.Info().Int("pending", len(items)).Msg("Activity worker stopping")
	if len(items) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.persist(ctx, items)
}
