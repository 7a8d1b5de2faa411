package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/multierr"

	"github.com/meltforce/trainergpt/internal/cache"
	"github.com/meltforce/trainergpt/internal/metrics"
	"github.com/meltforce/trainergpt/internal/storage"
	"github.com/meltforce/trainergpt/internal/training"
)

// DefaultActiveWithinDays is how recently a user must have trained to be swept.
const DefaultActiveWithinDays = 28

// Store is the storage the handlers read.
type Store interface {
	ListActiveUserIDs(ctx context.Context, withinDays int) ([]int, error)
	DeloadInput(ctx context.Context, userID int) (training.DeloadInput, error)
}

var _ Store = (*storage.DB)(nil)

// Enqueuer submits tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Handlers processes deload tasks.
type Handlers struct {
	store       Store
	enqueuer    Enqueuer
	cache       *cache.Cache
	log         *slog.Logger
	withinDays  int
	now         func() time.Time
	recomputeTO time.Duration
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithActiveWithinDays sets the sweep's activity window. Values below 1 keep
// the default.
func WithActiveWithinDays(days int) HandlerOption {
	return func(h *Handlers) {
		if days > 0 {
			h.withinDays = days
		}
	}
}

// NewHandlers creates the deload task handlers.
func NewHandlers(store Store, enq Enqueuer, c *cache.Cache, log *slog.Logger, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		store:       store,
		enqueuer:    enq,
		cache:       c,
		log:         log,
		withinDays:  DefaultActiveWithinDays,
		now:         time.Now,
		recomputeTO: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the handlers on mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDeloadSweep, h.HandleSweep)
	mux.HandleFunc(TypeDeloadRecompute, h.HandleRecompute)
}

// HandleSweep enqueues one recompute per active user. Task ids carry the
// date so a repeated sweep on the same day does not duplicate work.
func (h *Handlers) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	ids, err := h.store.ListActiveUserIDs(ctx, h.withinDays)
	if err != nil {
		return fmt.Errorf("listing active users: %w", err)
	}

	day := h.now().UTC().Format("2006-01-02")
	var errs error
	enqueued := 0
	for _, id := range ids {
		task, err := NewRecomputeTask(id)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		_, err = h.enqueuer.EnqueueContext(ctx, task,
			asynq.Queue(QueueDeload),
			asynq.MaxRetry(3),
			asynq.Timeout(h.recomputeTO),
			asynq.TaskID(TypeDeloadRecompute+":"+strconv.Itoa(id)+":"+day),
		)
		switch {
		case err == nil:
			enqueued++
		case errors.Is(err, asynq.ErrTaskIDConflict):
		default:
			errs = multierr.Append(errs, fmt.Errorf("enqueueing user %d: %w", id, err))
		}
	}
	h.log.Info("deload sweep", "users", len(ids), "enqueued", enqueued)
	return errs
}

// HandleRecompute evaluates one user's deload recommendation and caches it.
// Malformed payloads are dropped; storage errors are retried.
func (h *Handlers) HandleRecompute(ctx context.Context, t *asynq.Task) error {
	var p RecomputePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error("bad recompute payload", "error", err)
		return fmt.Errorf("decoding payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.UserID <= 0 {
		h.log.Error("bad recompute payload", "user_id", p.UserID)
		return fmt.Errorf("invalid user id %d: %w", p.UserID, asynq.SkipRetry)
	}

	start := time.Now()
	in, err := h.store.DeloadInput(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("loading deload input for user %d: %w", p.UserID, err)
	}
	rec := training.EvaluateDeload(in)
	metrics.DeloadEvaluations.WithLabelValues(strconv.FormatBool(rec.ShouldDeload)).Inc()
	h.cache.Put(ctx, p.UserID, cache.KindDeload, rec)

	h.log.Info("deload recomputed", "user_id", p.UserID, "should_deload", rec.ShouldDeload, "duration", time.Since(start))
	return nil
}
