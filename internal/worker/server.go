package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultDeloadCron runs the sweep daily at 04:00 UTC.
const DefaultDeloadCron = "0 4 * * *"

// NewServer creates the asynq server that processes deload tasks.
func NewServer(opt asynq.RedisConnOpt, concurrency int, log *slog.Logger) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: max(1, concurrency),
		Queues: map[string]int{
			QueueDeload: 5,
			"default":   1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			log.Error("task failed", "type", t.Type(), "error", err)
		}),
	})
}

// NewScheduler creates a scheduler that enqueues the sweep on cronSpec.
func NewScheduler(opt asynq.RedisConnOpt, cronSpec string, log *slog.Logger) (*asynq.Scheduler, error) {
	if cronSpec == "" {
		cronSpec = DefaultDeloadCron
	}
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	id, err := s.Register(cronSpec, NewSweepTask(), asynq.Queue(QueueDeload), asynq.MaxRetry(1))
	if err != nil {
		return nil, fmt.Errorf("registering deload sweep %q: %w", cronSpec, err)
	}
	log.Info("deload sweep scheduled", "cron", cronSpec, "entry", id)
	return s, nil
}
