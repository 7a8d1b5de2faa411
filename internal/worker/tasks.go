// Package worker runs background deload recomputation on asynq. A cron
// scheduled sweep fans out one recompute task per active user; each recompute
// refreshes the user's cached deload recommendation.
package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeDeloadSweep     = "deload:sweep"
	TypeDeloadRecompute = "deload:recompute"

	// QueueDeload is the queue both task types run on.
	QueueDeload = "deload"
)

// RecomputePayload names the user whose recommendation to refresh.
type RecomputePayload struct {
	UserID int `json:"user_id"`
}

// NewSweepTask creates the task that enqueues a recompute per active user.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeDeloadSweep, nil)
}

// NewRecomputeTask creates a recompute task for one user.
func NewRecomputeTask(userID int) (*asynq.Task, error) {
	payload, err := json.Marshal(RecomputePayload{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("encoding recompute payload: %w", err)
	}
	return asynq.NewTask(TypeDeloadRecompute, payload), nil
}
