package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeWindowSweep = "ratelimit:window:sweep"

	sweepTimeout = 5 * time.Minute
)

type WindowSweepPayload struct{}

// NewWindowSweepTask builds the periodic retention sweep. Only one sweep may be
// queued at a time; a failed sweep is retried a few times and otherwise left
// for the next schedule tick.
func NewWindowSweepTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(WindowSweepPayload{})
	if err != nil {
		return nil, err
	}

	allOpts := append([]asynq.Option{
		asynq.Unique(30 * time.Minute),
		asynq.MaxRetry(3),
		asynq.Timeout(sweepTimeout),
	}, opts...)

	return asynq.NewTask(TypeWindowSweep, payloadBytes, allOpts...), nil
}
