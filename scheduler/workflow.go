package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Step is one entry of a workflow: an operation and the number of successes it
// needs before the workflow moves on.
type Step struct {
	Name  string
	Op    Operation
	Times int
}

// Workflow runs its steps one after the other, never concurrently, so the
// nonce of the signing account advances in order.
type Workflow struct {
	scheduler *Scheduler
	steps     []Step
	delay     time.Duration
	logger    *slog.Logger
}

func NewWorkflow(s *Scheduler, delay time.Duration, steps ...Step) *Workflow {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Workflow{scheduler: s, steps: steps, delay: delay, logger: s.logger}
}

func (w *Workflow) Steps() []Step { return w.steps }

// Run executes every step and returns the per step results in order.
func (w *Workflow) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(w.steps))
	for _, step := range w.steps {
		w.logger.Info("Starting operation: " + step.Name)
		results = append(results, w.scheduler.RunUntilSuccesses(ctx, step.Name, step.Op, step.Times, w.delay))
	}
	w.logger.Info("--- Workflow completed ---")
	return results
}
