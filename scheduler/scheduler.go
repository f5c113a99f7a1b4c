// Package scheduler repeats operations until they have succeeded a given
// number of times.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sfi-network/sfi-bridge-bot/metrics"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

// DefaultDelay is the pause after every attempt.
const DefaultDelay = 5 * time.Second

// Operation is a single attempt of a state-mutating action.
type Operation func(ctx context.Context) types.OperationOutcome

// Result summarises a RunUntilSuccesses call.
type Result struct {
	Attempts  int
	Successes int
	Failures  int
	Elapsed   time.Duration
}

type Scheduler struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

type Opts struct {
	Clock  clockwork.Clock
	Logger *slog.Logger
}

func New(opts Opts) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: opts.Clock, logger: opts.Logger.With("component", "scheduler")}
}

// RunUntilSuccesses invokes op until it has reported success required times,
// sleeping delay after every attempt whatever its outcome. Failed attempts and
// panics are logged and retried. There is no attempt limit and no backoff, so
// an operation that never succeeds keeps the call from returning.
func (s *Scheduler) RunUntilSuccesses(ctx context.Context, name string, op Operation, required int, delay time.Duration) Result {
	start := s.clock.Now()
	res := Result{}
	log := s.logger.With("operation", name)

	for res.Successes < required {
		res.Attempts++
		attempt := fmt.Sprintf("%d/%d", res.Successes+1, required)
		log.Info(fmt.Sprintf("Attempt %s: Executing operation.", attempt))

		began := s.clock.Now()
		out, err := s.attempt(ctx, op)
		metrics.OperationDuration.WithLabelValues(name).Observe(s.clock.Since(began).Seconds())

		switch {
		case err != nil:
			res.Failures++
			metrics.OperationAttempts.WithLabelValues(name, "panic").Inc()
			log.Error(fmt.Sprintf("Attempt %s: Error occurred during operation", attempt), "error", err)
		case out.OK():
			res.Successes++
			metrics.OperationAttempts.WithLabelValues(name, "success").Inc()
			log.Info(fmt.Sprintf("Attempt %d/%d: Operation successful.", res.Successes, required), "tx_hash", out.TxHash)
		case out.NotReady:
			res.Failures++
			metrics.OperationAttempts.WithLabelValues(name, "not_ready").Inc()
			log.Warn(fmt.Sprintf("Attempt %s: Not ready yet, trying again...", attempt), "reason", out.Error)
		default:
			res.Failures++
			metrics.OperationAttempts.WithLabelValues(name, "failed").Inc()
			log.Warn(fmt.Sprintf("Attempt %s: Operation failed, trying again...", attempt), "error", out.Error)
		}

		s.clock.Sleep(delay)
	}

	res.Elapsed = s.clock.Since(start)
	return res
}

// attempt runs op and turns a panic into an error.
func (s *Scheduler) attempt(ctx context.Context, op Operation) (out types.OperationOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("recovered operation panic", "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return op(ctx), nil
}
