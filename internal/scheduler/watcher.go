// Package scheduler repeats optimizer commands on an interval.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/optimizer"
)

// Commander is the subset of *optimizer.Optimizer the watcher drives.
type Commander interface {
	Test(ctx context.Context) <-chan optimizer.TestOutcome
	TestAndApply(ctx context.Context) <-chan optimizer.ApplyOutcome
}

// Watcher submits one round per tick. With Apply set every round goes
// through test-and-apply, otherwise rounds are only measured.
type Watcher struct {
	Logger   *zap.Logger
	Commands Commander
	Interval time.Duration
	Apply    bool
}

func NewWatcher(logger *zap.Logger, c Commander, interval time.Duration, apply bool) *Watcher {
	if interval < 0 {
		interval = 0
	}
	return &Watcher{Logger: logger, Commands: c, Interval: interval, Apply: apply}
}

// Run does an immediate pass, then one per tick, and returns when ctx is
// cancelled. A zero Interval runs a single pass.
func (w *Watcher) Run(ctx context.Context) {
	w.runOnce(ctx)
	if w.Interval == 0 {
		return
	}

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("watcher_stopped")
			return
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce waits for the round so ticks never pile up in the queue.
func (w *Watcher) runOnce(ctx context.Context) {
	if w.Apply {
		select {
		case out := <-w.Commands.TestAndApply(ctx):
			fields := []zap.Field{zap.String("status", string(out.Status))}
			if out.Applied != nil {
				fields = append(fields, zap.String("address", out.Applied.Address))
			}
			if out.Err != nil {
				w.Logger.Warn("watcher_apply_failed", append(fields, zap.Error(out.Err))...)
				return
			}
			w.Logger.Info("watcher_round", fields...)
		case <-ctx.Done():
		}
		return
	}

	select {
	case out := <-w.Commands.Test(ctx):
		if out.Err != nil {
			w.Logger.Warn("watcher_test_failed", zap.Error(out.Err))
			return
		}
		if !out.Found {
			w.Logger.Info("watcher_round", zap.Bool("found", false))
			return
		}
		w.Logger.Info("watcher_round",
			zap.Bool("found", true),
			zap.String("best", out.Best.Label),
			zap.Stringer("latency", out.Best.Latency),
		)
	case <-ctx.Done():
	}
}
