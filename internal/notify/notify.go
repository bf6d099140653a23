// Package notify carries orchestrator events to whoever renders them.
package notify

import (
	"context"
	"io"
	"time"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

type Kind string

const (
	KindTestDone         Kind = "test_done"
	KindApplied          Kind = "applied"
	KindNothingToApply   Kind = "nothing_to_apply"
	KindPermissionDenied Kind = "permission_denied"
	KindApplyFailed      Kind = "apply_failed"
)

// Event is immutable once emitted; receivers must not modify Round.
type Event struct {
	Kind         Kind                `json:"kind"`
	At           time.Time           `json:"at"`
	Round        domain.ProbeRound   `json:"round,omitempty"`
	Best         *domain.ProbeResult `json:"best,omitempty"`
	Previous     domain.Snapshot     `json:"previous"`
	Confirmation domain.Snapshot     `json:"confirmation"`
	Error        string              `json:"error,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every member that holds resources.
func (m Multi) Close() error {
	var firstErr error
	for _, n := range m {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
