package notify

import (
	"context"
	"errors"
)

var ErrDropped = errors.New("notify: channel full, event dropped")

// Channel delivers events to a buffered channel. A slow reader loses
// events rather than stalling the orchestrator.
type Channel struct {
	ch chan Event
}

func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan Event, size)}
}

func (c *Channel) Events() <-chan Event { return c.ch }

func (c *Channel) Notify(ctx context.Context, e Event) error {
	select {
	case c.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrDropped
	}
}
