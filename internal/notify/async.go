package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultAsyncTimeout = 5 * time.Second

// Async delivers events to Inner from its own goroutine. Notify only
// enqueues; when the buffer is full the event is dropped with ErrDropped.
// Each delivery is bounded by Timeout.
type Async struct {
	Inner   Notifier
	Timeout time.Duration
	Logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Event
	done   chan struct{}
}

func NewAsync(logger *zap.Logger, inner Notifier, size int, timeout time.Duration) *Async {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size < 1 {
		size = 1
	}
	if timeout <= 0 {
		timeout = defaultAsyncTimeout
	}
	a := &Async{
		Inner:   inner,
		Timeout: timeout,
		Logger:  logger,
		ch:      make(chan Event, size),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Notify(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.ch <- e:
		return nil
	default:
		return ErrDropped
	}
}

// Close delivers what is already buffered, then stops the goroutine.
func (a *Async) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		if err := a.Inner.Notify(ctx, e); err != nil {
			a.Logger.Warn("notify_async_error", zap.String("kind", string(e.Kind)), zap.Error(err))
		}
		cancel()
	}
}
