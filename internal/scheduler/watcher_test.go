package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
	"github.com/hamed0406/dnsoptimizer/internal/optimizer"
)

// --- fakes ---

type fakeCommands struct {
	mu      sync.Mutex
	tests   int
	applies int
}

func (f *fakeCommands) Test(context.Context) <-chan optimizer.TestOutcome {
	f.mu.Lock()
	f.tests++
	f.mu.Unlock()
	ch := make(chan optimizer.TestOutcome, 1)
	ch <- optimizer.TestOutcome{
		Best:  domain.ProbeResult{Label: "A", Address: "1.1.1.1", Latency: domain.Latency(time.Millisecond)},
		Found: true,
	}
	return ch
}

func (f *fakeCommands) TestAndApply(context.Context) <-chan optimizer.ApplyOutcome {
	f.mu.Lock()
	f.applies++
	f.mu.Unlock()
	ch := make(chan optimizer.ApplyOutcome, 1)
	ch <- optimizer.ApplyOutcome{Status: optimizer.StatusNothingToApply}
	return ch
}

func (f *fakeCommands) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tests, f.applies
}

// --- tests ---

func TestWatcher_ZeroIntervalRunsOnce(t *testing.T) {
	f := &fakeCommands{}
	NewWatcher(zap.NewNop(), f, 0, false).Run(context.Background())
	if tests, applies := f.counts(); tests != 1 || applies != 0 {
		t.Fatalf("want 1 test and 0 applies, got %d and %d", tests, applies)
	}
}

func TestWatcher_TicksUntilCancelled(t *testing.T) {
	f := &fakeCommands{}
	w := NewWatcher(zap.NewNop(), f, 2*time.Millisecond, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, applies := f.counts(); applies >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher did not tick")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if tests, _ := f.counts(); tests != 0 {
		t.Fatalf("apply mode must not submit plain tests, got %d", tests)
	}
}
