package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

// fakePinger answers from a table; addresses missing from it block
// until the attempt deadline.
type fakePinger struct {
	rtt   map[string]time.Duration
	calls atomic.Int64
}

func (f *fakePinger) Ping(ctx context.Context, address string) (time.Duration, error) {
	f.calls.Add(1)
	if d, ok := f.rtt[address]; ok {
		return d, nil
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

func servers(addrs ...string) []domain.CandidateServer {
	out := make([]domain.CandidateServer, 0, len(addrs))
	for i, a := range addrs {
		out = append(out, domain.CandidateServer{Label: fmt.Sprintf("S%d", i), Address: a})
	}
	return out
}

func TestProbeAll_OneResultPerEntry(t *testing.T) {
	f := &fakePinger{rtt: map[string]time.Duration{"10.0.0.2": 20 * time.Millisecond}}
	e := NewEngine(zap.NewNop(), f, 20*time.Millisecond, 2)

	in := servers("10.0.0.1", "10.0.0.2", "10.0.0.3")
	round := e.ProbeAll(context.Background(), in)

	want := domain.ProbeRound{
		{Label: "S0", Address: "10.0.0.1", Latency: domain.Unreachable},
		{Label: "S1", Address: "10.0.0.2", Latency: domain.Latency(20 * time.Millisecond)},
		{Label: "S2", Address: "10.0.0.3", Latency: domain.Unreachable},
	}
	if diff := cmp.Diff(want, round); diff != "" {
		t.Fatal(diff)
	}
	if n := f.calls.Load(); n != 6 {
		t.Fatalf("want 6 attempts (3 servers x 2), got %d", n)
	}
}

func TestProbeAll_AveragesSuccessfulAttempts(t *testing.T) {
	var n atomic.Int64
	p := PingerFunc(func(ctx context.Context, address string) (time.Duration, error) {
		switch n.Add(1) {
		case 1:
			return 10 * time.Millisecond, nil
		case 2:
			return 0, errors.New("lost")
		default:
			return 30 * time.Millisecond, nil
		}
	})
	e := NewEngine(zap.NewNop(), p, time.Second, 3)
	round := e.ProbeAll(context.Background(), servers("10.0.0.1"))
	if got := round[0].Latency; got != domain.Latency(20*time.Millisecond) {
		t.Fatalf("want mean of replies 20ms, got %v", got)
	}
}

func TestProbeAll_RunsConcurrently(t *testing.T) {
	f := &fakePinger{rtt: map[string]time.Duration{}}
	timeout := 50 * time.Millisecond
	e := NewEngine(zap.NewNop(), f, timeout, 1)

	addrs := make([]string, 40)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("10.0.1.%d", i)
	}
	start := time.Now()
	round := e.ProbeAll(context.Background(), servers(addrs...))
	elapsed := time.Since(start)

	if len(round) != len(addrs) {
		t.Fatalf("want %d results, got %d", len(addrs), len(round))
	}
	// sequential would take 40 * 50ms = 2s
	if elapsed > 10*timeout {
		t.Fatalf("round took %v; probes are not running in parallel", elapsed)
	}
}

func TestProbeAll_PanicIsContained(t *testing.T) {
	p := PingerFunc(func(ctx context.Context, address string) (time.Duration, error) {
		if address == "10.0.0.1" {
			panic("socket exploded")
		}
		return 5 * time.Millisecond, nil
	})
	e := NewEngine(zap.NewNop(), p, time.Second, 2)
	round := e.ProbeAll(context.Background(), servers("10.0.0.1", "10.0.0.2"))
	if round[0].Reachable() {
		t.Fatalf("panicking probe should be unreachable: %+v", round[0])
	}
	if !round[1].Reachable() {
		t.Fatalf("sibling probe should survive: %+v", round[1])
	}
}

func TestProbeAll_CancelledContext(t *testing.T) {
	f := &fakePinger{rtt: map[string]time.Duration{"10.0.0.1": time.Millisecond}}
	e := NewEngine(zap.NewNop(), f, time.Second, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	round := e.ProbeAll(ctx, servers("10.0.0.1", "10.0.0.2"))
	if len(round) != 2 {
		t.Fatalf("want 2 results, got %d", len(round))
	}
	for _, r := range round {
		if r.Reachable() {
			t.Fatalf("nothing should be probed after cancel: %+v", r)
		}
	}
}

func TestProbeAll_SelectionIgnoresCompletionOrder(t *testing.T) {
	lat := map[string]time.Duration{
		"10.0.0.1": 30 * time.Millisecond,
		"10.0.0.2": 10 * time.Millisecond,
		"10.0.0.3": 10 * time.Millisecond,
		"10.0.0.4": 40 * time.Millisecond,
	}
	p := PingerFunc(func(ctx context.Context, address string) (time.Duration, error) {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		return lat[address], nil
	})
	e := NewEngine(zap.NewNop(), p, time.Second, 1)
	for i := 0; i < 20; i++ {
		round := e.ProbeAll(context.Background(), servers("10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"))
		best, ok := SelectBest(round)
		if !ok || best.Label != "S1" {
			t.Fatalf("iteration %d: want S1, got %+v ok=%v", i, best, ok)
		}
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(nil, &fakePinger{}, 0, 0)
	if e.Timeout != DefaultTimeout || e.Count != DefaultCount || e.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", e)
	}
}
