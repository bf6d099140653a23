// Package optimizer sequences probing, selection and applying behind two
// asynchronous commands. One worker goroutine executes every command in
// submission order, so applies never race each other on the host
// configuration.
package optimizer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
	"github.com/hamed0406/dnsoptimizer/internal/notify"
	"github.com/hamed0406/dnsoptimizer/internal/probe"
	"github.com/hamed0406/dnsoptimizer/internal/resolver"
)

var (
	ErrClosed = errors.New("optimizer: closed")
	// ErrBusy is returned when the queue is full; the caller may retry.
	ErrBusy = errors.New("optimizer: queue full")
)

const defaultQueueSize = 16

// Prober runs one round over the catalog.
type Prober interface {
	ProbeAll(ctx context.Context, servers []domain.CandidateServer) domain.ProbeRound
}

type Status string

const (
	StatusApplied        Status = "applied"
	StatusNothingToApply Status = "nothing_to_apply"
	StatusFailed         Status = "failed"
)

type TestOutcome struct {
	Round domain.ProbeRound
	Best  domain.ProbeResult
	Found bool
	// Err is set only when the command never ran (ErrClosed, cancelled).
	Err error
}

type ApplyOutcome struct {
	Status       Status
	Round        domain.ProbeRound
	Previous     domain.Snapshot
	Applied      *domain.ProbeResult
	Confirmation domain.Snapshot
	// Err is a *resolver.ApplyError when applying failed, or the reason
	// the command did not run.
	Err error
}

type job struct {
	ctx    context.Context
	run    func(ctx context.Context)
	reject func(err error)
}

type Optimizer struct {
	Logger   *zap.Logger
	servers  []domain.CandidateServer
	prober   Prober
	reader   resolver.Reader
	applier  resolver.Applier
	notifier notify.Notifier

	mu      sync.RWMutex
	closed  bool
	started bool
	queue   chan job
	done    chan struct{}
}

func New(
	logger *zap.Logger,
	servers []domain.CandidateServer,
	prober Prober,
	reader resolver.Reader,
	applier resolver.Applier,
	notifier notify.Notifier,
) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Optimizer{
		Logger:   logger,
		servers:  append([]domain.CandidateServer(nil), servers...),
		prober:   prober,
		reader:   reader,
		applier:  applier,
		notifier: notifier,
		queue:    make(chan job, defaultQueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once is harmless.
func (o *Optimizer) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.closed {
		return
	}
	o.started = true
	go o.loop()
}

// Close rejects new commands, lets queued ones finish, then returns.
func (o *Optimizer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return
	}
	o.closed = true
	close(o.queue)
	started := o.started
	o.mu.Unlock()

	if !started {
		for j := range o.queue {
			j.reject(ErrClosed)
		}
		close(o.done)
	} else {
		<-o.done
	}
	if c, ok := o.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			o.Logger.Warn("notifier_close_error", zap.Error(err))
		}
	}
	o.Logger.Info("optimizer_stopped")
}

func (o *Optimizer) loop() {
	defer close(o.done)
	for j := range o.queue {
		if err := j.ctx.Err(); err != nil {
			j.reject(err)
			continue
		}
		// A started round runs to completion; cancelling it halfway would
		// report every server as unreachable.
		j.run(context.WithoutCancel(j.ctx))
	}
}

// submit never blocks: a full queue rejects the command with ErrBusy.
func (o *Optimizer) submit(j job) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		j.reject(ErrClosed)
		return
	}
	select {
	case o.queue <- j:
	default:
		j.reject(ErrBusy)
	}
}

// Servers returns a copy of the catalog in probe order.
func (o *Optimizer) Servers() []domain.CandidateServer {
	return append([]domain.CandidateServer(nil), o.servers...)
}

// Current reads the live configuration directly; it is not queued.
func (o *Optimizer) Current(ctx context.Context) domain.Snapshot {
	return o.reader.Read(ctx)
}

// Test probes every server and selects the fastest. The host
// configuration is not touched. Cancelling ctx drops the command while it
// is queued; once started it runs to completion.
func (o *Optimizer) Test(ctx context.Context) <-chan TestOutcome {
	out := make(chan TestOutcome, 1)
	o.submit(job{
		ctx:    ctx,
		run:    func(ctx context.Context) { out <- o.test(ctx) },
		reject: func(err error) { out <- TestOutcome{Err: err} },
	})
	return out
}

// TestAndApply runs Test and, if something answered, makes it the
// active resolver and reads the configuration back.
func (o *Optimizer) TestAndApply(ctx context.Context) <-chan ApplyOutcome {
	out := make(chan ApplyOutcome, 1)
	o.submit(job{
		ctx:    ctx,
		run:    func(ctx context.Context) { out <- o.testAndApply(ctx) },
		reject: func(err error) { out <- ApplyOutcome{Status: StatusFailed, Err: err} },
	})
	return out
}

func (o *Optimizer) test(ctx context.Context) TestOutcome {
	start := time.Now()
	round := o.prober.ProbeAll(ctx, o.servers)
	best, found := probe.SelectBest(round)

	fields := []zap.Field{
		zap.Int("servers", len(round)),
		zap.Int("reachable", countReachable(round)),
		zap.Duration("took", time.Since(start)),
	}
	if found {
		fields = append(fields,
			zap.String("best_label", best.Label),
			zap.String("best_address", best.Address),
			zap.Duration("best_latency", best.Latency.Duration()),
		)
	}
	o.Logger.Info("test_done", fields...)

	ev := notify.Event{Kind: notify.KindTestDone, At: time.Now().UTC(), Round: round}
	if found {
		b := best
		ev.Best = &b
	}
	o.emit(ctx, ev)
	return TestOutcome{Round: round, Best: best, Found: found}
}

func (o *Optimizer) testAndApply(ctx context.Context) ApplyOutcome {
	previous := o.reader.Read(ctx)
	t := o.test(ctx)
	res := ApplyOutcome{Round: t.Round, Previous: previous}

	if !t.Found {
		res.Status = StatusNothingToApply
		o.Logger.Warn("nothing_to_apply", zap.Int("servers", len(t.Round)))
		o.emit(ctx, notify.Event{Kind: notify.KindNothingToApply, At: time.Now().UTC(), Round: t.Round, Previous: previous})
		return res
	}

	best := t.Best
	res.Applied = &best

	if err := o.applier.Apply(ctx, best.Address); err != nil {
		res.Status = StatusFailed
		res.Err = err
		kind := notify.KindApplyFailed
		if resolver.IsPermissionDenied(err) {
			kind = notify.KindPermissionDenied
		}
		o.Logger.Error("apply_failed",
			zap.String("address", best.Address),
			zap.String("kind", resolver.KindOf(err).String()),
			zap.Error(err),
		)
		o.emit(ctx, notify.Event{
			Kind: kind, At: time.Now().UTC(), Round: t.Round,
			Best: &best, Previous: previous, Error: err.Error(),
		})
		return res
	}

	res.Status = StatusApplied
	res.Confirmation = o.reader.Read(ctx)
	o.Logger.Info("applied",
		zap.String("previous", previous.Address),
		zap.String("label", best.Label),
		zap.String("address", best.Address),
		zap.String("confirmation", res.Confirmation.Address),
	)
	o.emit(ctx, notify.Event{
		Kind: notify.KindApplied, At: time.Now().UTC(), Round: t.Round,
		Best: &best, Previous: previous, Confirmation: res.Confirmation,
	})
	return res
}

func (o *Optimizer) emit(ctx context.Context, e notify.Event) {
	if err := o.notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
		o.Logger.Warn("notify_error", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}

func countReachable(round domain.ProbeRound) int {
	n := 0
	for _, r := range round {
		if r.Reachable() {
			n++
		}
	}
	return n
}
