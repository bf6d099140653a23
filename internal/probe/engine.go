package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

const (
	DefaultTimeout = 500 * time.Millisecond
	DefaultCount   = 2
)

// Engine probes every catalog entry at once. Failures never escape: a
// server that does not answer is recorded as domain.Unreachable.
type Engine struct {
	Logger  *zap.Logger
	Pinger  Pinger
	Timeout time.Duration // per attempt
	Count   int           // attempts per server
}

func NewEngine(logger *zap.Logger, pinger Pinger, timeout time.Duration, count int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if count < 1 {
		count = DefaultCount
	}
	return &Engine{Logger: logger, Pinger: pinger, Timeout: timeout, Count: count}
}

// ProbeAll returns exactly one result per server, in the order given.
// It returns once every server has answered or exhausted its attempts.
func (e *Engine) ProbeAll(ctx context.Context, servers []domain.CandidateServer) domain.ProbeRound {
	round := make(domain.ProbeRound, len(servers))
	var wg sync.WaitGroup
	for i, s := range servers {
		i, s := i, s // per-iteration copy (Go <1.22 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			round[i] = e.probeOne(ctx, s)
		}()
	}
	wg.Wait()
	return round
}

func (e *Engine) probeOne(ctx context.Context, s domain.CandidateServer) (res domain.ProbeResult) {
	res = domain.ProbeResult{Label: s.Label, Address: s.Address, Latency: domain.Unreachable}
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Warn("probe_panic",
				zap.String("label", s.Label),
				zap.String("address", s.Address),
				zap.String("panic", fmt.Sprint(r)),
			)
			res.Latency = domain.Unreachable
		}
	}()

	samples := make([]float64, 0, e.Count)
	var lastErr error
	for i := 0; i < e.Count && ctx.Err() == nil; i++ {
		actx, cancel := context.WithTimeout(ctx, e.Timeout)
		rtt, err := e.Pinger.Ping(actx, s.Address)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		samples = append(samples, float64(rtt))
	}

	if len(samples) == 0 {
		fields := []zap.Field{zap.String("label", s.Label), zap.String("address", s.Address)}
		if lastErr != nil {
			fields = append(fields, zap.Error(lastErr))
		}
		e.Logger.Debug("probe_unreachable", fields...)
		return res
	}

	mean, err := stats.Mean(samples)
	if err != nil {
		return res
	}
	res.Latency = domain.Latency(time.Duration(mean))
	e.Logger.Debug("probe_done",
		zap.String("label", s.Label),
		zap.String("address", s.Address),
		zap.Duration("latency", res.Latency.Duration()),
		zap.Int("replies", len(samples)),
	)
	return res
}
