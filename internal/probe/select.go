package probe

import "github.com/hamed0406/dnsoptimizer/internal/domain"

// SelectBest returns the reachable result with the lowest latency. Equal
// latencies resolve to the earliest entry in the round. ok is false when
// the round is empty or nothing answered.
func SelectBest(round domain.ProbeRound) (best domain.ProbeResult, ok bool) {
	for _, r := range round {
		if !r.Reachable() {
			continue
		}
		if !ok || r.Latency < best.Latency {
			best, ok = r, true
		}
	}
	return best, ok
}
