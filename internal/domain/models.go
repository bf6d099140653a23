package domain

import (
	"encoding/json"
	"math"
	"time"
)

// UnknownAddress is reported when the live resolver configuration can't be read.
const UnknownAddress = "unknown"

// CandidateServer is one catalog entry. Label is unique within a catalog.
type CandidateServer struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// Latency is a round-trip time or Unreachable. Unreachable compares greater
// than every finite latency, so plain < ordering is total.
type Latency time.Duration

// Unreachable marks a server that gave no response within the timeout.
const Unreachable = Latency(math.MaxInt64)

func (l Latency) Reachable() bool { return l != Unreachable }

func (l Latency) Duration() time.Duration { return time.Duration(l) }

func (l Latency) String() string {
	if !l.Reachable() {
		return "unreachable"
	}
	return time.Duration(l).String()
}

// MarshalJSON encodes milliseconds, or null when unreachable.
func (l Latency) MarshalJSON() ([]byte, error) {
	if !l.Reachable() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(l) / float64(time.Millisecond))
}

type ProbeResult struct {
	Label   string  `json:"label"`
	Address string  `json:"address"`
	Latency Latency `json:"latency_ms"`
}

func (r ProbeResult) Reachable() bool { return r.Latency.Reachable() }

// ProbeRound holds one result per catalog entry, in catalog order.
type ProbeRound []ProbeResult

// Snapshot is the first address in the live resolver configuration.
type Snapshot struct {
	Address string `json:"address"`
}

func (s Snapshot) Known() bool { return s.Address != "" && s.Address != UnknownAddress }

func UnknownSnapshot() Snapshot { return Snapshot{Address: UnknownAddress} }
