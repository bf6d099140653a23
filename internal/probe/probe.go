package probe

import (
	"context"
	"time"
)

// Pinger sends one echo to address and returns the round-trip time.
// Implementations must honour the context deadline.
type Pinger interface {
	Ping(ctx context.Context, address string) (time.Duration, error)
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context, address string) (time.Duration, error)

func (f PingerFunc) Ping(ctx context.Context, address string) (time.Duration, error) {
	return f(ctx, address)
}

const (
	MethodICMP = "icmp"
	MethodTCP  = "tcp"
)

// Methods lists the accepted method names.
var Methods = []string{MethodICMP, MethodTCP}

// NewPinger returns the pinger for a configured method name.
func NewPinger(method string) Pinger {
	switch method {
	case MethodTCP:
		return NewTCPPinger(0)
	}
	return NewICMPPinger()
}
