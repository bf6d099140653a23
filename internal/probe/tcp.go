package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

const defaultPort = 53

// TCPPinger measures the time to complete a TCP handshake. It needs no
// privilege and gets through networks that drop ICMP.
type TCPPinger struct {
	Port   int
	Dialer *net.Dialer
}

func NewTCPPinger(port int) *TCPPinger {
	if port <= 0 || port > 65535 {
		port = defaultPort
	}
	return &TCPPinger{Port: port, Dialer: &net.Dialer{}}
}

func (p *TCPPinger) Ping(ctx context.Context, address string) (time.Duration, error) {
	target := net.JoinHostPort(address, strconv.Itoa(p.Port))
	start := time.Now()
	conn, err := p.Dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return 0, err
	}
	rtt := time.Since(start)
	_ = conn.Close()
	return rtt, nil
}
