package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP     = 1
	protocolICMPv6   = 58
	maxICMPReplySize = 1500
)

var errBadAddress = errors.New("probe: address is not an IP literal")

// ICMPPinger sends ICMP echo requests. It prefers the unprivileged
// datagram socket and falls back to a raw socket.
type ICMPPinger struct {
	// Privileged skips the datagram socket attempt.
	Privileged bool

	seq     atomic.Uint32
	payload []byte
}

func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{payload: []byte("dnsoptimizer-echo")}
}

type icmpFamily struct {
	dgram, raw string
	listen     string
	proto      int
	request    icmp.Type
	reply      icmp.Type
}

var (
	family4 = icmpFamily{"udp4", "ip4:icmp", "0.0.0.0", protocolICMP, ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply}
	family6 = icmpFamily{"udp6", "ip6:ipv6-icmp", "::", protocolICMPv6, ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply}
)

// CanListen reports whether this process may open any ICMP socket.
func (p *ICMPPinger) CanListen() error {
	conn, _, err := p.listen(family4)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p *ICMPPinger) listen(f icmpFamily) (*icmp.PacketConn, bool, error) {
	if !p.Privileged {
		if conn, err := icmp.ListenPacket(f.dgram, f.listen); err == nil {
			return conn, false, nil
		}
	}
	conn, err := icmp.ListenPacket(f.raw, f.listen)
	if err != nil {
		return nil, true, fmt.Errorf("probe: icmp listen: %w", err)
	}
	return conn, true, nil
}

func (p *ICMPPinger) Ping(ctx context.Context, address string) (time.Duration, error) {
	ip, err := netip.ParseAddr(address)
	if err != nil {
		return 0, errBadAddress
	}
	ip = ip.Unmap()
	f := family4
	if ip.Is6() {
		f = family6
	}

	conn, raw, err := p.listen(f)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	var dst net.Addr = &net.UDPAddr{IP: ip.AsSlice()}
	if raw {
		dst = &net.IPAddr{IP: ip.AsSlice()}
	}

	// The kernel rewrites the ID on datagram sockets, so replies are
	// matched on sequence and payload.
	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: f.request,
		Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: seq, Data: p.payload},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(wire, dst); err != nil {
		return 0, fmt.Errorf("probe: icmp write: %w", err)
	}

	buf := make([]byte, maxICMPReplySize)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			// The socket deadline can fire just before the context's own timer.
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return 0, context.DeadlineExceeded
			}
			return 0, fmt.Errorf("probe: icmp read: %w", err)
		}
		if !samePeer(peer, ip) {
			continue
		}
		reply, err := icmp.ParseMessage(f.proto, buf[:n])
		if err != nil || reply.Type != f.reply {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq || !bytes.Equal(echo.Data, p.payload) {
			continue
		}
		return time.Since(start), nil
	}
}

func samePeer(peer net.Addr, want netip.Addr) bool {
	var got net.IP
	switch a := peer.(type) {
	case *net.UDPAddr:
		got = a.IP
	case *net.IPAddr:
		got = a.IP
	default:
		return false
	}
	addr, ok := netip.AddrFromSlice(got)
	return ok && addr.Unmap() == want
}
