package resolver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/netip"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

// Runner executes a program and returns its combined output. Output is
// captured, never forwarded to the terminal.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

const dnsServersKey = "DNS Servers"

// CommandReader parses the "DNS Servers" lines of ipconfig /all.
type CommandReader struct {
	Runner Runner
	Logger *zap.Logger
}

func (r *CommandReader) Read(ctx context.Context) domain.Snapshot {
	out, err := r.Runner.Run(ctx, "ipconfig", "/all")
	if err != nil {
		orNop(r.Logger).Debug("resolver_read_failed", zap.String("cmd", "ipconfig"), zap.Error(err))
		return domain.UnknownSnapshot()
	}
	if addr := firstDNSServer(out); addr != "" {
		return domain.Snapshot{Address: addr}
	}
	return domain.UnknownSnapshot()
}

// firstDNSServer handles lines like
//
//	DNS Servers . . . . . . . . . . . : 2606:4700:4700::1111
//
// splitting on the first ": " so IPv6 values stay intact.
func firstDNSServer(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		i := strings.Index(line, dnsServersKey)
		if i < 0 {
			continue
		}
		rest := line[i+len(dnsServersKey):]
		j := strings.Index(rest, ": ")
		if j < 0 {
			continue
		}
		v := strings.TrimSpace(rest[j+2:])
		if addr, err := netip.ParseAddr(v); err == nil {
			return addr.String()
		}
	}
	return ""
}

// CommandApplier sets a static resolver on one named interface via netsh.
type CommandApplier struct {
	Runner    Runner
	Interface string
	Logger    *zap.Logger
}

func (a *CommandApplier) Apply(ctx context.Context, address string) error {
	if address == "" {
		return nil
	}
	const op = "netsh set dns"
	if err := checkAddress(op, address); err != nil {
		return err
	}
	out, err := a.Runner.Run(ctx, "netsh",
		"interface", "ip", "set", "dns", "name="+a.Interface, "static", address)
	if err != nil {
		kind := KindProcessFailure
		if requiresElevation(out) {
			kind = KindPermissionDenied
		}
		var ee *exec.Error
		if errors.As(err, &ee) {
			kind = KindProcessFailure
		}
		return &ApplyError{Kind: kind, Op: op, Err: err}
	}
	orNop(a.Logger).Info("resolver_interface_set",
		zap.String("interface", a.Interface),
		zap.String("address", address),
	)
	return nil
}

func requiresElevation(out []byte) bool {
	s := strings.ToLower(string(out))
	return strings.Contains(s, "requires elevation") || strings.Contains(s, "run as administrator")
}
