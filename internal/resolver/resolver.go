// Package resolver reads and rewrites the host's resolver configuration.
//
// Two platform families are supported. The file family keeps resolvers in a
// plain resolv.conf. The command family (Windows) is inspected with
// "ipconfig /all" and changed with "netsh". Applier is the only type in
// this module that mutates host state.
package resolver

import (
	"context"
	"fmt"
	"net/netip"
	"runtime"

	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

// Reader inspects the live configuration. It never fails: anything that
// goes wrong yields domain.UnknownSnapshot().
type Reader interface {
	Read(ctx context.Context) domain.Snapshot
}

// Applier sets the active resolver. An empty address is a no-op. Errors
// are always *ApplyError.
type Applier interface {
	Apply(ctx context.Context, address string) error
}

const (
	PlatformAuto    = "auto"
	PlatformFile    = "file"
	PlatformCommand = "command"

	DefaultResolvConf = "/etc/resolv.conf"
	// DefaultInterface is used on the command platform. The active
	// interface is not discovered.
	DefaultInterface = "Wi-Fi"
)

type Options struct {
	Platform   string
	ResolvConf string
	Interface  string
	Runner     Runner
	Logger     *zap.Logger
}

// Platform resolves "auto" for the running OS.
func Platform(p string) string {
	switch p {
	case PlatformFile, PlatformCommand:
		return p
	}
	if runtime.GOOS == "windows" {
		return PlatformCommand
	}
	return PlatformFile
}

// New returns the reader and applier for the configured platform.
func New(opts Options) (Reader, Applier) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Platform = Platform(opts.Platform); opts.Platform == PlatformCommand {
		if opts.Runner == nil {
			opts.Runner = ExecRunner{}
		}
		if opts.Interface == "" {
			opts.Interface = DefaultInterface
		}
		return &CommandReader{Runner: opts.Runner, Logger: opts.Logger},
			&CommandApplier{Runner: opts.Runner, Interface: opts.Interface, Logger: opts.Logger}
	}
	if opts.ResolvConf == "" {
		opts.ResolvConf = DefaultResolvConf
	}
	return &FileReader{Path: opts.ResolvConf, Logger: opts.Logger},
		&FileApplier{Path: opts.ResolvConf, Logger: opts.Logger}
}

// checkAddress keeps anything but an IP literal out of files and argv.
func checkAddress(op, address string) error {
	if _, err := netip.ParseAddr(address); err != nil {
		return &ApplyError{Kind: KindOther, Op: op, Err: fmt.Errorf("invalid address %q", address)}
	}
	return nil
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
