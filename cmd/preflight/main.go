// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hamed0406/dnsoptimizer/internal/app"
	"github.com/hamed0406/dnsoptimizer/internal/config"
	"github.com/hamed0406/dnsoptimizer/internal/privilege"
	"github.com/hamed0406/dnsoptimizer/internal/probe"
	"github.com/hamed0406/dnsoptimizer/internal/resolver"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fail("invalid configuration: " + err.Error())
	}
	ok("configuration valid")

	cat, err := app.Catalog(cfg)
	if err != nil {
		fail("catalog: " + err.Error())
	}
	ok(fmt.Sprintf("catalog has %d servers", len(cat.Servers())))

	if cfg.ProbeMethod == probe.MethodICMP {
		if err := probe.NewICMPPinger().CanListen(); err != nil {
			warn("cannot open an ICMP socket (" + err.Error() + "); every server will be unreachable. Set PROBE_METHOD=tcp or allow ping sockets.")
		} else {
			ok("ICMP echo available")
		}
	}

	platform := resolver.Platform(cfg.Platform)
	status := privilege.Check(app.ResolvConfPath(cfg))
	switch platform {
	case resolver.PlatformFile:
		if status.Writable {
			ok(cfg.ResolvConf + " is writable")
		} else {
			warn(cfg.ResolvConf + " is not writable; apply will fail with permission denied. Run as root.")
		}
	case resolver.PlatformCommand:
		for _, tool := range []string{"netsh", "ipconfig"} {
			if _, err := exec.LookPath(tool); err != nil {
				fail(tool + " not found in PATH")
			}
		}
		ok("netsh and ipconfig found; interface " + cfg.Interface)
		if !status.Elevated {
			warn("not running as Administrator; apply will fail with permission denied.")
		}
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; the API will not require keys.")
	}
	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; the API allows every origin.")
	} else {
		ok(fmt.Sprintf("ALLOWED_ORIGINS=%v", cfg.AllowedOrigins))
	}

	ok("preflight passed")
}
