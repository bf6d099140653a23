package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/dnsoptimizer/internal/probe"
	"github.com/hamed0406/dnsoptimizer/internal/resolver"
)

type Config struct {
	Addr   string // API bind address, e.g., "127.0.0.1:8080"
	LogDir string // logs directory

	ProbeTimeout time.Duration // per echo attempt
	ProbeCount   int           // echo attempts per server
	ProbeMethod  string        // "icmp" | "tcp"
	CatalogFile  string        // empty means the built-in catalog

	Platform   string // "auto" | "file" | "command"
	ResolvConf string
	Interface  string // interface name for the command platform

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	PublicRPM      int
	PublicBurst    int
	AllowedOrigins []string

	SlackWebhook string
}

func FromEnv() Config {
	return Config{
		Addr:   envString("API_ADDR", "127.0.0.1:8080"),
		LogDir: envString("LOG_DIR", "logs"),

		ProbeTimeout: envMillis("PROBE_TIMEOUT_MS", probe.DefaultTimeout),
		ProbeCount:   envInt("PROBE_COUNT", probe.DefaultCount),
		ProbeMethod:  strings.ToLower(envString("PROBE_METHOD", probe.MethodICMP)),
		CatalogFile:  os.Getenv("CATALOG_FILE"),

		Platform:   strings.ToLower(envString("PLATFORM", resolver.PlatformAuto)),
		ResolvConf: envString("RESOLV_CONF", resolver.DefaultResolvConf),
		Interface:  envString("INTERFACE_NAME", resolver.DefaultInterface),

		PublicAPIKeys:  envList("PUBLIC_API_KEYS"),
		AdminAPIKeys:   envList("ADMIN_API_KEYS"),
		PublicRPM:      envInt("PUBLIC_RPM", 120),
		PublicBurst:    envInt("PUBLIC_BURST", 60),
		AllowedOrigins: envList("ALLOWED_ORIGINS"),

		SlackWebhook: os.Getenv("SLACK_WEBHOOK_URL"),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs error
	if c.ProbeTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("PROBE_TIMEOUT_MS must be positive, got %s", c.ProbeTimeout))
	}
	if c.ProbeCount < 1 || c.ProbeCount > 10 {
		errs = multierr.Append(errs, fmt.Errorf("PROBE_COUNT must be 1..10, got %d", c.ProbeCount))
	}
	if !slices.Contains(probe.Methods, c.ProbeMethod) {
		errs = multierr.Append(errs, fmt.Errorf("PROBE_METHOD must be one of %s, got %q", strings.Join(probe.Methods, ", "), c.ProbeMethod))
	}
	switch c.Platform {
	case resolver.PlatformAuto, resolver.PlatformFile, resolver.PlatformCommand:
	default:
		errs = multierr.Append(errs, fmt.Errorf("PLATFORM must be auto, file or command, got %q", c.Platform))
	}
	if strings.TrimSpace(c.Interface) == "" {
		errs = multierr.Append(errs, fmt.Errorf("INTERFACE_NAME is empty"))
	}
	if c.ResolvConf == "" {
		errs = multierr.Append(errs, fmt.Errorf("RESOLV_CONF is empty"))
	}
	return errs
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt keeps the default when the value is missing or not a number.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
