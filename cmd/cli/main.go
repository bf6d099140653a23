// Command dnsopt probes the catalog resolvers and can switch the host to
// the fastest one.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/app"
	"github.com/hamed0406/dnsoptimizer/internal/config"
	"github.com/hamed0406/dnsoptimizer/internal/domain"
	"github.com/hamed0406/dnsoptimizer/internal/logging"
	"github.com/hamed0406/dnsoptimizer/internal/notify"
	"github.com/hamed0406/dnsoptimizer/internal/optimizer"
	"github.com/hamed0406/dnsoptimizer/internal/resolver"
	"github.com/hamed0406/dnsoptimizer/internal/scheduler"
)

var (
	info    = color.New(color.FgBlue, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	failure = color.New(color.FgRed, color.Bold)
	bold    = color.New(color.Bold)
)

// errReported marks failures already printed to the user.
var errReported = errors.New("failed")

type cli struct {
	cfg    config.Config
	logger *zap.Logger
	events *notify.Channel
	opt    *optimizer.Optimizer
}

func main() {
	c := &cli{cfg: config.FromEnv()}

	root := &cobra.Command{
		Use:           "dnsopt",
		Short:         "Find the fastest DNS resolver and apply it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.DurationVar(&c.cfg.ProbeTimeout, "timeout", c.cfg.ProbeTimeout, "timeout per echo attempt")
	flags.IntVar(&c.cfg.ProbeCount, "count", c.cfg.ProbeCount, "echo attempts per server")
	flags.StringVar(&c.cfg.ProbeMethod, "method", c.cfg.ProbeMethod, "probe method: icmp or tcp")
	flags.StringVar(&c.cfg.CatalogFile, "catalog", c.cfg.CatalogFile, "catalog file (HuJSON); built-in when empty")
	flags.StringVar(&c.cfg.Platform, "platform", c.cfg.Platform, "auto, file or command")
	flags.StringVar(&c.cfg.ResolvConf, "resolv-conf", c.cfg.ResolvConf, "resolver file on the file platform")
	flags.StringVar(&c.cfg.Interface, "interface", c.cfg.Interface, "interface name on the command platform")
	flags.StringVar(&c.cfg.LogDir, "log-dir", c.cfg.LogDir, "log directory")

	root.AddCommand(
		&cobra.Command{Use: "current", Short: "Show the active resolver", RunE: c.runCurrent},
		&cobra.Command{Use: "catalog", Short: "List candidate resolvers", RunE: c.runCatalog},
		&cobra.Command{Use: "test", Short: "Probe every resolver and report the fastest", RunE: c.runTest},
		&cobra.Command{Use: "apply", Short: "Probe, then make the fastest resolver active", RunE: c.runApply},
		c.watchCommand(),
	)

	err := root.Execute()
	c.teardown()
	if err != nil {
		if !errors.Is(err, errReported) {
			failure.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func (c *cli) setup() error {
	logger, err := logging.NewConsoleLogger(c.cfg.LogDir)
	if err != nil {
		return err
	}
	c.logger = logger
	c.events = notify.NewChannel(8)
	c.opt, err = app.Build(c.cfg, logger, c.events)
	return err
}

func (c *cli) teardown() {
	if c.opt != nil {
		c.opt.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func (c *cli) runCurrent(cmd *cobra.Command, _ []string) error {
	info.Printf("Current DNS: %s\n", c.opt.Current(cmd.Context()).Address)
	return nil
}

func (c *cli) runCatalog(cmd *cobra.Command, _ []string) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, s := range c.opt.Servers() {
		fmt.Fprintf(tw, "%s\t%s\n", s.Label, s.Address)
	}
	return tw.Flush()
}

func (c *cli) runTest(cmd *cobra.Command, _ []string) error {
	ctx, cancel := interruptible(cmd)
	defer cancel()

	info.Printf("Testing %d resolvers...\n", len(c.opt.Servers()))
	out := <-c.opt.Test(ctx)
	if out.Err != nil {
		return out.Err
	}
	printRound(out.Round, out.Best, out.Found)
	c.drainEvents()
	if !out.Found {
		failure.Println("No DNS server responded.")
		return errReported
	}
	success.Printf("Fastest: %s (%s) %s\n", out.Best.Label, out.Best.Address, out.Best.Latency)
	return nil
}

func (c *cli) runApply(cmd *cobra.Command, _ []string) error {
	ctx, cancel := interruptible(cmd)
	defer cancel()

	info.Printf("Testing %d resolvers...\n", len(c.opt.Servers()))
	out := <-c.opt.TestAndApply(ctx)
	var best domain.ProbeResult
	if out.Applied != nil {
		best = *out.Applied
	}
	if out.Round != nil {
		printRound(out.Round, best, out.Applied != nil)
	}
	c.drainEvents()

	switch out.Status {
	case optimizer.StatusApplied:
		info.Printf("Previous DNS: %s\n", out.Previous.Address)
		success.Printf("New DNS Applied: %s (%s)\n", best.Label, best.Address)
		info.Printf("Current DNS: %s\n", out.Confirmation.Address)
		return nil
	case optimizer.StatusNothingToApply:
		failure.Println("No valid DNS to apply.")
		return errReported
	}

	if resolver.IsPermissionDenied(out.Err) {
		failure.Println("Permission denied: run as root (Linux/macOS) or as Administrator (Windows) to apply DNS settings.")
		return errReported
	}
	failure.Printf("Failed to apply DNS settings: %v\n", out.Err)
	return errReported
}

func (c *cli) watchCommand() *cobra.Command {
	var (
		interval time.Duration
		apply    bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Repeat rounds on an interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := interruptible(cmd)
			defer cancel()
			info.Printf("Watching every %s (apply=%t), Ctrl-C to stop\n", interval, apply)
			scheduler.NewWatcher(c.logger, c.opt, interval, apply).Run(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between rounds")
	cmd.Flags().BoolVar(&apply, "apply", false, "apply the fastest resolver every round")
	return cmd
}

func printRound(round domain.ProbeRound, best domain.ProbeResult, found bool) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, r := range round {
		lat := "timeout"
		if r.Reachable() {
			lat = r.Latency.Duration().Round(10 * time.Microsecond).String()
		}
		line := fmt.Sprintf("%s\t%s\t%s", r.Label, r.Address, lat)
		if found && r.Label == best.Label {
			fmt.Fprintln(tw, bold.Sprint(line+"\t<- fastest"))
			continue
		}
		fmt.Fprintln(tw, line)
	}
	_ = tw.Flush()
	bold.Println("\nDNS test completed!")
}

// drainEvents logs whatever the optimizer emitted for this command.
func (c *cli) drainEvents() {
	for {
		select {
		case e := <-c.events.Events():
			c.logger.Debug("cli_event", zap.String("kind", string(e.Kind)), zap.Time("at", e.At))
		default:
			return
		}
	}
}
