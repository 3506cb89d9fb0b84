package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/olliecrow/rec_availability_monitor/internal/config"
	"github.com/olliecrow/rec_availability_monitor/internal/logging"
	"github.com/olliecrow/rec_availability_monitor/internal/recgov"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks bad invocations; they exit with code 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// app carries one invocation's streams, flags and derived state.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath   string
	debug        bool
	timeout      time.Duration
	notifyCmd    string
	notifyAlways bool
	watch        bool
	interval     time.Duration
	noColor      bool
	noAltScreen  bool

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: zap.NewNop(),
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	return a.exitCode(err)
}

func (a *app) exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitFailure
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rec-availability",
		Short: "Check recreation.gov permit and campsite availability",
		Long: `rec-availability checks recreation.gov for open permit dates and campsites.

It fetches every month overlapping the requested window, filters the dates
and prints one line per permit or campground. With --watch it keeps
refreshing inside a terminal user interface (TUI).`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		Args:              noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/rec-availability/config.yaml)")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging on stderr")
	pf.DurationVar(&a.timeout, "timeout", 0, "per-request timeout (default 10s)")
	pf.StringVar(&a.notifyCmd, "notify-cmd", "", "shell command that receives the text report on stdin")
	pf.BoolVar(&a.notifyAlways, "notify-always", false, "run --notify-cmd even when nothing is available")
	pf.BoolVar(&a.watch, "watch", false, "keep refreshing in a terminal user interface (TUI)")
	pf.DurationVar(&a.interval, "interval", 0, "refresh interval for --watch (default 5m)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable color styling")
	pf.BoolVar(&a.noAltScreen, "no-alt-screen", false, "disable alternate screen mode for --watch")

	root.AddCommand(a.permitsCmd(), a.campsitesCmd(), a.doctorCmd(), a.completionCmd())
	return root
}

// setup loads config and applies flag overrides before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.logger = logging.New(a.stderr, a.debug)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return usageError{err: err}
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = a.timeout
	}
	if flags.Changed("notify-cmd") {
		cfg.NotifyCmd = a.notifyCmd
	}
	if flags.Changed("interval") {
		cfg.Interval = a.interval
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err: err}
	}
	a.cfg = cfg
	a.logger.Debug("config loaded",
		zap.String("path", cfg.Path),
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("parallelism", cfg.Parallelism))
	return nil
}

// runLogger is silenced in watch mode so log lines do not tear the TUI.
func (a *app) runLogger() *zap.Logger {
	if a.watch {
		return zap.NewNop()
	}
	return a.logger
}

func (a *app) newClient() *recgov.Client {
	opts := a.cfg.ClientOptions()
	opts.Logger = a.runLogger()
	return recgov.NewClient(opts)
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err: err}
	}
	return nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
