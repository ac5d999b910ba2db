package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haricheung/stripsbridge/internal/config"
	"github.com/haricheung/stripsbridge/internal/plancache"
	"github.com/haricheung/stripsbridge/internal/runlog"
	"github.com/haricheung/stripsbridge/internal/solver"
	"github.com/haricheung/stripsbridge/internal/ui"
)

// app carries the global flags and the configuration they resolve to.
type app struct {
	envFile  string
	logLevel string
	cacheDir string
	logDir   string
	noCache  bool
	noColor  bool
	timeout  time.Duration

	cfg *config.Config
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "stripsbridge",
		Short: "Solve planning problems with the Pyperplan STRIPS planner",
		Long: `stripsbridge converts a planning problem into typed STRIPS, runs a
breadth-first Pyperplan search and prints the plan in terms of the
original problem.

Problems are read from YAML files. Settings come from STRIPSBRIDGE_*
environment variables, an optional .env file, and the flags below.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "Env file loaded before reading STRIPSBRIDGE_* variables")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.cacheDir, "cache-dir", "", "Plan cache directory")
	pf.StringVar(&a.logDir, "log-dir", "", "Run log directory")
	pf.BoolVar(&a.noCache, "no-cache", false, "Do not read or write the plan cache")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	pf.DurationVar(&a.timeout, "timeout", 0, "Search time limit, e.g. 30s (0 means none)")

	root.AddCommand(newSolveCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newCacheCmd(a))
	return root
}

// setup resolves the configuration and installs the process logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		if cfg.LogLevel, err = config.ParseLevel(a.logLevel); err != nil {
			return err
		}
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = a.cacheDir
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = a.logDir
	}
	if flags.Changed("no-cache") {
		cfg.NoCache = a.noCache
	}
	if flags.Changed("timeout") {
		cfg.SearchTimeout = a.timeout
	}
	a.cfg = cfg

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel})
	slog.SetDefault(slog.New(handler))
	slog.Debug("[CLI] config", "log_dir", cfg.LogDir, "cache_dir", cfg.CacheDir,
		"no_cache", cfg.NoCache, "search_timeout", cfg.SearchTimeout)
	return nil
}

// display returns a terminal renderer for cmd's output.
func (a *app) display(cmd *cobra.Command) *ui.Display {
	out := cmd.OutOrStdout()
	color := !a.noColor && os.Getenv("NO_COLOR") == "" && isTerminal(out)
	width, _ := strconv.Atoi(os.Getenv("COLUMNS"))
	return ui.New(out, color, width)
}

// solverOptions wires the plan cache and run log. The returned func releases them.
func (a *app) solverOptions() ([]solver.Option, func()) {
	opts := []solver.Option{
		solver.WithRunLog(runlog.NewRegistry(a.cfg.LogDir)),
		solver.WithSearchTimeout(a.cfg.SearchTimeout),
	}
	if a.cfg.NoCache {
		return opts, func() {}
	}
	store, err := plancache.Open(a.cfg.CacheDir)
	if err != nil {
		slog.Warn("[CLI] plan cache unavailable; solving without it", "dir", a.cfg.CacheDir, "error", err)
		return opts, func() {}
	}
	opts = append(opts, solver.WithPlanStore(store))
	return opts, func() {
		if err := store.Close(); err != nil {
			slog.Warn("[CLI] plan cache close failed", "error", err)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
