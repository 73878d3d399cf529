package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/notfilippo/rawalloc/accountant"
	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/mem"
)

var (
	// Global flags
	primitive string
	maxSingle uint64
	limit     int64
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "rawalloc",
	Short: "Exercise the accounting allocator over a raw primitive",
	Long: `rawalloc drives the accounting allocator over a raw memory primitive
(anonymous mappings or libc malloc) and reports the usage seen by the
accountant after every step.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&primitive, "primitive", "p", "mmap", "Raw primitive: mmap or cgo")
	rootCmd.PersistentFlags().
		Uint64Var(&maxSingle, "max-single", 0, "Largest single allocation in bytes (0: no ceiling)")
	rootCmd.PersistentFlags().Int64Var(&limit, "limit", 0, "Accountant memory limit in bytes (0: none)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message
func printInfo(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// env is the backend stack every subcommand runs on.
type env struct {
	backend *accounting.Backend
	limiter *accountant.Limiter
	leaks   *mem.LeakCheckAllocator
	log     *slog.Logger
}

func newEnv() (*env, error) {
	raw, err := rawAllocator(primitive)
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	e := &env{log: logger, leaks: mem.NewLeakCheckAllocator(raw)}
	e.limiter = accountant.NewLimiter(accountant.Config{
		Limit:  limit,
		Logger: logger,
		Evict: func(used, limit int64) {
			logger.Warn("eviction requested", "used", used, "limit", limit)
		},
	})

	var opts []accounting.Option
	if maxSingle > 0 {
		opts = append(opts, accounting.WithMaxSingleAllocation(uintptr(maxSingle)))
	}
	e.backend, err = accounting.NewFor(e.leaks, e.limiter, opts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("backend ready", "primitive", primitive, "max_single", maxSingle, "limit", limit)
	return e, nil
}

// finish reports leaked raw blocks and usage drift.
func (e *env) finish() error {
	if n := e.leaks.Live(); n > 0 {
		return fmt.Errorf("%d raw blocks leaked (%d bytes)", n, e.leaks.InUse())
	}
	if used := e.backend.BytesInUse(); used != 0 {
		return fmt.Errorf("accounted usage drifted to %d bytes", used)
	}
	printVerbose("allocations: %d, reallocations: %d, frees: %d, peak: %d bytes\n",
		e.leaks.Allocations(), e.leaks.Reallocations(), e.leaks.Frees(), e.limiter.Peak())
	return nil
}

func rawAllocator(name string) (accounting.RawAllocator, error) {
	switch name {
	case "mmap":
		return mem.NewMmapAllocator(), nil
	case "cgo":
		if raw, ok := cgoAllocator(); ok {
			return raw, nil
		}
		return nil, fmt.Errorf("primitive %q needs a cgo build", name)
	}
	return nil, fmt.Errorf("unknown primitive %q (want mmap or cgo)", name)
}
