package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tsqueue/internal/stress"
)

type rootOptions struct {
	stress   stress.Config
	mode     string
	rounds   int
	timeout  time.Duration
	logLevel string
	logDev   bool
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := rootOptions{stress: stress.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "qstress",
		Short: "Hammer a ConcurrentQueue with producers and consumers and verify nothing is lost or duplicated",
		Long: `Runs one or more stress rounds against tsqueue's ConcurrentQueue.

Each producer pushes a disjoint range of integers. Consumers pop until every value
has been seen, then the round is checked for lost, duplicated and reordered values.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := stress.ParseMode(opts.mode)
			if err != nil {
				return err
			}
			opts.stress.Mode = mode

			log, err := newLogger(opts.logLevel, opts.logDev)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}
			return runRounds(ctx, out, log, opts)
		},
	}

	addFlags(cmd.Flags(), &opts)
	return cmd
}

func addFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.SortFlags = false
	flags.IntVarP(&opts.stress.Producers, "producers", "p", opts.stress.Producers, "Number of producer goroutines.")
	flags.IntVarP(&opts.stress.Consumers, "consumers", "c", opts.stress.Consumers, "Number of consumer goroutines.")
	flags.IntVarP(&opts.stress.PerProducer, "per-producer", "n", opts.stress.PerProducer, "Values pushed by each producer.")
	flags.StringVarP(&opts.mode, "mode", "m", string(opts.stress.Mode), fmt.Sprintf("How consumers pop, one of %v.", stress.SupportedModes))
	flags.IntVar(&opts.stress.Capacity, "capacity", opts.stress.Capacity, "Initial queue buffer size (0 uses the default). This is not a limit.")
	flags.IntVarP(&opts.rounds, "rounds", "r", 1, "Number of rounds to run.")
	flags.DurationVar(&opts.timeout, "timeout", time.Minute, "Abort if all rounds have not finished in this time (0 disables).")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
	flags.BoolVar(&opts.logDev, "log-dev", false, "Use human readable development logging instead of JSON.")
}

func newLogger(level string, developer bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if developer {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// runRounds runs the configured rounds back to back and renders one table row per round.
// It keeps going after a failed round so the table shows every result.
func runRounds(ctx context.Context, out io.Writer, log *zap.Logger, opts rootOptions) error {
	if opts.rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", opts.rounds)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Header = text.FormatUpper
	tbl.AppendHeader(table.Row{"round", "mode", "pushed", "popped", "dup", "missing", "reordered", "elapsed", "ops/s", "result"})

	var failed error
	for round := 1; round <= opts.rounds; round++ {
		report, err := stress.Run(ctx, opts.stress, log.With(zap.Int("round", round)))
		result := "ok"
		if err != nil {
			result = "FAIL"
			failed = errors.Join(failed, fmt.Errorf("round %d: %w", round, err))
		}
		tbl.AppendRow(table.Row{
			round,
			opts.stress.Mode,
			report.Pushed,
			report.Popped,
			report.Duplicates,
			report.Missing,
			report.OrderViolations,
			report.Elapsed.Round(time.Microsecond),
			opsPerSecond(report),
			result,
		})
		if ctx.Err() != nil {
			break
		}
	}
	tbl.Render()
	return failed
}

func opsPerSecond(r stress.Report) string {
	if r.Elapsed <= 0 {
		return "-"
	}
	ops := float64(r.Pushed+r.Popped) / r.Elapsed.Seconds()
	return fmt.Sprintf("%.0f", ops)
}
