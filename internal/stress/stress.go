// Package stress runs many producers and consumers against a ConcurrentQueue and
// checks that every pushed value was popped exactly once, in per-producer order.
package stress

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tsqueue/queues"
)

// ErrVerification is returned by Run when the popped values do not match the pushed ones.
var ErrVerification = errors.New("stress verification failed")

// producerCheckInterval is how many pushes a producer makes between context checks.
const producerCheckInterval = 1024

// consumerPrealloc caps the values slice a consumer allocates up front.
const consumerPrealloc = 1 << 16

// Report is the outcome of one stress round.
type Report struct {
	Config Config
	Pushed int
	Popped int
	// Duplicates counts extra pops of a value that was already popped once.
	Duplicates int
	// Missing counts pushed values that were never popped.
	Missing int
	// Unknown counts popped values that were never pushed.
	Unknown int
	// OrderViolations counts pops where a consumer saw a producer's values out of push order.
	OrderViolations int
	// Leftover is the queue length after all goroutines returned.
	Leftover    int
	PerConsumer []int
	Elapsed     time.Duration
}

func (r Report) OK() bool {
	return r.Pushed == r.Config.Total() &&
		r.Popped == r.Pushed &&
		r.Duplicates == 0 &&
		r.Missing == 0 &&
		r.Unknown == 0 &&
		r.OrderViolations == 0 &&
		r.Leftover == 0
}

// consumerResult is what one consumer hands back after the round.
type consumerResult struct {
	values          []int
	orderViolations int
}

// Run executes one round described by cfg. Producer p pushes the values
// p*PerProducer .. p*PerProducer+PerProducer-1, so every value is unique.
// Consumers stop once Total values have been popped.
//
// A nil logger is replaced by a no-op logger. If ctx is canceled before the
// round completes the context error is returned alongside a partial report.
func Run(ctx context.Context, cfg Config, log *zap.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(
		zap.Int("producers", cfg.Producers),
		zap.Int("consumers", cfg.Consumers),
		zap.Int("perProducer", cfg.PerProducer),
		zap.String("mode", string(cfg.Mode)),
	)

	q := queues.NewConcurrentQueue[int](cfg.Capacity)
	total := int64(cfg.Total())

	var pushed, popped atomic.Int64
	results := make([]consumerResult, cfg.Consumers)

	// Consumers blocked in WaitAndPopContext are released through this context
	// once the last value has been popped.
	consumerCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()
	g, gctx := errgroup.WithContext(consumerCtx)

	start := time.Now()
	log.Debug("starting stress round")

	for c := range cfg.Consumers {
		mode := cfg.modeFor(c)
		g.Go(func() error {
			res := consumerResult{values: make([]int, 0, min(int(total)/cfg.Consumers+1, consumerPrealloc))}
			last := make(map[int]int, cfg.Producers)

			record := func(v int) {
				if v >= 0 && v < int(total) {
					p, i := v/cfg.PerProducer, v%cfg.PerProducer
					if prev, ok := last[p]; ok && i <= prev {
						res.orderViolations++
					}
					last[p] = i
				}
				res.values = append(res.values, v)
				if popped.Add(1) == total {
					stopConsumers()
				}
			}

			for popped.Load() < total {
				if mode == ModeWait {
					v, err := q.WaitAndPopContext(gctx)
					if err != nil {
						break
					}
					record(v)
					continue
				}
				if gctx.Err() != nil {
					break
				}
				v, ok := q.TryPop()
				if !ok {
					runtime.Gosched()
					continue
				}
				record(v)
			}

			results[c] = res
			log.Debug("consumer finished", zap.Int("consumer", c), zap.String("consumerMode", string(mode)), zap.Int("popped", len(res.values)))
			return nil
		})
	}

	for p := range cfg.Producers {
		g.Go(func() error {
			base := p * cfg.PerProducer
			for i := range cfg.PerProducer {
				if i%producerCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return fmt.Errorf("producer %d stopped after %d pushes: %w", p, i, err)
					}
				}
				q.Push(base + i)
				pushed.Add(1)
			}
			return nil
		})
	}

	groupErr := g.Wait()
	report := verify(cfg, results)
	report.Pushed = int(pushed.Load())
	report.Popped = int(popped.Load())
	report.Leftover = q.Len()
	report.Elapsed = time.Since(start)

	if err := roundErr(ctx, groupErr, report); err != nil {
		if errors.Is(err, ErrVerification) {
			log.Error("stress round failed verification",
				zap.Int("duplicates", report.Duplicates),
				zap.Int("missing", report.Missing),
				zap.Int("unknown", report.Unknown),
				zap.Int("orderViolations", report.OrderViolations),
				zap.Int("leftover", report.Leftover),
			)
		} else {
			log.Warn("stress round aborted", zap.Error(err), zap.Int("pushed", report.Pushed), zap.Int("popped", report.Popped))
		}
		return report, err
	}

	log.Info("stress round passed", zap.Int("popped", report.Popped), zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// roundErr classifies a finished round. A complete, verified round is a success
// even if ctx ended after the goroutines returned; an incomplete round is only
// blamed on ctx when ctx is actually done.
func roundErr(ctx context.Context, groupErr error, report Report) error {
	if groupErr == nil && report.OK() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stress round aborted: %w", err)
	}
	if groupErr != nil {
		return groupErr
	}
	return fmt.Errorf("%w: %d duplicates, %d missing, %d unknown, %d out of order, %d left in queue",
		ErrVerification, report.Duplicates, report.Missing, report.Unknown, report.OrderViolations, report.Leftover)
}

// verify merges consumer results and counts how often each value was seen.
func verify(cfg Config, results []consumerResult) Report {
	report := Report{
		Config:      cfg,
		PerConsumer: make([]int, len(results)),
	}
	total := cfg.Total()
	seen := make([]uint32, total)
	for i, res := range results {
		report.PerConsumer[i] = len(res.values)
		report.OrderViolations += res.orderViolations
		for _, v := range res.values {
			if v < 0 || v >= total {
				report.Unknown++
				continue
			}
			if seen[v] > 0 {
				report.Duplicates++
			}
			seen[v]++
		}
	}
	for _, n := range seen {
		if n == 0 {
			report.Missing++
		}
	}
	return report
}
