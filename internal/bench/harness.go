// Package bench drives a workload against a storefront at increasing
// concurrency and measures how often the store's guarantees break.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
	"github.com/rl1809/storefront/internal/workload"
)

const (
	defaultOpTimeout = 5 * time.Second
	meterName        = "github.com/rl1809/storefront/internal/bench"
)

type Options struct {
	// OpTimeout bounds each operation. Operations never see the trial's
	// cancellation, so one that started before the deadline completes.
	OpTimeout time.Duration

	// Seed makes worker random streams reproducible; zero picks a random seed.
	Seed uint64

	Logger *slog.Logger
	Meter  metric.Meter
}

type Runner struct {
	shop   port.Storefront
	gen    *workload.Generator
	opts   Options
	logger *slog.Logger

	ops      metric.Int64Counter
	duration metric.Float64Histogram
}

func NewRunner(shop port.Storefront, gen *workload.Generator, opts Options) (*Runner, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Meter == nil {
		opts.Meter = noop.NewMeterProvider().Meter(meterName)
	}

	ops, err := opts.Meter.Int64Counter("storefront_bench_operations_total",
		metric.WithDescription("Benchmark operations by kind and outcome"))
	if err != nil {
		return nil, fmt.Errorf("create operation counter: %w", err)
	}
	duration, err := opts.Meter.Float64Histogram("storefront_bench_operation_duration_seconds",
		metric.WithDescription("Benchmark operation latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Runner{
		shop:     shop,
		gen:      gen,
		opts:     opts,
		logger:   opts.Logger.With("component", "bench"),
		ops:      ops,
		duration: duration,
	}, nil
}

// RunConcurrencyTrial runs one trial with default options.
func RunConcurrencyTrial(ctx context.Context, shop port.Storefront, gen *workload.Generator, workers int, duration time.Duration) (TrialResult, error) {
	r, err := NewRunner(shop, gen, Options{})
	if err != nil {
		return TrialResult{}, err
	}
	return r.RunConcurrencyTrial(ctx, workers, duration)
}

type outcomeCounters struct {
	success   atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
	violation atomic.Int64
}

func (c *outcomeCounters) add(o workload.Outcome) {
	switch o {
	case workload.OutcomeSuccess:
		c.success.Add(1)
	case workload.OutcomeRejected:
		c.rejected.Add(1)
	case workload.OutcomeFailed:
		c.failed.Add(1)
	case workload.OutcomeViolation:
		c.violation.Add(1)
	}
}

func (c *outcomeCounters) snapshot() KindStats {
	return KindStats{
		Successes:  c.success.Load(),
		Rejections: c.rejected.Load(),
		Failures:   c.failed.Load(),
		Violations: c.violation.Load(),
	}
}

// trialCounters is created fresh for every trial; the per-kind map is filled
// before workers start and only read afterwards.
type trialCounters struct {
	perKind map[workload.Kind]*outcomeCounters
}

func newTrialCounters() *trialCounters {
	c := &trialCounters{perKind: make(map[workload.Kind]*outcomeCounters, len(workload.Kinds))}
	for _, kind := range workload.Kinds {
		c.perKind[kind] = &outcomeCounters{}
	}
	return c
}

// RunConcurrencyTrial starts workers that draw and execute operations until
// duration elapses, then audits stock against the effects they reported.
func (r *Runner) RunConcurrencyTrial(ctx context.Context, workers int, duration time.Duration) (TrialResult, error) {
	if workers <= 0 || duration <= 0 {
		return TrialResult{}, fmt.Errorf("%w: workers and duration must be positive", service.ErrInvalidArgument)
	}

	baseline, err := r.snapshotStock(ctx, r.productRange())
	if err != nil {
		return TrialResult{}, fmt.Errorf("stock baseline: %w", err)
	}

	counters := newTrialCounters()
	ledgers := make([]map[int64]int, workers)
	seed := r.opts.Seed + uint64(workers)<<32

	r.logger.InfoContext(ctx, "trial started", "workers", workers, "duration", duration)

	start := time.Now()
	deadline := start.Add(duration)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		ledger := make(map[int64]int)
		ledgers[w] = ledger
		rnd := rand.New(rand.NewPCG(seed, uint64(w)))

		g.Go(func() error {
			for time.Now().Before(deadline) {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.runOne(ctx, rnd, counters, ledger)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TrialResult{}, fmt.Errorf("trial interrupted: %w", err)
	}
	elapsed := time.Since(start)

	result := TrialResult{
		Workers:  workers,
		Duration: elapsed,
		PerKind:  make(map[workload.Kind]KindStats, len(counters.perKind)),
	}
	for kind, c := range counters.perKind {
		stats := c.snapshot()
		result.PerKind[kind] = stats
		result.TotalOps += stats.Total()
		result.Successes += stats.Successes
		result.Rejections += stats.Rejections
		result.Failures += stats.Failures
		result.Violations += stats.Violations
	}

	mismatches, err := r.audit(ctx, baseline, mergeLedgers(ledgers))
	if err != nil {
		return TrialResult{}, fmt.Errorf("stock audit: %w", err)
	}
	result.AuditViolations = int64(len(mismatches))
	for _, m := range mismatches {
		r.logger.ErrorContext(ctx, "stock audit mismatch",
			"product_id", m.ProductID, "expected", m.Expected, "actual", m.Actual)
	}
	result.finish()

	r.logger.InfoContext(ctx, "trial finished",
		"workers", workers,
		"total_ops", result.TotalOps,
		"violation_rate", result.ViolationRate,
		"throughput", result.Throughput,
	)
	return result, nil
}

// runOne executes a single operation on a context detached from the trial,
// so the deadline never aborts an operation halfway.
func (r *Runner) runOne(ctx context.Context, rnd *rand.Rand, counters *trialCounters, ledger map[int64]int) {
	op := r.gen.Next(rnd)

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.OpTimeout)
	begin := time.Now()
	res := op.Execute(opCtx, r.shop)
	took := time.Since(begin)
	cancel()

	outcome := res.Outcome()
	counters.perKind[op.Kind].add(outcome)
	if res.Err == nil {
		for _, effect := range res.Effects {
			ledger[effect.ProductID] += effect.Quantity
		}
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", string(op.Kind)),
		attribute.String("outcome", outcome.String()),
	)
	r.ops.Add(ctx, 1, attrs)
	r.duration.Record(ctx, took.Seconds(), attrs)

	switch outcome {
	case workload.OutcomeFailed:
		r.logger.WarnContext(ctx, "operation failed", "kind", op.Kind, "error", res.Err)
	case workload.OutcomeViolation:
		r.logger.ErrorContext(ctx, "consistency violation", "kind", op.Kind, "detail", res.Violation)
	}
}

// RunSweep runs one trial per worker count, in order.
func (r *Runner) RunSweep(ctx context.Context, workerCounts []int, duration time.Duration) ([]TrialResult, error) {
	results := make([]TrialResult, 0, len(workerCounts))
	for _, workers := range workerCounts {
		result, err := r.RunConcurrencyTrial(ctx, workers, duration)
		if err != nil {
			return results, fmt.Errorf("trial with %d workers: %w", workers, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *Runner) productRange() []int64 {
	cfg := r.gen.Config()
	ids := make([]int64, 0, cfg.Products)
	for i := 1; i <= cfg.Products; i++ {
		ids = append(ids, cfg.ProductBase+int64(i))
	}
	return ids
}
