package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/app"
	"github.com/rl1809/storefront/internal/bench"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
	"github.com/rl1809/storefront/internal/workload"
)

type flags struct {
	backend   string
	workers   string
	duration  time.Duration
	opTimeout time.Duration
	seed      uint64
	target    string
	skipSeed  bool
	breakdown bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var f flags
	flag.StringVar(&f.backend, "backend", cfg.Backend, "store backend: memory, redis, mysql, postgres, mongo")
	flag.StringVar(&f.workers, "workers", "", "comma separated worker counts, one trial each")
	flag.DurationVar(&f.duration, "duration", cfg.Bench.Duration, "length of each trial")
	flag.DurationVar(&f.opTimeout, "op-timeout", cfg.Bench.OpTimeout, "timeout per operation")
	flag.Uint64Var(&f.seed, "seed", cfg.Bench.Seed, "random seed, 0 for a random one")
	flag.StringVar(&f.target, "target", cfg.Bench.Target, "gRPC address of a running server instead of an in-process store")
	flag.BoolVar(&f.skipSeed, "skip-seed", false, "reuse data already in the store")
	flag.BoolVar(&f.breakdown, "breakdown", false, "print per-operation counts for each trial")
	flag.Parse()

	if err := applyFlags(cfg, f); err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shop, closeShop, err := openShop(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeShop()

	seed := cfg.Bench.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger.Info("benchmark starting", "backend", cfg.Backend, "target", cfg.Bench.Target, "seed", seed)

	wcfg := workload.DefaultConfig()
	wcfg.Users = cfg.Seed.Users
	wcfg.Products = cfg.Seed.Products
	if !f.skipSeed {
		start := time.Now()
		report, err := workload.Seed(ctx, shop, workload.SeedConfig{
			Users:           cfg.Seed.Users,
			Products:        cfg.Seed.Products,
			Reviews:         cfg.Seed.Reviews,
			Orders:          cfg.Seed.Orders,
			ItemsPerOrder:   wcfg.ItemsPerOrder,
			MaxItemQuantity: wcfg.MaxItemQuantity,
			MaxInitialStock: wcfg.MaxInitialStock,
		}, rand.New(rand.NewPCG(seed, 0)))
		if err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		logger.Info("store seeded",
			"users", report.Users,
			"products", report.LastProductID-report.FirstProductID+1,
			"reviews", report.Reviews,
			"orders", report.Orders,
			"rejected", report.Rejected,
			"took", time.Since(start),
		)
		wcfg = report.WorkloadConfig(wcfg)
	}

	gen, err := workload.NewGenerator(wcfg)
	if err != nil {
		return err
	}

	runner, err := bench.NewRunner(shop, gen, bench.Options{
		OpTimeout: cfg.Bench.OpTimeout,
		Seed:      seed,
		Logger:    logger,
		Meter:     otel.Meter("github.com/rl1809/storefront/cmd/benchmark"),
	})
	if err != nil {
		return err
	}

	results, err := runner.RunSweep(ctx, cfg.Bench.Workers, cfg.Bench.Duration)
	if err != nil {
		return err
	}

	if err := bench.WriteReport(os.Stdout, results); err != nil {
		return err
	}
	if f.breakdown {
		for _, r := range results {
			fmt.Println()
			if err := bench.WriteBreakdown(os.Stdout, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyFlags(cfg *config.Config, f flags) error {
	cfg.Backend = f.backend
	cfg.Bench.Duration = f.duration
	cfg.Bench.OpTimeout = f.opTimeout
	cfg.Bench.Seed = f.seed
	cfg.Bench.Target = f.target
	if f.workers != "" {
		workers, err := config.ParseWorkers(f.workers)
		if err != nil {
			return err
		}
		cfg.Bench.Workers = workers
	}
	return cfg.Validate()
}

// openShop returns a client for a remote server when a target is set,
// otherwise a shop over a directly opened store.
func openShop(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.Storefront, func(), error) {
	if cfg.Bench.Target != "" {
		conn, err := handler.Dial(cfg.Bench.Target)
		if err != nil {
			return nil, nil, err
		}
		return handler.NewGRPCClient(conn), func() { conn.Close() }, nil
	}

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return service.NewShop(store, logger), closeStore, nil
}
