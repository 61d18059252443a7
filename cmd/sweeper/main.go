// Command sweeper runs one batch sweep over every tracked product and exits.
// Intended for external cron; per-product failures are reported in the
// counts, not in the exit code.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ytopcu/pricewatch/internal/checker"
	"github.com/ytopcu/pricewatch/internal/config"
	"github.com/ytopcu/pricewatch/internal/database"
	"github.com/ytopcu/pricewatch/internal/extractor"
	"github.com/ytopcu/pricewatch/internal/fetcher"
	"github.com/ytopcu/pricewatch/internal/logger"
	"github.com/ytopcu/pricewatch/internal/notify"
	"github.com/ytopcu/pricewatch/internal/products"
	"github.com/ytopcu/pricewatch/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DB.DSN())
	if err != nil {
		zl.Error("connect database", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	chk := checker.New(
		fetcher.New(fetcher.Config{Timeout: cfg.FetchTimeout, RatePerSec: cfg.FetchRatePerSec}),
		extractor.New(),
		cfg.DefaultCurrency,
		zl,
	)
	var notifier notify.Notifier = notify.Nop{}
	if cfg.SMTP.Enabled() {
		notifier = notify.NewSMTP(cfg.SMTP)
	}
	sched := scheduler.New(products.NewRepository(pool), chk, notifier, zl, scheduler.Config{
		Workers: cfg.SweepWorkers,
	})

	res, err := sched.RunSweep(ctx)
	if err != nil {
		zl.Error("sweep failed", zap.Error(err))
		os.Exit(1)
	}
	zl.Info("sweep complete",
		zap.String("run_id", res.RunID),
		zap.Int("total", res.Total),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed))
}
