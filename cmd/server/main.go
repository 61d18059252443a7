package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytopcu/pricewatch/internal/api"
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

	// graceful shutdown coordination
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DB.DSN())
	if err != nil {
		zl.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	zl.Info("connected to postgres", zap.String("host", cfg.DB.Host))

	repo := products.NewRepository(pool)
	chk := checker.New(
		fetcher.New(fetcher.Config{Timeout: cfg.FetchTimeout, RatePerSec: cfg.FetchRatePerSec}),
		extractor.New(),
		cfg.DefaultCurrency,
		zl,
	)
	var notifier notify.Notifier = notify.Nop{}
	if cfg.SMTP.Enabled() {
		notifier = notify.NewSMTP(cfg.SMTP)
		zl.Info("price drop mail enabled", zap.String("from", cfg.SMTP.From))
	}
	sched := scheduler.New(repo, chk, notifier, zl, scheduler.Config{
		Schedule: cfg.SweepSchedule,
		Workers:  cfg.SweepWorkers,
	})

	// scheduler runs until ctx is cancelled
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Start(ctx); err != nil {
			zl.Error("scheduler stopped", zap.Error(err))
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	api.NewHandler(repo, sched, zl).Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		zl.Info("server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutdown signal received")

	// stop accepting new requests, allow 15s to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}

	// wait for the scheduler to observe ctx
	wg.Wait()
	zl.Info("graceful shutdown complete")
}
