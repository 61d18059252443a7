// Package scheduler drives the price-check service over every tracked
// product, on a cron cadence or on explicit trigger.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ytopcu/pricewatch/internal/checker"
	"github.com/ytopcu/pricewatch/internal/notify"
	"github.com/ytopcu/pricewatch/internal/products"
)

// ProductStore is the persistence collaborator the scheduler needs: list the
// tracked products and record successful checks.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]products.Product, error)
	RecordSnapshot(ctx context.Context, id int, title string, price decimal.Decimal, currency string, at time.Time) error
}

type Config struct {
	// Schedule is a cron spec, e.g. "@every 6h".
	Schedule string
	Workers  int
}

// SweepResult summarises one full pass over the tracked products.
type SweepResult struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
}

type Scheduler struct {
	store    ProductStore
	checker  *checker.Checker
	notifier notify.Notifier
	log      *zap.Logger
	inflight *checker.InFlight

	schedule string
	workers  int
}

func New(store ProductStore, chk *checker.Checker, notifier notify.Notifier, log *zap.Logger, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 6h"
	}
	return &Scheduler{
		store:    store,
		checker:  chk,
		notifier: notifier,
		log:      log,
		inflight: checker.NewInFlight(),
		schedule: cfg.Schedule,
		workers:  cfg.Workers,
	}
}

// Start runs one sweep immediately, then sweeps on the configured cadence
// until ctx is cancelled. It blocks.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunSweep(ctx); err != nil {
			s.log.Error("scheduled sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.log.Info("scheduler started", zap.String("schedule", s.schedule), zap.Int("workers", s.workers))
	if _, err := s.RunSweep(ctx); err != nil {
		s.log.Error("initial sweep failed", zap.Error(err))
	}

	c.Start()
	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// RunSweep checks every tracked product once. Products are processed by a
// bounded worker pool; one product's failure is logged and skipped, never
// fatal to the sweep. The error return covers only the initial product
// listing.
func (s *Scheduler) RunSweep(ctx context.Context) (SweepResult, error) {
	runID := uuid.NewString()
	log := s.log.With(zap.String("run_id", runID))

	list, err := s.store.ListProducts(ctx)
	if err != nil {
		return SweepResult{RunID: runID}, fmt.Errorf("list products: %w", err)
	}

	var updated, failed atomic.Int64
	jobs := make(chan products.Product)
	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				out, err := s.CheckAndPersist(ctx, &p)
				switch {
				case err != nil:
					failed.Add(1)
					log.Warn("price check failed",
						zap.Int("product_id", p.ID),
						zap.String("url", p.URL),
						zap.Error(err))
				case out.Updated:
					updated.Add(1)
					log.Info("price recorded",
						zap.Int("product_id", p.ID),
						zap.String("price", out.NewPrice.String()),
						zap.Bool("dropped", out.DroppedFrom != nil))
				default:
					log.Info("no price found, stored state untouched", zap.Int("product_id", p.ID))
				}
			}
		}()
	}

feed:
	for _, p := range list {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p:
		}
	}
	close(jobs)
	wg.Wait()

	res := SweepResult{
		RunID:   runID,
		Total:   len(list),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}
	log.Info("sweep finished",
		zap.Int("total", res.Total),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed))
	return res, nil
}

// CheckAndPersist is the single write path for both scheduled and manual
// checks. It holds the product's in-flight token across check, persistence
// and notification, so a drop fires at most one notification and concurrent
// triggers cannot interleave history writes.
func (s *Scheduler) CheckAndPersist(ctx context.Context, p *products.Product) (checker.Outcome, error) {
	if !s.inflight.TryAcquire(p.ID) {
		return checker.Outcome{}, checker.ErrCheckInFlight
	}
	defer s.inflight.Release(p.ID)

	out, err := s.checker.Check(ctx, p)
	if err != nil {
		return checker.Outcome{}, err
	}
	if !out.Updated {
		return out, nil
	}

	if err := s.store.RecordSnapshot(ctx, p.ID, out.Title, out.NewPrice, out.NewCurrency, time.Now().UTC()); err != nil {
		return checker.Outcome{}, fmt.Errorf("persist price for product %d: %w", p.ID, err)
	}

	if out.DroppedFrom != nil && p.NotifyEmail != "" {
		title := out.Title
		if title == "" {
			title = p.Name
		}
		if nerr := s.notifier.SendPriceDrop(ctx, p.NotifyEmail, title, *out.DroppedFrom, out.NewPrice, out.NewCurrency, p.URL); nerr != nil {
			// the price did change regardless of delivery, so never escalate
			s.log.Warn("price drop notification failed",
				zap.Int("product_id", p.ID),
				zap.String("to", p.NotifyEmail),
				zap.Error(nerr))
		}
	}
	return out, nil
}
