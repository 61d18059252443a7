// Package checker implements the price-check service: fetch a product page,
// extract a price, compare it to the stored one. It never persists anything;
// that is the caller's job, which keeps the service testable without a
// database.
package checker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ytopcu/pricewatch/internal/extractor"
	"github.com/ytopcu/pricewatch/internal/products"
)

// PageFetcher retrieves raw markup for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageExtractor turns markup into an extraction result.
type PageExtractor interface {
	Extract(html, url string) extractor.Result
}

// Outcome is the result of one check. Updated is false when extraction found
// nothing usable (price <= 0); the caller must not overwrite the stored price
// or append a history sample in that case. DroppedFrom is set only on a
// strict price decrease.
type Outcome struct {
	Updated      bool
	Title        string
	NewPrice     decimal.Decimal
	NewCurrency  string
	RawPriceText string
	DroppedFrom  *decimal.Decimal
}

type Checker struct {
	fetcher         PageFetcher
	extractor       PageExtractor
	defaultCurrency string
	log             *zap.Logger
}

func New(f PageFetcher, e PageExtractor, defaultCurrency string, log *zap.Logger) *Checker {
	return &Checker{
		fetcher:         f,
		extractor:       e,
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

// Check fetches and extracts the product's page and compares the result
// against the stored price. A fetch failure is returned as-is; an extraction
// that finds no usable price is not an error, just a no-op outcome.
func (c *Checker) Check(ctx context.Context, p *products.Product) (Outcome, error) {
	html, err := c.fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return Outcome{}, fmt.Errorf("check product %d: %w", p.ID, err)
	}

	res := c.extractor.Extract(html, p.URL)
	if !res.Success {
		return Outcome{}, fmt.Errorf("check product %d: parse markup: %s", p.ID, res.Error)
	}
	if !res.Price.IsPositive() {
		c.log.Debug("no usable price found",
			zap.Int("product_id", p.ID),
			zap.String("url", p.URL),
			zap.String("raw_price", res.RawPriceText))
		return Outcome{Title: res.Title}, nil
	}

	cur := res.Currency
	if cur == "" {
		cur = c.defaultCurrency
	}
	out := Outcome{
		Updated:      true,
		Title:        res.Title,
		NewPrice:     res.Price,
		NewCurrency:  cur,
		RawPriceText: res.RawPriceText,
	}
	if p.CurrentPrice != nil && res.Price.LessThan(*p.CurrentPrice) {
		prev := *p.CurrentPrice
		out.DroppedFrom = &prev
	}
	return out, nil
}
