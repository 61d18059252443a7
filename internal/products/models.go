// Package products holds the tracked-product model and its postgres
// repository.
package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a tracked product. CurrentPrice is always the price of the most
// recent successful check (the latest history sample); it is nil until the
// first successful extraction. PreviousPrice is the sample before that and
// drives the displayed price change.
type Product struct {
	ID            int              `json:"id"`
	Name          string           `json:"name"`
	URL           string           `json:"url"`
	Currency      string           `json:"currency,omitempty"`
	NotifyEmail   string           `json:"notify_email,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	PreviousPrice *decimal.Decimal `json:"previous_price,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// PriceSample is one observed price.
type PriceSample struct {
	ID         int             `json:"id"`
	ProductID  int             `json:"product_id"`
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"recorded_at"`
}
