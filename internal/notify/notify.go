// Package notify delivers price-drop notifications. Delivery is best-effort:
// the scheduler logs failures and moves on, it never retries or rolls back a
// price update because an email bounced.
package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"github.com/ytopcu/pricewatch/internal/config"
)

// Notifier sends a price-drop alert to a single recipient.
type Notifier interface {
	SendPriceDrop(ctx context.Context, to, title string, oldPrice, newPrice decimal.Decimal, currency, productURL string) error
}

// SMTP sends alerts over plain SMTP.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (n *SMTP) SendPriceDrop(ctx context.Context, to, title string, oldPrice, newPrice decimal.Decimal, currency, productURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Price drop: %s", title))
	m.SetBody("text/plain", fmt.Sprintf(
		"The price of %s dropped from %s%s to %s%s.\n\n%s\n",
		title, currency, oldPrice.String(), currency, newPrice.String(), productURL))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send price drop mail to %s: %w", to, err)
	}
	return nil
}

// Nop discards notifications. Used when SMTP is not configured.
type Nop struct{}

func (Nop) SendPriceDrop(context.Context, string, string, decimal.Decimal, decimal.Decimal, string, string) error {
	return nil
}
