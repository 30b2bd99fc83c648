// Package payments creates and inspects hosted checkout sessions for
// backup runs.
package payments

import (
	"context"

	"github.com/dmitrijs2005/liveon/internal/server/config"
)

const (
	MetadataUserID = "userId"
	MetadataRunID  = "runId"

	StatusPaid = "paid"
)

// Session is the processor-neutral view of a checkout session.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	UserID        string
	RunID         string
}

// Paid reports whether the session collected payment.
func (s *Session) Paid() bool {
	return s.PaymentStatus == StatusPaid
}

// Processor is a payment provider behind the checkout boundary.
type Processor interface {
	CreateSession(ctx context.Context, userID, runID string) (string, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// Product describes the single item sold.
type Product struct {
	Name       string
	PriceCents int64
	Currency   string
	BaseURL    string
}

func ProductFromConfig(cfg *config.Config) Product {
	return Product{
		Name:       cfg.StripeProduct,
		PriceCents: cfg.StripePriceCents,
		Currency:   cfg.StripeCurrency,
		BaseURL:    cfg.BaseURL,
	}
}

func (p Product) SuccessURL() string {
	return p.BaseURL + "?payment_success=true&session_id={CHECKOUT_SESSION_ID}"
}

func (p Product) CancelURL() string {
	return p.BaseURL + "?payment_canceled=true"
}
