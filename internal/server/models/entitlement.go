package models

import "time"

// Entitlement records that a run was paid for.
type Entitlement struct {
	RunID       string    `json:"run_id"`
	UserID      string    `json:"user_id"`
	CheckoutID  string    `json:"checkout_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}

// EntitlementDocument is the entitlements.json artifact written into the
// run prefix once payment is confirmed.
type EntitlementDocument struct {
	Download   bool    `json:"download"`
	Paid       bool    `json:"paid"`
	PaidAt     string  `json:"paid_at"`
	CheckoutID string  `json:"checkout_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	UserID     string  `json:"user_id"`
	RunID      string  `json:"run_id"`
}

// Document renders the entitlement as its blob artifact.
func (e *Entitlement) Document() EntitlementDocument {
	return EntitlementDocument{
		Download:   true,
		Paid:       true,
		PaidAt:     e.PaidAt.UTC().Format(time.RFC3339),
		CheckoutID: e.CheckoutID,
		Amount:     float64(e.AmountCents) / 100.0,
		Currency:   e.Currency,
		UserID:     e.UserID,
		RunID:      e.RunID,
	}
}
