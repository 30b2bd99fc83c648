package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// sessionAPI is the subset of the Stripe checkout session client used here.
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Stripe is a Processor backed by Stripe Checkout.
type Stripe struct {
	sessions sessionAPI
	product  Product
}

func NewStripe(secretKey string, product Product) *Stripe {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Stripe{sessions: sc.CheckoutSessions, product: product}
}

// CreateSession opens a one-item card checkout for runID and returns the
// hosted page URL.
func (s *Stripe) CreateSession(ctx context.Context, userID, runID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.product.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(s.product.Name),
						Description: stripe.String("Backup ID: " + runID),
					},
					UnitAmount: stripe.Int64(s.product.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.product.SuccessURL()),
		CancelURL:  stripe.String(s.product.CancelURL()),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, userID)
	params.AddMetadata(MetadataRunID, runID)

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create session: %w", err)
	}

	return sess.URL, nil
}

// GetSession retrieves a checkout session by id.
func (s *Stripe) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get session: %w", err)
	}

	return &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		UserID:        sess.Metadata[MetadataUserID],
		RunID:         sess.Metadata[MetadataRunID],
	}, nil
}
