package payments

import (
	"context"
	"fmt"

	"respirapt-backend/internal/domain"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
)

// StripeGateway implements domain.PaymentGateway on the Stripe SDK.
type StripeGateway struct {
	frontendURL string
}

func NewStripeGateway(secretKey, frontendURL string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{frontendURL: frontendURL}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID, email, priceID string) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.frontendURL + "/premium/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.frontendURL + "/premium"),
		// Copy the user reference onto the subscription so cancellation
		// events can be traced back without a lookup table.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": userID},
		},
	}
	params.Context = ctx
	params.AddMetadata("userId", userID)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &domain.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*domain.CheckoutStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	return &domain.CheckoutStatus{
		ID:     sess.ID,
		Paid:   sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Status: string(sess.Status),
	}, nil
}
