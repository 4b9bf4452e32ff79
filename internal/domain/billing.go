package domain

import "context"

// PaymentEventKind identifies the webhook events the app reacts to.
// Every other kind is acknowledged and ignored.
type PaymentEventKind string

const (
	EventCheckoutCompleted   PaymentEventKind = "checkout.session.completed"
	EventSubscriptionDeleted PaymentEventKind = "customer.subscription.deleted"
)

// PaymentEvent is the vendor-neutral form of a webhook delivery.
type PaymentEvent struct {
	Kind   PaymentEventKind
	UserID string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type CheckoutStatus struct {
	ID     string `json:"id"`
	Paid   bool   `json:"paid"`
	Status string `json:"status"`
}

// PaymentGateway abstracts the payment vendor's SDK.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, userID, email, priceID string) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutStatus, error)
}

type BillingUsecase interface {
	CreateCheckoutSession(ctx context.Context, userID, email, priceID string) (*CheckoutSession, error)
	VerifySession(ctx context.Context, sessionID string) (*CheckoutStatus, error)
	// HandleEvent applies a webhook event. Flag writes are idempotent, so
	// duplicate deliveries are harmless.
	HandleEvent(ctx context.Context, evt PaymentEvent) error
}
