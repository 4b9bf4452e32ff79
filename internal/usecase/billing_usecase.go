package usecase

import (
	"context"
	"errors"

	"respirapt-backend/internal/domain"
	"respirapt-backend/pkg/logger"
)

type billingUsecase struct {
	gateway  domain.PaymentGateway
	userRepo domain.UserRepository
}

func NewBillingUsecase(gateway domain.PaymentGateway, userRepo domain.UserRepository) domain.BillingUsecase {
	return &billingUsecase{gateway: gateway, userRepo: userRepo}
}

func (u *billingUsecase) CreateCheckoutSession(ctx context.Context, userID, email, priceID string) (*domain.CheckoutSession, error) {
	return u.gateway.CreateCheckoutSession(ctx, userID, email, priceID)
}

func (u *billingUsecase) VerifySession(ctx context.Context, sessionID string) (*domain.CheckoutStatus, error) {
	return u.gateway.RetrieveSession(ctx, sessionID)
}

// HandleEvent applies a webhook delivery. Always returning nil for events
// we cannot act on keeps the provider from retrying deliveries that will
// never succeed.
func (u *billingUsecase) HandleEvent(ctx context.Context, evt domain.PaymentEvent) error {
	var premium bool
	switch evt.Kind {
	case domain.EventCheckoutCompleted:
		premium = true
	case domain.EventSubscriptionDeleted:
		premium = false
	default:
		return nil
	}

	if evt.UserID == "" {
		logger.Log.Warn("payment event without user reference", "kind", evt.Kind)
		return nil
	}

	err := u.userRepo.SetPremium(ctx, evt.UserID, premium)
	if errors.Is(err, domain.ErrProfileNotFound) {
		logger.Log.Warn("payment event for unknown user", "kind", evt.Kind, "user_id", evt.UserID)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Log.Info("premium flag updated", "user_id", evt.UserID, "premium", premium)
	return nil
}
