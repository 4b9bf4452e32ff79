package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"respirapt-backend/config"
	"respirapt-backend/internal/delivery/http/response"
	"respirapt-backend/internal/domain"
	"respirapt-backend/internal/metrics"
	"respirapt-backend/pkg/apperror"
	"respirapt-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// webhookMaxBody caps the webhook payload, per Stripe's own guidance.
const webhookMaxBody = 65536

type BillingHandler struct {
	billingUC domain.BillingUsecase
	config    *config.Config
}

func NewBillingHandler(public *gin.RouterGroup, protected *gin.RouterGroup, billingUC domain.BillingUsecase, cfg *config.Config) {
	handler := &BillingHandler{billingUC: billingUC, config: cfg}

	// The webhook is authenticated by its signature, not a user token.
	public.POST("/billing/webhook", handler.Webhook)

	billing := protected.Group("/billing")
	{
		billing.POST("/checkout-session", handler.CreateCheckoutSession)
		billing.GET("/verify-session", handler.VerifySession)
	}
}

// CreateCheckoutSession godoc
// @Summary      Start Premium Checkout
// @Description  Create a subscription checkout session for the current user.
// @Tags         billing
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /billing/checkout-session [post]
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))
	email := c.GetString(string(domain.KeyUserEmail))

	sess, err := h.billingUC.CreateCheckoutSession(c.Request.Context(), userID, email, h.config.StripePriceID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Checkout session created", sess)
}

// VerifySession godoc
// @Summary      Verify Checkout Session
// @Description  Check whether a checkout session has been paid.
// @Tags         billing
// @Produce      json
// @Param        session_id  query     string  true  "Checkout session ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /billing/verify-session [get]
func (h *BillingHandler) VerifySession(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.Error(apperror.BadRequest("session_id query parameter is required"))
		return
	}

	status, err := h.billingUC.VerifySession(c.Request.Context(), sessionID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Session status", status)
}

// Webhook receives Stripe event deliveries. Anything that verifies but
// does not concern us is acknowledged with 200 so Stripe stops retrying.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookMaxBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Cannot read payload", nil)
		return
	}

	// The account's pinned API version can differ from the SDK's. The
	// fields we read are stable across versions, so only the signature
	// has to match.
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.config.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logger.Log.Warn("webhook signature verification failed", "error", err)
		response.Error(c, http.StatusBadRequest, "Invalid signature", nil)
		return
	}

	metrics.PaymentEvents.WithLabelValues(string(event.Type)).Inc()

	evt := domain.PaymentEvent{Kind: domain.PaymentEventKind(event.Type)}

	switch evt.Kind {
	case domain.EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			response.Error(c, http.StatusBadRequest, "Malformed event payload", nil)
			return
		}
		evt.UserID = sess.ClientReferenceID
		if evt.UserID == "" {
			evt.UserID = sess.Metadata["userId"]
		}
	case domain.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			response.Error(c, http.StatusBadRequest, "Malformed event payload", nil)
			return
		}
		evt.UserID = sub.Metadata["userId"]
	}

	if err := h.billingUC.HandleEvent(c.Request.Context(), evt); err != nil {
		// Non-2xx makes Stripe redeliver, which is what we want for
		// transient storage failures.
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Event processed", nil)
}
