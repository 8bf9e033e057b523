package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"YoForex/internal/domain/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
	ErrUnknownPrice     = errors.New("billing: no price configured for plan")
)

// Checkout is a created payment session.
type Checkout struct {
	SessionID string
	URL       string
}

// Gateway is the payment provider used for paid plans.
type Gateway interface {
	CreateCheckout(ctx context.Context, userID, email string, plan models.PlanType) (*Checkout, error)
	CancelSubscription(ctx context.Context, externalID string) error
}

type StripeConfig struct {
	APIKey     string
	SuccessURL string
	CancelURL  string
	PriceIDs   map[string]string
}

// StripeGateway creates subscription checkout sessions on Stripe.
type StripeGateway struct {
	api *client.API
	cfg StripeConfig
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)
	return &StripeGateway{api: api, cfg: cfg}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, userID, email string, plan models.PlanType) (*Checkout, error) {
	price := g.cfg.PriceIDs[string(plan)]
	if price == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrice, plan)
	}

	meta := map[string]string{"user_id": userID, "plan": string(plan)}
	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{Metadata: meta},
		Metadata:         meta,
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, externalID string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	if _, err := g.api.Subscriptions.Update(externalID, params); err != nil {
		return fmt.Errorf("stripe cancel subscription %s: %w", externalID, err)
	}
	return nil
}

// WebhookVerifier checks Stripe-Signature headers and extracts billing events.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify authenticates payload and maps it onto a BillingEvent. Event types that
// carry no billing change come back with only ID and Type set.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (*models.BillingEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return toBillingEvent(&ev)
}

func toBillingEvent(ev *stripe.Event) (*models.BillingEvent, error) {
	out := &models.BillingEvent{ID: ev.ID, Type: string(ev.Type)}

	switch out.Type {
	case models.EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.SessionID = sess.ID
		out.UserID = sess.Metadata["user_id"]
		if out.UserID == "" {
			out.UserID = sess.ClientReferenceID
		}
		out.Plan = models.PlanType(sess.Metadata["plan"])
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}

	case models.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.SubscriptionID = sub.ID
		out.UserID = sub.Metadata["user_id"]
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}

	case models.EventPaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
	}
	return out, nil
}
