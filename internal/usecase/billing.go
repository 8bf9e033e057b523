package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/internal/services/billing"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"
	"YoForex/pkg/queue"
	"YoForex/pkg/util"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// StripeEventType is the job queue message type carrying verified webhook events.
const StripeEventType = "stripe_event"

const mockPrefix = "mock_"

var handledEvents = map[string]bool{
	models.EventCheckoutCompleted:   true,
	models.EventSubscriptionDeleted: true,
	models.EventPaymentFailed:       true,
}

// BillingUsecase manages plans and subscriptions. Without a payment gateway it runs in
// mock mode and activates paid plans immediately.
type BillingUsecase struct {
	users    domrepo.UserRepository
	subs     domrepo.SubscriptionRepository
	usage    domrepo.UsageRepository
	gateway  billing.Gateway
	verifier *billing.WebhookVerifier
	jobs     queue.Publisher
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
}

// NewBillingUsecase wires the usecase. gateway and verifier may be nil.
func NewBillingUsecase(
	users domrepo.UserRepository,
	subs domrepo.SubscriptionRepository,
	usage domrepo.UsageRepository,
	gateway billing.Gateway,
	verifier *billing.WebhookVerifier,
	jobs queue.Publisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *BillingUsecase {
	return &BillingUsecase{
		users:    users,
		subs:     subs,
		usage:    usage,
		gateway:  gateway,
		verifier: verifier,
		jobs:     jobs,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

func (u *BillingUsecase) Plans() []models.Plan { return billing.Plans() }

func (u *BillingUsecase) Info(ctx context.Context, userID string) (*models.BillingInfo, error) {
	su, err := u.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := u.subscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	used, err := u.usage.Count(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}

	info := &models.BillingInfo{
		Subscription: sub,
		Usage: models.Usage{
			AnalysesUsed:  used,
			AnalysesLimit: billing.AnalysisLimit(billing.EffectivePlan(&su.User, sub, now)),
			Period:        util.MonthKey(now),
		},
	}
	if sub != nil && strings.HasPrefix(sub.ExternalID, mockPrefix) {
		info.PaymentMethod = &models.PaymentMethod{
			ID:       "pm_mock",
			Type:     "card",
			Last4:    "4242",
			Brand:    "visa",
			ExpMonth: 12,
			ExpYear:  now.Year() + 3,
		}
	}
	return info, nil
}

func (u *BillingUsecase) Subscribe(ctx context.Context, userID string, req *models.SubscribeRequest) (*models.CheckoutResult, error) {
	plan := models.PlanType(req.Plan)
	if _, ok := billing.PlanByID(plan); !ok || plan == models.PlanFree {
		return nil, xhttp.FieldError("plan", fmt.Sprintf("unknown plan %q", req.Plan))
	}

	su, err := u.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, err := u.subscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := u.now().UTC()

	if u.gateway == nil {
		sub := u.activate(current, userID, plan, mockPrefix+uuid.NewString(), now)
		if err := u.subs.Save(ctx, sub); err != nil {
			return nil, fmt.Errorf("save subscription: %w", err)
		}
		if err := u.setPlan(ctx, su, plan, now); err != nil {
			return nil, err
		}
		u.log.Info("plan activated", applogger.String("user_id", userID), applogger.String("plan", string(plan)))
		return &models.CheckoutResult{Subscription: sub}, nil
	}

	co, err := u.gateway.CreateCheckout(ctx, userID, su.Email, plan)
	if errors.Is(err, billing.ErrUnknownPrice) {
		return nil, xhttp.BadRequestErrorf("Plan %s is not available for purchase", plan).WithError(err)
	}
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	// A running subscription keeps its status until the checkout completes.
	sub := current
	if !sub.Active(now) {
		sub = &models.Subscription{
			ID:                 newSubscriptionID(current),
			UserID:             userID,
			PlanType:           plan,
			Status:             models.StatusPending,
			CurrentPeriodStart: now,
		}
	}
	sub.CheckoutSessionID = co.SessionID
	if err := u.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return &models.CheckoutResult{Subscription: sub, CheckoutURL: co.URL}, nil
}

// Cancel stops renewal; the plan stays usable until the current period ends.
func (u *BillingUsecase) Cancel(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := u.subscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.Active(u.now()) {
		return nil, xhttp.NotFoundError("No active subscription")
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	if u.gateway != nil && sub.ExternalID != "" && !strings.HasPrefix(sub.ExternalID, mockPrefix) {
		if err := u.gateway.CancelSubscription(ctx, sub.ExternalID); err != nil {
			return nil, fmt.Errorf("cancel subscription: %w", err)
		}
	}
	sub.CancelAtPeriodEnd = true
	if err := u.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

// HandleWebhook verifies a payment provider callback and queues it. Events that
// carry no billing change are acknowledged and dropped.
func (u *BillingUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if u.verifier == nil {
		return xhttp.ServiceUnavailableError("Payments are not configured")
	}
	ev, err := u.verifier.Verify(payload, signature)
	if errors.Is(err, billing.ErrInvalidSignature) {
		u.metrics.RecordError("webhook_signature")
		return xhttp.BadRequestError("Invalid webhook signature").WithError(err)
	}
	if err != nil {
		u.metrics.RecordError("webhook_payload")
		return xhttp.BadRequestError("Malformed webhook payload").WithError(err)
	}

	u.metrics.RecordBillingEvent(ev.Type)
	if !handledEvents[ev.Type] {
		u.log.Debug("billing event ignored", applogger.String("type", ev.Type), applogger.String("id", ev.ID))
		return nil
	}
	if err := u.jobs.PublishMessage(ctx, StripeEventType, ev); err != nil {
		return fmt.Errorf("queue billing event %s: %w", ev.ID, err)
	}
	return nil
}

// ApplyEvent updates the subscription a billing event refers to. Events that can
// never succeed are returned as permanent errors so the queue does not retry them.
func (u *BillingUsecase) ApplyEvent(ctx context.Context, ev *models.BillingEvent) error {
	userID, err := u.resolveUser(ctx, ev)
	if err != nil {
		return err
	}
	su, err := u.users.GetByID(ctx, userID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return backoff.Permanent(fmt.Errorf("billing event %s: unknown user %s", ev.ID, userID))
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	current, err := u.subs.Get(ctx, userID)
	if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
		return fmt.Errorf("load subscription: %w", err)
	}
	now := u.now().UTC()

	switch ev.Type {
	case models.EventCheckoutCompleted:
		if _, ok := billing.PlanByID(ev.Plan); !ok || ev.Plan == models.PlanFree {
			return backoff.Permanent(fmt.Errorf("billing event %s: invalid plan %q", ev.ID, ev.Plan))
		}
		sub := u.activate(current, userID, ev.Plan, ev.SubscriptionID, now)
		sub.CheckoutSessionID = ev.SessionID
		if err := u.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		if err := u.setPlan(ctx, su, ev.Plan, now); err != nil {
			return err
		}

	case models.EventSubscriptionDeleted, models.EventPaymentFailed:
		if current == nil {
			return backoff.Permanent(fmt.Errorf("billing event %s: user %s has no subscription", ev.ID, userID))
		}
		if ev.SubscriptionID != "" && ev.SubscriptionID != current.ExternalID {
			u.log.Info("billing event for a replaced subscription ignored",
				applogger.String("id", ev.ID),
				applogger.String("type", ev.Type),
				applogger.String("subscription", ev.SubscriptionID),
				applogger.String("current", current.ExternalID),
			)
			return nil
		}
		current.Status = models.StatusExpired
		if ev.Type == models.EventSubscriptionDeleted {
			current.Status = models.StatusCancelled
			current.CurrentPeriodEnd = now
		}
		if err := u.subs.Save(ctx, current); err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		if ev.Type == models.EventSubscriptionDeleted {
			if err := u.setPlan(ctx, su, models.PlanFree, now); err != nil {
				return err
			}
		}

	default:
		return nil
	}

	u.log.Info("billing event applied",
		applogger.String("id", ev.ID),
		applogger.String("type", ev.Type),
		applogger.String("user_id", userID),
	)
	return nil
}

func (u *BillingUsecase) resolveUser(ctx context.Context, ev *models.BillingEvent) (string, error) {
	if ev.UserID != "" {
		return ev.UserID, nil
	}
	if ev.SubscriptionID == "" {
		return "", backoff.Permanent(fmt.Errorf("billing event %s: no user reference", ev.ID))
	}
	userID, err := u.subs.UserByExternalID(ctx, ev.SubscriptionID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return "", backoff.Permanent(fmt.Errorf("billing event %s: unknown subscription %s", ev.ID, ev.SubscriptionID))
	}
	if err != nil {
		return "", fmt.Errorf("resolve subscription: %w", err)
	}
	return userID, nil
}

// activate starts a one month period on plan, reusing the current subscription id.
func (u *BillingUsecase) activate(current *models.Subscription, userID string, plan models.PlanType, externalID string, now time.Time) *models.Subscription {
	return &models.Subscription{
		ID:                 newSubscriptionID(current),
		UserID:             userID,
		PlanType:           plan,
		Status:             models.StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		ExternalID:         externalID,
	}
}

func (u *BillingUsecase) setPlan(ctx context.Context, su *models.StoredUser, plan models.PlanType, now time.Time) error {
	su.Plan = plan
	su.UpdatedAt = now
	if err := u.users.Update(ctx, su); err != nil {
		return fmt.Errorf("update user plan: %w", err)
	}
	return nil
}

func (u *BillingUsecase) loadUser(ctx context.Context, userID string) (*models.StoredUser, error) {
	su, err := u.users.GetByID(ctx, userID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, xhttp.UnauthorizedError("Could not validate credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return su, nil
}

func (u *BillingUsecase) subscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := u.subs.Get(ctx, userID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}

func newSubscriptionID(current *models.Subscription) string {
	if current != nil && current.ID != "" {
		return current.ID
	}
	return "sub_" + uuid.NewString()
}

// StripeEventJob applies queued billing events.
type StripeEventJob struct {
	billing *BillingUsecase
}

func NewStripeEventJob(b *BillingUsecase) *StripeEventJob {
	return &StripeEventJob{billing: b}
}

func (j *StripeEventJob) Name() string { return "apply-billing-event" }
func (j *StripeEventJob) Type() string { return StripeEventType }

func (j *StripeEventJob) Handle(ctx context.Context, payload json.RawMessage) error {
	ev, err := queue.ParsePayload[models.BillingEvent](payload)
	if err != nil {
		return backoff.Permanent(err)
	}
	return j.billing.ApplyEvent(ctx, ev)
}
