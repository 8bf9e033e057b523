package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"YoForex/internal/domain/models"
	"YoForex/internal/services/billing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const webhookSecret = "whsec_usecase"

type fakeGateway struct {
	checkouts []models.PlanType
	cancelled []string
}

func (g *fakeGateway) CreateCheckout(_ context.Context, _, _ string, plan models.PlanType) (*billing.Checkout, error) {
	if plan == models.PlanEnterprise {
		return nil, billing.ErrUnknownPrice
	}
	g.checkouts = append(g.checkouts, plan)
	return &billing.Checkout{SessionID: "cs_test", URL: "https://checkout.stripe.test/cs_test"}, nil
}

func (g *fakeGateway) CancelSubscription(_ context.Context, externalID string) error {
	g.cancelled = append(g.cancelled, externalID)
	return nil
}

type capturedJob struct {
	msgType string
	payload []byte
}

type capturingJobs struct {
	jobs []capturedJob
}

func (c *capturingJobs) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.jobs = append(c.jobs, capturedJob{msgType: msgType, payload: b})
	return nil
}

func newBillingUsecase(f *fixture, gw billing.Gateway, jobs *capturingJobs) *BillingUsecase {
	return NewBillingUsecase(f.users, f.subs, f.usage, gw, billing.NewWebhookVerifier(webhookSecret), jobs, f.metrics, f.log)
}

func TestSubscribeMockModeActivatesImmediately(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	uc := newBillingUsecase(f, nil, &capturingJobs{})
	ctx := context.Background()

	res, err := uc.Subscribe(ctx, "u1", &models.SubscribeRequest{Plan: "pro"})
	require.NoError(t, err)
	assert.Empty(t, res.CheckoutURL)
	assert.Equal(t, models.StatusActive, res.Subscription.Status)
	assert.True(t, res.Subscription.CurrentPeriodEnd.After(time.Now().AddDate(0, 0, 27)))

	info, err := uc.Info(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, info.Subscription.PlanType)
	assert.Equal(t, 1000, info.Usage.AnalysesLimit)
	require.NotNil(t, info.PaymentMethod)
	assert.Equal(t, "4242", info.PaymentMethod.Last4)

	su, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, su.Plan)

	sub, err := uc.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, models.StatusActive, sub.Status)
}

func TestInfoWithoutSubscription(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	uc := newBillingUsecase(f, nil, &capturingJobs{})

	info, err := uc.Info(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, info.Subscription)
	assert.Nil(t, info.PaymentMethod)
	assert.Equal(t, 10, info.Usage.AnalysesLimit)
	assert.Zero(t, info.Usage.AnalysesUsed)

	_, err = uc.Cancel(context.Background(), "u1")
	requireAppError(t, err, http.StatusNotFound, "ERR_NOT_FOUND")
}

func TestSubscribeWithGatewayIsPending(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	gw := &fakeGateway{}
	uc := newBillingUsecase(f, gw, &capturingJobs{})
	ctx := context.Background()

	res, err := uc.Subscribe(ctx, "u1", &models.SubscribeRequest{Plan: "basic"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_test", res.CheckoutURL)
	assert.Equal(t, models.StatusPending, res.Subscription.Status)
	assert.Equal(t, "cs_test", res.Subscription.CheckoutSessionID)

	su, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, su.Plan, "plan changes only after checkout completes")

	_, err = uc.Subscribe(ctx, "u1", &models.SubscribeRequest{Plan: "enterprise"})
	requireAppError(t, err, http.StatusBadRequest, "ERR_BAD_REQUEST")
}

func TestWebhookQueuesAndAppliesCheckout(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	jobs := &capturingJobs{}
	gw := &fakeGateway{}
	uc := newBillingUsecase(f, gw, jobs)
	ctx := context.Background()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed",
			"data":{"object":{"id":"cs_1","object":"checkout.session","subscription":"sub_ext_1",
			"metadata":{"user_id":"u1","plan":"pro"}}}}`),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	require.NoError(t, uc.HandleWebhook(ctx, signed.Payload, signed.Header))
	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, StripeEventType, jobs.jobs[0].msgType)

	require.NoError(t, NewStripeEventJob(uc).Handle(ctx, jobs.jobs[0].payload))

	su, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, su.Plan)

	uid, err := f.subs.UserByExternalID(ctx, "sub_ext_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	sub, err := uc.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, []string{"sub_ext_1"}, gw.cancelled)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	jobs := &capturingJobs{}
	uc := newBillingUsecase(f, nil, jobs)

	err := uc.HandleWebhook(context.Background(), []byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	requireAppError(t, err, http.StatusBadRequest, "ERR_BAD_REQUEST")
	assert.Empty(t, jobs.jobs)
}

func TestWebhookRejectsUndecodablePayload(t *testing.T) {
	f := newFixture(t)
	jobs := &capturingJobs{}
	uc := newBillingUsecase(f, nil, jobs)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed",
			"data":{"object":{"id":123,"object":"checkout.session"}}}`),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	err := uc.HandleWebhook(context.Background(), signed.Payload, signed.Header)
	ae := requireAppError(t, err, http.StatusBadRequest, "ERR_BAD_REQUEST")
	assert.Equal(t, "Malformed webhook payload", ae.Message)
	assert.Empty(t, jobs.jobs)
}

func TestWebhookIgnoresUnhandledTypes(t *testing.T) {
	f := newFixture(t)
	jobs := &capturingJobs{}
	uc := newBillingUsecase(f, nil, jobs)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{}}}`),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	require.NoError(t, uc.HandleWebhook(context.Background(), signed.Payload, signed.Header))
	assert.Empty(t, jobs.jobs)
}

func TestApplySubscriptionDeletedDowngrades(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	uc := newBillingUsecase(f, nil, &capturingJobs{})
	ctx := context.Background()

	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_1", Type: models.EventCheckoutCompleted, UserID: "u1", Plan: models.PlanBasic, SubscriptionID: "sub_ext_9",
	}))
	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_2", Type: models.EventSubscriptionDeleted, SubscriptionID: "sub_ext_9",
	}))

	su, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, su.Plan)

	sub, err := f.subs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, sub.Status)
}

func TestApplyIgnoresEventsForReplacedSubscription(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	uc := newBillingUsecase(f, nil, &capturingJobs{})
	ctx := context.Background()

	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_1", Type: models.EventCheckoutCompleted, UserID: "u1", Plan: models.PlanBasic, SubscriptionID: "sub_old",
	}))
	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_2", Type: models.EventCheckoutCompleted, UserID: "u1", Plan: models.PlanPro, SubscriptionID: "sub_new",
	}))
	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_3", Type: models.EventSubscriptionDeleted, SubscriptionID: "sub_old",
	}))
	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_4", Type: models.EventPaymentFailed, SubscriptionID: "sub_old",
	}))

	sub, err := f.subs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sub.Status)
	assert.Equal(t, models.PlanPro, sub.PlanType)
	assert.Equal(t, "sub_new", sub.ExternalID)

	su, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, su.Plan)
}

func TestApplyPaymentFailedExpires(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	uc := newBillingUsecase(f, nil, &capturingJobs{})
	ctx := context.Background()

	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_1", Type: models.EventCheckoutCompleted, UserID: "u1", Plan: models.PlanPro, SubscriptionID: "sub_ext_3",
	}))
	require.NoError(t, uc.ApplyEvent(ctx, &models.BillingEvent{
		ID: "evt_2", Type: models.EventPaymentFailed, SubscriptionID: "sub_ext_3",
	}))

	info, err := uc.Info(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, info.Subscription.Status)
	assert.Equal(t, 10, info.Usage.AnalysesLimit, "expired subscription falls back to the free allowance")
}

func TestApplyEventPermanentFailures(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.PlanFree)
	uc := newBillingUsecase(f, nil, &capturingJobs{})
	ctx := context.Background()

	var perm *backoff.PermanentError
	err := uc.ApplyEvent(ctx, &models.BillingEvent{ID: "e1", Type: models.EventPaymentFailed, SubscriptionID: "sub_unknown"})
	assert.True(t, errors.As(err, &perm))

	err = uc.ApplyEvent(ctx, &models.BillingEvent{ID: "e2", Type: models.EventCheckoutCompleted, UserID: "u1", Plan: "gold"})
	assert.True(t, errors.As(err, &perm))

	err = uc.ApplyEvent(ctx, &models.BillingEvent{ID: "e3", Type: models.EventCheckoutCompleted, UserID: "ghost", Plan: models.PlanPro})
	assert.True(t, errors.As(err, &perm))

	err = NewStripeEventJob(uc).Handle(ctx, []byte(`not json`))
	assert.True(t, errors.As(err, &perm))
}
