package billing

import (
	"testing"
	"time"

	"YoForex/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test"

func sign(t *testing.T, payload string) (string, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return string(sp.Payload), sp.Header
}

func TestPlans(t *testing.T) {
	ps := Plans()
	require.Len(t, ps, 4)
	assert.Equal(t, models.PlanFree, ps[0].ID)

	pro, ok := PlanByID(models.PlanPro)
	require.True(t, ok)
	assert.True(t, pro.IsPopular)
	assert.Equal(t, "USD", pro.Currency)

	assert.Equal(t, 10, AnalysisLimit(models.PlanFree))
	assert.Equal(t, 0, AnalysisLimit(models.PlanEnterprise))
	assert.Equal(t, 10, AnalysisLimit("legacy"))

	_, ok = PlanByID("gold")
	assert.False(t, ok)
}

func TestVerifyCheckoutCompleted(t *testing.T) {
	body, header := sign(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"client_reference_id": "user-1",
			"customer": "cus_1",
			"subscription": "sub_1",
			"metadata": {"user_id": "user-1", "plan": "pro"}
		}}
	}`)

	ev, err := NewWebhookVerifier(testSecret).Verify([]byte(body), header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, models.EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, models.PlanPro, ev.Plan)
	assert.Equal(t, "sub_1", ev.SubscriptionID)
	assert.Equal(t, "cus_1", ev.CustomerID)
	assert.Equal(t, "cs_1", ev.SessionID)
}

func TestVerifySubscriptionDeleted(t *testing.T) {
	body, header := sign(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_9", "object": "subscription", "customer": "cus_9", "metadata": {"user_id": "user-9"}}}
	}`)

	ev, err := NewWebhookVerifier(testSecret).Verify([]byte(body), header)
	require.NoError(t, err)
	assert.Equal(t, "sub_9", ev.SubscriptionID)
	assert.Equal(t, "user-9", ev.UserID)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	body, _ := sign(t, `{"id": "evt_3", "object": "event", "type": "invoice.payment_failed", "data": {"object": {}}}`)

	_, err := NewWebhookVerifier(testSecret).Verify([]byte(body), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, header := sign(t, `{"id": "evt_4"}`)
	_, err = NewWebhookVerifier(testSecret).Verify([]byte(body), header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCreateCheckoutNeedsPrice(t *testing.T) {
	g := NewStripeGateway(StripeConfig{APIKey: "sk_test_x", PriceIDs: map[string]string{"pro": "price_1"}})

	_, err := g.CreateCheckout(t.Context(), "user-1", "a@b.io", models.PlanBasic)
	assert.ErrorIs(t, err, ErrUnknownPrice)
}

func TestEffectivePlan(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	pro := &models.User{Plan: models.PlanPro}
	active := &models.Subscription{Status: models.StatusActive, CurrentPeriodEnd: now.AddDate(0, 0, 3)}
	lapsed := &models.Subscription{Status: models.StatusActive, CurrentPeriodEnd: now.AddDate(0, 0, -1)}
	expired := &models.Subscription{Status: models.StatusExpired, CurrentPeriodEnd: now.AddDate(0, 0, 3)}

	assert.Equal(t, models.PlanPro, EffectivePlan(pro, active, now))
	assert.Equal(t, models.PlanPro, EffectivePlan(pro, nil, now), "plan granted without a subscription record")
	assert.Equal(t, models.PlanFree, EffectivePlan(pro, lapsed, now))
	assert.Equal(t, models.PlanFree, EffectivePlan(pro, expired, now))
	assert.Equal(t, models.PlanFree, EffectivePlan(&models.User{}, active, now))
	assert.Equal(t, models.PlanFree, EffectivePlan(nil, nil, now))
}
