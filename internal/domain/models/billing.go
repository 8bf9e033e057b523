package models

import "time"

type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanBasic      PlanType = "basic"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

type PaymentStatus string

const (
	StatusActive    PaymentStatus = "active"
	StatusExpired   PaymentStatus = "expired"
	StatusCancelled PaymentStatus = "cancelled"
	StatusPending   PaymentStatus = "pending"
)

// Plan is a billing tier. MonthlyAnalyses of 0 means unlimited.
type Plan struct {
	ID              PlanType `json:"id"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	Currency        string   `json:"currency"`
	Interval        string   `json:"interval"`
	Features        []string `json:"features"`
	IsPopular       bool     `json:"is_popular"`
	MonthlyAnalyses int      `json:"monthly_analyses"`
}

type Subscription struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	PlanType           PlanType      `json:"plan_type"`
	Status             PaymentStatus `json:"status"`
	CurrentPeriodStart time.Time     `json:"current_period_start"`
	CurrentPeriodEnd   time.Time     `json:"current_period_end"`
	CancelAtPeriodEnd  bool          `json:"cancel_at_period_end"`
	ExternalID         string        `json:"external_id,omitempty"`
	CheckoutSessionID  string        `json:"checkout_session_id,omitempty"`
}

// Active reports whether the subscription grants its plan at t.
func (s *Subscription) Active(t time.Time) bool {
	return s != nil && s.Status == StatusActive && t.Before(s.CurrentPeriodEnd)
}

type PaymentMethod struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Last4    string `json:"last4,omitempty"`
	Brand    string `json:"brand,omitempty"`
	ExpMonth int    `json:"exp_month,omitempty"`
	ExpYear  int    `json:"exp_year,omitempty"`
}

// Usage is the caller's analysis consumption for one calendar month.
type Usage struct {
	AnalysesUsed  int    `json:"analyses_used"`
	AnalysesLimit int    `json:"analyses_limit"`
	Period        string `json:"period"`
}

type BillingInfo struct {
	Subscription  *Subscription  `json:"subscription"`
	PaymentMethod *PaymentMethod `json:"payment_method"`
	Usage         Usage          `json:"usage"`
}

// CheckoutResult is returned by subscribe. CheckoutURL is empty when the plan was
// activated without a payment provider.
type CheckoutResult struct {
	Subscription *Subscription `json:"subscription"`
	CheckoutURL  string        `json:"checkout_url,omitempty"`
}

// BillingEvent is a verified payment provider event queued for processing.
type BillingEvent struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	UserID         string   `json:"user_id,omitempty"`
	Plan           PlanType `json:"plan,omitempty"`
	SubscriptionID string   `json:"subscription_id,omitempty"`
	CustomerID     string   `json:"customer_id,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
}

// Billing event types handled by the worker.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentFailed       = "invoice.payment_failed"
)
