package repository

import (
	"context"
	"errors"
	"time"

	"YoForex/internal/domain/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type UserRepository interface {
	// Create stores a new user. It returns ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u *models.StoredUser) error
	GetByID(ctx context.Context, id string) (*models.StoredUser, error)
	GetByEmail(ctx context.Context, email string) (*models.StoredUser, error)
	Update(ctx context.Context, u *models.StoredUser) error
}

type AnalysisRepository interface {
	Save(ctx context.Context, a *models.AnalysisResult) error
	// Get returns ErrNotFound for analyses owned by another user.
	Get(ctx context.Context, userID, id string) (*models.AnalysisResult, error)
	// List returns the user's analyses newest first plus the total count.
	List(ctx context.Context, userID string, limit, offset int) ([]*models.AnalysisResult, int64, error)
}

type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	Save(ctx context.Context, s *models.UserSettings) error
}

type SubscriptionRepository interface {
	Get(ctx context.Context, userID string) (*models.Subscription, error)
	Save(ctx context.Context, s *models.Subscription) error
	// UserByExternalID resolves a payment provider subscription id to its user.
	UserByExternalID(ctx context.Context, externalID string) (string, error)
}

type UsageRepository interface {
	Increment(ctx context.Context, userID string, at time.Time) (int, error)
	Count(ctx context.Context, userID string, at time.Time) (int, error)
}

// EventPublisher emits analysis events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.AnalysisEvent) error
	Close() error
}

// Archive is long-term, append-only analysis event storage.
type Archive interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, events []*models.AnalysisEvent) error
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordAnalysis(kind, recommendation string, confidence float64)
	RecordConsensus(label string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordEvent(sink string, err error)
	RecordBillingEvent(eventType string)
	StreamClients(delta int)
	RecordRateLimited(route string)
}
