package analysis

import (
	"context"
	"math/rand/v2"
	"sync"

	"YoForex/internal/domain/models"
	"YoForex/internal/domain/service"
)

// Draw ranges of the mock recommender.
const (
	minConfidence      = 0.65
	maxConfidence      = 0.95
	minModelConfidence = 0.70
	maxModelConfidence = 0.95
	minEntry           = 1.0500
	maxEntry           = 1.2000
	minStopDistance    = 0.0020
	maxStopDistance    = 0.0050
	minTargetDistance  = 0.0050
	maxTargetDistance  = 0.0150

	// Probability that a model agrees with the primary recommendation.
	agreement = 0.7
)

// MockRecommender draws every number at random. The entry range is the same for all
// pairs, including yen crosses.
type MockRecommender struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockRecommender seeds a PCG source. A zero seed picks a random one.
func NewMockRecommender(seed uint64) *MockRecommender {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &MockRecommender{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (m *MockRecommender) Recommend(_ context.Context, _ service.MarketContext) (service.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := service.Call{
		Recommendation: m.direction(),
		Confidence:     round(m.uniform(minConfidence, maxConfidence), 2),
		EntryPrice:     round(m.uniform(minEntry, maxEntry), 5),
	}

	stop := m.uniform(minStopDistance, maxStopDistance)
	target := m.uniform(minTargetDistance, maxTargetDistance)
	switch call.Recommendation {
	case models.Buy:
		call.Levels = service.Levels{
			StopLoss:   round(call.EntryPrice-stop, 5),
			TakeProfit: round(call.EntryPrice+target, 5),
		}
	case models.Sell:
		call.Levels = service.Levels{
			StopLoss:   round(call.EntryPrice+stop, 5),
			TakeProfit: round(call.EntryPrice-target, 5),
		}
	}

	call.Breakdown = m.breakdown()
	return call, nil
}

func (m *MockRecommender) Opinion(_ context.Context, _ service.MarketContext, _ string, base models.Recommendation) (service.Opinion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := base
	if m.rng.Float64() >= agreement {
		rec = m.direction()
	}
	return service.Opinion{
		Recommendation: rec,
		Confidence:     round(m.uniform(minModelConfidence, maxModelConfidence), 2),
		Breakdown:      m.breakdown(),
	}, nil
}

func (m *MockRecommender) breakdown() models.ConfidenceBreakdown {
	return models.ConfidenceBreakdown{
		TechnicalAnalysis:   round(m.uniform(0.70, 0.95), 2),
		FundamentalAnalysis: round(m.uniform(0.60, 0.85), 2),
		MarketSentiment:     round(m.uniform(0.65, 0.90), 2),
		RiskAssessment:      round(m.uniform(0.70, 0.90), 2),
	}
}

func (m *MockRecommender) direction() models.Recommendation {
	return models.Directions[m.rng.IntN(len(models.Directions))]
}

func (m *MockRecommender) uniform(lo, hi float64) float64 {
	return lo + m.rng.Float64()*(hi-lo)
}
