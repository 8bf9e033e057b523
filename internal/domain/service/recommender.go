package service

import (
	"context"

	"YoForex/internal/domain/models"
)

// MarketContext is what a recommender is asked about.
type MarketContext struct {
	Pair      string
	Timeframe string
	Strategy  string
}

// Levels are the price levels of a directional call. Both are zero for HOLD.
type Levels struct {
	StopLoss   float64
	TakeProfit float64
}

// Call is a primary recommendation with its entry and levels.
type Call struct {
	Recommendation models.Recommendation
	Confidence     float64
	EntryPrice     float64
	Levels         Levels
	Breakdown      models.ConfidenceBreakdown
}

// Opinion is one model's view, given the primary recommendation.
type Opinion struct {
	Recommendation models.Recommendation
	Confidence     float64
	Breakdown      models.ConfidenceBreakdown
}

// Recommender produces recommendations for a market context. Response shaping and
// consensus are done by the caller, so implementations only decide the numbers.
type Recommender interface {
	Recommend(ctx context.Context, mc MarketContext) (Call, error)
	Opinion(ctx context.Context, mc MarketContext, model string, base models.Recommendation) (Opinion, error)
}
