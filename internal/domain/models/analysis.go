package models

import "time"

// Recommendation is a trade direction or, for consensus, MIXED.
type Recommendation string

const (
	Buy   Recommendation = "BUY"
	Sell  Recommendation = "SELL"
	Hold  Recommendation = "HOLD"
	Mixed Recommendation = "MIXED"
)

// Directions are the values a single model may recommend.
var Directions = []Recommendation{Buy, Sell, Hold}

// ManualStrategy is the strategy label of analyses built from user supplied input.
const ManualStrategy = "Manual Analysis"

// KeyLevels holds two support and two resistance prices around the entry.
type KeyLevels struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

type RiskMatrix struct {
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	PositionSize    string  `json:"position_size"`
}

type Scenario struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Description string  `json:"description"`
	Impact      string  `json:"impact"`
}

// ConfidenceBreakdown scores the four analysis dimensions independently.
type ConfidenceBreakdown struct {
	TechnicalAnalysis   float64 `json:"technical_analysis"`
	FundamentalAnalysis float64 `json:"fundamental_analysis"`
	MarketSentiment     float64 `json:"market_sentiment"`
	RiskAssessment      float64 `json:"risk_assessment"`
}

type AIModelResult struct {
	Model               string               `json:"model"`
	Recommendation      Recommendation       `json:"recommendation"`
	Confidence          float64              `json:"confidence"`
	Reasoning           string               `json:"reasoning"`
	ConfidenceBreakdown *ConfidenceBreakdown `json:"confidence_breakdown"`
}

// MultiModelResponse aggregates per-model results. Consensus is BUY, SELL or MIXED.
type MultiModelResponse struct {
	Consensus           Recommendation  `json:"consensus"`
	AvgConfidence       float64         `json:"avg_confidence"`
	Models              []AIModelResult `json:"models"`
	FinalRecommendation string          `json:"final_recommendation"`
}

// AnalysisResult is one synthesized recommendation. StopLoss, TakeProfit and
// RiskMatrix are nil for HOLD.
type AnalysisResult struct {
	ID                  string               `json:"id"`
	UserID              string               `json:"-"`
	Pair                string               `json:"pair"`
	Timeframe           string               `json:"timeframe"`
	Strategy            string               `json:"strategy"`
	Recommendation      Recommendation       `json:"recommendation"`
	Confidence          float64              `json:"confidence"`
	EntryPrice          float64              `json:"entry_price"`
	StopLoss            *float64             `json:"stop_loss"`
	TakeProfit          *float64             `json:"take_profit"`
	RiskRewardRatio     float64              `json:"risk_reward_ratio"`
	KeyLevels           KeyLevels            `json:"key_levels"`
	AnalysisSummary     string               `json:"analysis_summary"`
	RiskMatrix          *RiskMatrix          `json:"risk_matrix"`
	Scenarios           []Scenario           `json:"scenarios"`
	ConfidenceBreakdown *ConfidenceBreakdown `json:"confidence_breakdown"`
	MultiModel          *MultiModelResponse  `json:"multi_model"`
	CreatedAt           time.Time            `json:"created_at"`
}

// AnalysisEvent is published for every stored analysis.
type AnalysisEvent struct {
	EventID        string         `json:"event_id"`
	AnalysisID     string         `json:"analysis_id"`
	UserID         string         `json:"user_id"`
	Kind           string         `json:"kind"`
	Pair           string         `json:"pair"`
	Timeframe      string         `json:"timeframe"`
	Strategy       string         `json:"strategy"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	EntryPrice     float64        `json:"entry_price"`
	Consensus      Recommendation `json:"consensus,omitempty"`
	ModelCount     int            `json:"model_count"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Event kinds.
const (
	KindAutomatic = "automatic"
	KindManual    = "manual"
)

// NewAnalysisEvent projects a stored analysis onto its event form.
func NewAnalysisEvent(eventID, kind string, a *AnalysisResult) *AnalysisEvent {
	ev := &AnalysisEvent{
		EventID:        eventID,
		AnalysisID:     a.ID,
		UserID:         a.UserID,
		Kind:           kind,
		Pair:           a.Pair,
		Timeframe:      a.Timeframe,
		Strategy:       a.Strategy,
		Recommendation: a.Recommendation,
		Confidence:     a.Confidence,
		EntryPrice:     a.EntryPrice,
		CreatedAt:      a.CreatedAt,
	}
	if a.MultiModel != nil {
		ev.Consensus = a.MultiModel.Consensus
		ev.ModelCount = len(a.MultiModel.Models)
	}
	return ev
}
