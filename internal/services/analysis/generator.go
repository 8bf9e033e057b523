package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"YoForex/internal/domain/models"
	"YoForex/internal/domain/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEmptyModelList is returned when a consensus is requested over no models.
var ErrEmptyModelList = errors.New("analysis: model list is empty")

const positionSizeHint = "0.5-1.0% of portfolio"

// Generator shapes recommender output into analysis results. It performs no I/O of
// its own.
type Generator struct {
	rec   service.Recommender
	now   func() time.Time
	newID func() string
}

type GeneratorOption func(*Generator)

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

func WithIDFunc(f func() string) GeneratorOption {
	return func(g *Generator) { g.newID = f }
}

func NewGenerator(rec service.Recommender, opts ...GeneratorOption) *Generator {
	g := &Generator{
		rec:   rec,
		now:   time.Now,
		newID: func() string { return "analysis_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateAnalysis builds one analysis. A multi-model consensus is attached when more
// than one model is given.
func (g *Generator) GenerateAnalysis(ctx context.Context, pair, timeframe, strategy string, aiModels []string) (*models.AnalysisResult, error) {
	mc := service.MarketContext{Pair: pair, Timeframe: timeframe, Strategy: strategy}
	call, err := g.rec.Recommend(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("recommend %s: %w", pair, err)
	}

	entry := call.EntryPrice
	breakdown := call.Breakdown
	res := &models.AnalysisResult{
		ID:                  g.newID(),
		Pair:                pair,
		Timeframe:           timeframe,
		Strategy:            strategy,
		Recommendation:      call.Recommendation,
		Confidence:          call.Confidence,
		EntryPrice:          entry,
		KeyLevels:           keyLevels(entry),
		Scenarios:           scenarios(),
		ConfidenceBreakdown: &breakdown,
		CreatedAt:           g.now().UTC(),
	}

	if call.Recommendation == models.Buy || call.Recommendation == models.Sell {
		sl, tp := call.Levels.StopLoss, call.Levels.TakeProfit
		res.StopLoss = &sl
		res.TakeProfit = &tp
		res.RiskRewardRatio = riskReward(entry, sl, tp)
		res.RiskMatrix = &models.RiskMatrix{
			StopLoss:        sl,
			TakeProfit:      tp,
			RiskRewardRatio: res.RiskRewardRatio,
			PositionSize:    positionSizeHint,
		}
	}

	if len(aiModels) > 1 {
		mm, err := g.consensus(ctx, mc, aiModels, call.Recommendation)
		if err != nil {
			return nil, err
		}
		res.MultiModel = mm
	}

	res.AnalysisSummary = summary(res)
	return res, nil
}

// BuildConsensus asks every model for its view and aggregates the answers.
func (g *Generator) BuildConsensus(ctx context.Context, aiModels []string, pair string, base models.Recommendation) (*models.MultiModelResponse, error) {
	return g.consensus(ctx, service.MarketContext{Pair: pair}, aiModels, base)
}

// AnalyzeManualInput runs a regular analysis under the manual strategy label. The text
// and images are accepted for future content analysis and are not read.
func (g *Generator) AnalyzeManualInput(ctx context.Context, pair, timeframe, _ string, _ []string, aiModels []string) (*models.AnalysisResult, error) {
	return g.GenerateAnalysis(ctx, pair, timeframe, models.ManualStrategy, aiModels)
}

func (g *Generator) consensus(ctx context.Context, mc service.MarketContext, aiModels []string, base models.Recommendation) (*models.MultiModelResponse, error) {
	if len(aiModels) == 0 {
		return nil, ErrEmptyModelList
	}

	results := make([]models.AIModelResult, 0, len(aiModels))
	sum := decimal.Zero
	for _, model := range aiModels {
		op, err := g.rec.Opinion(ctx, mc, model, base)
		if err != nil {
			return nil, fmt.Errorf("opinion of %s: %w", model, err)
		}
		breakdown := op.Breakdown
		results = append(results, models.AIModelResult{
			Model:          model,
			Recommendation: op.Recommendation,
			Confidence:     op.Confidence,
			Reasoning: fmt.Sprintf("%s analysis suggests %s based on technical indicators and market conditions for %s.",
				model, op.Recommendation, mc.Pair),
			ConfidenceBreakdown: &breakdown,
		})
		sum = sum.Add(decimal.NewFromFloat(op.Confidence))
	}

	avg := sum.Div(decimal.NewFromInt(int64(len(results)))).Round(2).InexactFloat64()
	label, final := Consensus(results)
	return &models.MultiModelResponse{
		Consensus:           label,
		AvgConfidence:       avg,
		Models:              results,
		FinalRecommendation: final,
	}, nil
}

// Consensus labels the per-model results. BUY or SELL needs a strict plurality over
// both other directions; everything else, a HOLD plurality included, is MIXED.
func Consensus(results []models.AIModelResult) (models.Recommendation, string) {
	var buy, sell, hold int
	for _, r := range results {
		switch r.Recommendation {
		case models.Buy:
			buy++
		case models.Sell:
			sell++
		case models.Hold:
			hold++
		}
	}

	total := len(results)
	switch {
	case buy > sell && buy > hold:
		return models.Buy, fmt.Sprintf("Strong consensus to BUY (%d/%d models)", buy, total)
	case sell > buy && sell > hold:
		return models.Sell, fmt.Sprintf("Strong consensus to SELL (%d/%d models)", sell, total)
	default:
		return models.Mixed, fmt.Sprintf("Mixed signals - %d BUY, %d SELL, %d HOLD", buy, sell, hold)
	}
}

func riskReward(entry, stopLoss, takeProfit float64) float64 {
	e := decimal.NewFromFloat(entry)
	risk := e.Sub(decimal.NewFromFloat(stopLoss)).Abs()
	if risk.IsZero() {
		return 0
	}
	reward := decimal.NewFromFloat(takeProfit).Sub(e).Abs()
	return reward.Div(risk).Round(2).InexactFloat64()
}

func keyLevels(entry float64) models.KeyLevels {
	return models.KeyLevels{
		Support:    []float64{round(entry-0.01, 5), round(entry-0.02, 5)},
		Resistance: []float64{round(entry+0.01, 5), round(entry+0.02, 5)},
	}
}

func scenarios() []models.Scenario {
	return []models.Scenario{
		{
			Name:        "Bull Case",
			Probability: 0.45,
			Description: "Price breaks resistance and continues upward",
			Impact:      "High profit potential",
		},
		{
			Name:        "Bear Case",
			Probability: 0.30,
			Description: "Support level breaks leading to downward movement",
			Impact:      "Stop loss triggered",
		},
		{
			Name:        "Consolidation",
			Probability: 0.25,
			Description: "Price moves sideways in current range",
			Impact:      "Minimal price movement",
		},
	}
}

func summary(a *models.AnalysisResult) string {
	momentum := "neutral"
	switch a.Recommendation {
	case models.Buy:
		momentum = "bullish"
	case models.Sell:
		momentum = "bearish"
	}
	setup := "moderate"
	if a.RiskRewardRatio > 2 {
		setup = "favorable"
	}

	return fmt.Sprintf("Based on %s strategy analysis for %s on %s timeframe:\n\n"+
		"• Market is showing %s signals with %.0f%% confidence\n"+
		"• Entry recommended at %s\n"+
		"• Technical indicators suggest %s momentum\n"+
		"• Risk/Reward ratio of %.2f:1 offers %s setup\n"+
		"• Key support and resistance levels identified",
		a.Strategy, a.Pair, a.Timeframe,
		a.Recommendation, a.Confidence*100,
		strconv.FormatFloat(a.EntryPrice, 'f', -1, 64),
		momentum,
		a.RiskRewardRatio, setup)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
