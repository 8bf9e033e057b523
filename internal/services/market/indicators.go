package market

import (
	"YoForex/internal/domain/models"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

const (
	smaPeriod = 20
	emaPeriod = 50
	rsiPeriod = 14
)

func sma(prices []float64, period int) []float64 {
	if len(prices) < period {
		return nil
	}
	return helper.ChanToSlice(trend.NewSmaWithPeriod[float64](period).Compute(helper.SliceToChan(prices)))
}

func ema(prices []float64, period int) []float64 {
	if len(prices) < period {
		return nil
	}
	return helper.ChanToSlice(trend.NewEmaWithPeriod[float64](period).Compute(helper.SliceToChan(prices)))
}

func rsi(prices []float64, period int) []float64 {
	if len(prices) < period+1 {
		return nil
	}
	return helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](period).Compute(helper.SliceToChan(prices)))
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// ComputeIndicators derives SMA20, EMA50 and RSI14 from candle closes. Indicators
// that need more history than available are reported as zero.
func ComputeIndicators(candles []models.Candle, digits int32) models.Indicators {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	ind := models.Indicators{
		SMA20: roundTo(last(sma(closes, smaPeriod)), digits),
		EMA50: roundTo(last(ema(closes, emaPeriod)), digits),
		RSI14: roundTo(last(rsi(closes, rsiPeriod)), 2),
		Trend: "bearish",
	}
	if ind.SMA20 > 0 && last(closes) > ind.SMA20 {
		ind.Trend = "bullish"
	}
	return ind
}
