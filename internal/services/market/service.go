package market

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"YoForex/internal/domain/models"
	"YoForex/internal/domain/repository"
	"YoForex/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service produces mock market data: candles, quotes, ticks, signals and news.
// It is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	rng     *rand.Rand
	last    map[string]float64
	candles int
	now     func() time.Time
}

type Option func(*Service)

func WithCandles(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.candles = n
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(s *Service) { s.rng = rand.New(rand.NewPCG(seed, seed+1)) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		last:    make(map[string]float64),
		candles: 100,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pipScale converts EUR/USD sized offsets to the pair's quote magnitude.
func pipScale(symbol string) float64 {
	if strings.HasSuffix(symbol, "JPY") {
		return 100
	}
	return 1
}

func digits(symbol string) int32 {
	if strings.HasSuffix(symbol, "JPY") {
		return 3
	}
	return 5
}

// MarketData builds the candle history of a pair ending at the current bucket, plus
// indicators computed from it.
func (s *Service) MarketData(pair repository.PairInfo, timeframe string) (*models.MarketData, error) {
	step, err := util.TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := digits(pair.Symbol)
	scale := pipScale(pair.Symbol)
	end := s.now().UTC().Truncate(step)
	start := end.Add(-time.Duration(s.candles-1) * step)

	candles := make([]models.Candle, s.candles)
	price := pair.BasePrice + s.uniform(-0.02, 0.02)*scale
	for i := range candles {
		open := price
		// Pull toward the base quote so long histories stay in range.
		drift := (pair.BasePrice - open) * 0.05
		closePrice := open + drift + s.uniform(-0.01, 0.01)*scale*0.2
		high := max(open, closePrice) + s.uniform(0, 0.002)*scale
		low := min(open, closePrice) - s.uniform(0, 0.002)*scale

		candles[i] = models.Candle{
			Time:   start.Add(time.Duration(i) * step),
			Open:   roundTo(open, d),
			High:   roundTo(high, d),
			Low:    roundTo(low, d),
			Close:  roundTo(closePrice, d),
			Volume: 100_000 + s.rng.Int64N(900_001),
		}
		price = closePrice
	}

	current := candles[len(candles)-1].Close
	first := candles[0].Open
	s.last[pair.Symbol] = current

	return &models.MarketData{
		Pair:         pair.Symbol,
		Timeframe:    timeframe,
		CurrentPrice: current,
		Change24h:    roundTo((current-first)/first*100, 2),
		Candles:      candles,
		Indicators:   ComputeIndicators(candles, d),
		UpdatedAt:    s.now().UTC(),
	}, nil
}

// Quotes lists every pair with a current price and 24h change in percent.
func (s *Service) Quotes() []models.TradingPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := repository.Pairs()
	out := make([]models.TradingPair, len(pairs))
	for i, p := range pairs {
		price := s.priceLocked(p)
		out[i] = models.TradingPair{
			Symbol:       p.Symbol,
			Name:         p.Name,
			CurrentPrice: roundTo(price, digits(p.Symbol)),
			Change24h:    roundTo(s.uniform(-1.5, 1.5), 2),
		}
	}
	return out
}

// Tick moves the pair's quote by a small random step and returns it.
func (s *Service) Tick(pair repository.PairInfo) models.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := digits(pair.Symbol)
	price := s.priceLocked(pair) * (1 + s.uniform(-0.0002, 0.0002))
	s.last[pair.Symbol] = price
	half := 0.00008 * pipScale(pair.Symbol)

	return models.Tick{
		Pair:  pair.Symbol,
		Bid:   roundTo(price-half, d),
		Ask:   roundTo(price+half, d),
		Price: roundTo(price, d),
		Time:  s.now().UTC(),
	}
}

var signalPairs = []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "EUR/GBP"}

var signalStatuses = []string{"active", "pending", "closed"}

// Signals draws one signal per watched pair. Pairs that draw HOLD are skipped.
func (s *Service) Signals() []models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Signal, 0, len(signalPairs))
	for _, sym := range signalPairs {
		pair, ok := repository.LookupPair(sym)
		if !ok {
			continue
		}
		dir := models.Directions[s.rng.IntN(len(models.Directions))]
		if dir == models.Hold {
			continue
		}

		d := digits(sym)
		scale := pipScale(sym)
		entry := s.priceLocked(pair)
		sl, tp := entry-0.005*scale, entry+0.015*scale
		if dir == models.Sell {
			sl, tp = entry+0.005*scale, entry-0.015*scale
		}

		out = append(out, models.Signal{
			ID:         "sig_" + uuid.NewString(),
			Pair:       sym,
			Direction:  dir,
			EntryPrice: roundTo(entry, d),
			StopLoss:   roundTo(sl, d),
			TakeProfit: roundTo(tp, d),
			Confidence: roundTo(s.uniform(0.70, 0.95), 2),
			Status:     signalStatuses[s.rng.IntN(len(signalStatuses))],
			CreatedAt:  s.now().UTC().Add(-time.Duration(s.rng.IntN(24*60)) * time.Minute),
		})
	}
	return out
}

// News returns the fixture headlines newest first, at most limit of them.
func (s *Service) News(limit int) []models.NewsItem {
	now := s.now().UTC()
	items := []models.NewsItem{
		{
			ID:           "news_1",
			Title:        "Federal Reserve signals potential rate pause",
			Summary:      "Fed officials indicate they may hold rates steady at the next meeting as inflation shows signs of cooling.",
			Source:       "Reuters",
			Impact:       "high",
			RelatedPairs: []string{"EUR/USD", "GBP/USD", "USD/JPY"},
			PublishedAt:  now.Add(-2 * time.Hour),
		},
		{
			ID:           "news_2",
			Title:        "ECB maintains hawkish stance on inflation",
			Summary:      "European Central Bank President reaffirms commitment to bringing inflation back to target.",
			Source:       "Bloomberg",
			Impact:       "medium",
			RelatedPairs: []string{"EUR/USD", "EUR/GBP", "EUR/JPY"},
			PublishedAt:  now.Add(-5 * time.Hour),
		},
		{
			ID:           "news_3",
			Title:        "US jobs report beats expectations",
			Summary:      "Non-farm payrolls came in above forecasts, strengthening the dollar across major pairs.",
			Source:       "Financial Times",
			Impact:       "high",
			RelatedPairs: []string{"EUR/USD", "USD/JPY", "USD/CHF"},
			PublishedAt:  now.Add(-8 * time.Hour),
		},
		{
			ID:           "news_4",
			Title:        "UK inflation data shows slight decline",
			Summary:      "British consumer prices rose less than expected, easing pressure on the Bank of England.",
			Source:       "The Guardian",
			Impact:       "medium",
			RelatedPairs: []string{"GBP/USD", "EUR/GBP", "GBP/JPY"},
			PublishedAt:  now.Add(-12 * time.Hour),
		},
	}
	if limit < len(items) && limit >= 0 {
		items = items[:limit]
	}
	return items
}

// CacheKey names a pair/timeframe market data entry.
func CacheKey(symbol, timeframe string) string {
	return fmt.Sprintf("market:%s:%s", strings.ReplaceAll(symbol, "/", ""), timeframe)
}

func (s *Service) priceLocked(p repository.PairInfo) float64 {
	if v, ok := s.last[p.Symbol]; ok {
		return v
	}
	v := p.BasePrice + s.uniform(-0.005, 0.005)*pipScale(p.Symbol)
	s.last[p.Symbol] = v
	return v
}

func (s *Service) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
