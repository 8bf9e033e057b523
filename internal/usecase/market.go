package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/internal/services/market"
	"YoForex/pkg/cache"
	xhttp "YoForex/pkg/http"
	"YoForex/pkg/util"
)

const maxStreamPairs = 10

// MarketUsecase serves mock market data with responses cached per pair and timeframe.
type MarketUsecase struct {
	market   *market.Service
	cache    cache.Service
	cacheTTL time.Duration
}

func NewMarketUsecase(mkt *market.Service, c cache.Service, cacheTTL time.Duration) *MarketUsecase {
	return &MarketUsecase{market: mkt, cache: c, cacheTTL: cacheTTL}
}

func (u *MarketUsecase) News(limit int) []models.NewsItem {
	return u.market.News(limit)
}

// Data returns candles and indicators for a pair given as "EUR/USD", "EUR_USD" or
// "EURUSD".
func (u *MarketUsecase) Data(ctx context.Context, rawPair, timeframe string) (*models.MarketData, error) {
	pair, ok := domrepo.LookupPair(rawPair)
	if !ok {
		return nil, xhttp.NotFoundErrorf("Pair %s not found. Valid pairs: %s",
			rawPair, strings.Join(domrepo.PairSymbols(), ", ")).WithParam("pair", rawPair)
	}
	if !domrepo.IsValidTimeframe(timeframe) {
		return nil, xhttp.FieldError("timeframe", fmt.Sprintf("unsupported timeframe %q", timeframe))
	}

	key := market.CacheKey(pair.Symbol, timeframe)
	return cache.GetOrLoad(ctx, u.cache, key, u.cacheTTL, func(context.Context) (*models.MarketData, error) {
		return u.market.MarketData(pair, timeframe)
	})
}

// StreamPairs resolves a comma separated pair list. Unknown entries are rejected.
func (u *MarketUsecase) StreamPairs(raw string) ([]domrepo.PairInfo, error) {
	names := util.Dedupe(util.SplitCSV(raw))
	if len(names) == 0 {
		return nil, xhttp.FieldError("pairs", "at least one pair is required")
	}
	if len(names) > maxStreamPairs {
		return nil, xhttp.FieldError("pairs", fmt.Sprintf("at most %d pairs per stream", maxStreamPairs))
	}

	out := make([]domrepo.PairInfo, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		p, ok := domrepo.LookupPair(n)
		if !ok {
			return nil, xhttp.FieldError("pairs", fmt.Sprintf("unknown pair %q", n))
		}
		if seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true
		out = append(out, p)
	}
	return out, nil
}

func (u *MarketUsecase) Tick(pair domrepo.PairInfo) models.Tick {
	return u.market.Tick(pair)
}
