package repository

import (
	"net/url"
	"strings"

	"YoForex/internal/domain/models"
)

// PairInfo is a tradable pair with the quote the mock market data walks around.
type PairInfo struct {
	Symbol    string
	Name      string
	BasePrice float64
}

var pairs = []PairInfo{
	{"EUR/USD", "Euro / US Dollar", 1.0850},
	{"GBP/USD", "British Pound / US Dollar", 1.2650},
	{"USD/JPY", "US Dollar / Japanese Yen", 149.50},
	{"USD/CHF", "US Dollar / Swiss Franc", 0.8850},
	{"AUD/USD", "Australian Dollar / US Dollar", 0.6520},
	{"USD/CAD", "US Dollar / Canadian Dollar", 1.3620},
	{"NZD/USD", "New Zealand Dollar / US Dollar", 0.5980},
	{"EUR/GBP", "Euro / British Pound", 0.8580},
	{"EUR/JPY", "Euro / Japanese Yen", 162.25},
	{"GBP/JPY", "British Pound / Japanese Yen", 189.15},
}

var timeframes = []models.CatalogItem{
	{ID: "1m", Name: "1 Minute"},
	{ID: "5m", Name: "5 Minutes"},
	{ID: "15m", Name: "15 Minutes"},
	{ID: "30m", Name: "30 Minutes"},
	{ID: "1h", Name: "1 Hour"},
	{ID: "4h", Name: "4 Hours"},
	{ID: "1d", Name: "1 Day"},
	{ID: "1w", Name: "1 Week"},
}

var strategies = []models.CatalogItem{
	{ID: "Trend Following", Name: "Trend Following", Description: "Trade in the direction of the prevailing trend"},
	{ID: "Breakout", Name: "Breakout", Description: "Enter when price breaks key support or resistance"},
	{ID: "Scalping", Name: "Scalping", Description: "Short-term trades capturing small price moves"},
	{ID: "Swing Trading", Name: "Swing Trading", Description: "Hold positions for several days to capture swings"},
	{ID: "Position Trading", Name: "Position Trading", Description: "Long-term positions based on fundamentals"},
}

var aiModels = []models.CatalogItem{
	{ID: "gpt-4", Name: "GPT-4", Description: "OpenAI GPT-4"},
	{ID: "claude-3-opus", Name: "Claude 3 Opus", Description: "Anthropic Claude 3 Opus"},
	{ID: "gemini-pro", Name: "Gemini Pro", Description: "Google Gemini Pro"},
}

// Pairs returns the supported pairs in catalogue order.
func Pairs() []PairInfo { return append([]PairInfo(nil), pairs...) }

func PairSymbols() []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Symbol
	}
	return out
}

func Timeframes() []models.CatalogItem { return append([]models.CatalogItem(nil), timeframes...) }

func Strategies() []models.CatalogItem { return append([]models.CatalogItem(nil), strategies...) }

func AIModels() []models.CatalogItem { return append([]models.CatalogItem(nil), aiModels...) }

// LookupPair accepts "EUR/USD", "EUR_USD", "EURUSD", "eur-usd" and the URL-escaped
// slash form.
func LookupPair(raw string) (PairInfo, bool) {
	s := raw
	if u, err := url.PathUnescape(raw); err == nil {
		s = u
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("/", "", "_", "", "-", "", " ", "").Replace(s)
	for _, p := range pairs {
		if strings.ReplaceAll(p.Symbol, "/", "") == s {
			return p, true
		}
	}
	return PairInfo{}, false
}

func IsValidTimeframe(tf string) bool {
	for _, t := range timeframes {
		if t.ID == tf {
			return true
		}
	}
	return false
}

// IsKnownModel reports whether id names a catalogue model.
func IsKnownModel(id string) bool {
	for _, m := range aiModels {
		if m.ID == id {
			return true
		}
	}
	return false
}
