package models

import "time"

type TradingPair struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	Change24h    float64 `json:"change_24h,omitempty"`
}

type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Indicators are computed from candle closes. Trend is "bullish" when the latest
// close is above SMA20, "bearish" otherwise.
type Indicators struct {
	SMA20 float64 `json:"sma_20"`
	EMA50 float64 `json:"ema_50"`
	RSI14 float64 `json:"rsi_14"`
	Trend string  `json:"trend"`
}

type MarketData struct {
	Pair         string     `json:"pair"`
	Timeframe    string     `json:"timeframe"`
	CurrentPrice float64    `json:"current_price"`
	Change24h    float64    `json:"change_24h"`
	Candles      []Candle   `json:"candles"`
	Indicators   Indicators `json:"indicators"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type NewsItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Source       string    `json:"source"`
	Impact       string    `json:"impact"`
	RelatedPairs []string  `json:"related_pairs"`
	PublishedAt  time.Time `json:"published_at"`
}

// Tick is one streamed quote.
type Tick struct {
	Pair  string    `json:"pair"`
	Bid   float64   `json:"bid"`
	Ask   float64   `json:"ask"`
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
}

type Signal struct {
	ID         string         `json:"id"`
	Pair       string         `json:"pair"`
	Direction  Recommendation `json:"direction"`
	EntryPrice float64        `json:"entry_price"`
	StopLoss   float64        `json:"stop_loss"`
	TakeProfit float64        `json:"take_profit"`
	Confidence float64        `json:"confidence"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CatalogItem describes a selectable timeframe, strategy or model.
type CatalogItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
