package models

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AnalysisRequest struct {
	Pair      string   `json:"pair" validate:"required,oneof=EUR/USD GBP/USD USD/JPY USD/CHF AUD/USD USD/CAD NZD/USD EUR/GBP EUR/JPY GBP/JPY"`
	Timeframe string   `json:"timeframe" validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	Strategy  string   `json:"strategy" validate:"required,max=64"`
	UseAI     *bool    `json:"use_ai" default:"true"`
	AIModels  []string `json:"ai_models" validate:"omitempty,max=3,dive,oneof=gpt-4 claude-3-opus gemini-pro"`
}

type ManualAnalysisRequest struct {
	Pair         string   `json:"pair" validate:"required,oneof=EUR/USD GBP/USD USD/JPY USD/CHF AUD/USD USD/CAD NZD/USD EUR/GBP EUR/JPY GBP/JPY"`
	Timeframe    string   `json:"timeframe" validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	TextAnalysis string   `json:"text_analysis" validate:"max=10000"`
	Images       []string `json:"images" validate:"omitempty,max=5"`
	AIModels     []string `json:"ai_models" validate:"required,min=1,max=3,dive,oneof=gpt-4 claude-3-opus gemini-pro"`
}

type HistoryRequest struct {
	Limit  int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
	Offset int `query:"offset" json:"offset" validate:"gte=0"`
}

type AnalysisIDRequest struct {
	ID string `param:"id" validate:"required"`
}

type NewsRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

type MarketDataRequest struct {
	Pair      string `param:"pair" validate:"required"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
}

type StreamRequest struct {
	Pairs string `query:"pairs" default:"EUR/USD"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
}

type UpdateSettingsRequest struct {
	DefaultPair          string   `json:"default_pair" default:"EUR/USD" validate:"oneof=EUR/USD GBP/USD USD/JPY USD/CHF AUD/USD USD/CAD NZD/USD EUR/GBP EUR/JPY GBP/JPY"`
	DefaultTimeframe     string   `json:"default_timeframe" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	DefaultStrategy      string   `json:"default_strategy" default:"Trend Following" validate:"max=64"`
	PreferredModels      []string `json:"preferred_models" validate:"omitempty,max=3,dive,oneof=gpt-4 claude-3-opus gemini-pro"`
	Theme                string   `json:"theme" default:"dark" validate:"oneof=dark light"`
	NotificationsEnabled *bool    `json:"notifications_enabled" default:"true"`
	RiskPerTrade         float64  `json:"risk_per_trade" default:"1" validate:"gte=0.1,lte=10"`
}

type SubscribeRequest struct {
	Plan string `json:"plan" validate:"required,oneof=basic pro enterprise"`
}
