package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Plan      PlanType  `json:"plan"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredUser is the persisted form of User; it keeps the password hash that the
// API form hides.
type StoredUser struct {
	User
	PasswordHash string `json:"password_hash"`
}

// Token is the bearer credential returned by signup and login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthResponse carries the caller's profile together with a fresh token.
type AuthResponse struct {
	Token
	User *User `json:"user"`
}

type UserSettings struct {
	UserID               string    `json:"user_id"`
	DefaultPair          string    `json:"default_pair"`
	DefaultTimeframe     string    `json:"default_timeframe"`
	DefaultStrategy      string    `json:"default_strategy"`
	PreferredModels      []string  `json:"preferred_models"`
	Theme                string    `json:"theme"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	RiskPerTrade         float64   `json:"risk_per_trade"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultSettings is returned for users that never saved settings.
func DefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:               userID,
		DefaultPair:          "EUR/USD",
		DefaultTimeframe:     "1h",
		DefaultStrategy:      "Trend Following",
		PreferredModels:      []string{"gpt-4"},
		Theme:                "dark",
		NotificationsEnabled: true,
		RiskPerTrade:         1.0,
	}
}
