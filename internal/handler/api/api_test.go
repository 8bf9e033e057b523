package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"YoForex/internal/domain/models"
	"YoForex/internal/middleware"
	"YoForex/internal/repository"
	"YoForex/internal/services/analysis"
	"YoForex/internal/services/auth"
	"YoForex/internal/services/billing"
	"YoForex/internal/services/market"
	"YoForex/internal/usecase"
	"YoForex/pkg/cache"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"
	"YoForex/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"golang.org/x/crypto/bcrypt"
)

const testWebhookSecret = "whsec_api"

type noopJobs struct{ n int }

func (j *noopJobs) PublishMessage(context.Context, string, interface{}) error {
	j.n++
	return nil
}

type testApp struct {
	mr   *miniredis.Miniredis
	echo *echo.Echo
	jobs *noopJobs
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := applogger.Nop()
	rec := metrics.NewWithRegisterer(prometheus.NewRegistry())
	users := repository.NewRedisUserRepository(rdb, "test")
	subs := repository.NewRedisSubscriptionRepository(rdb, "test")
	usage := repository.NewRedisUsageRepository(rdb, "test")
	mkt := market.NewService(market.WithSeed(11))
	jobs := &noopJobs{}

	authUC := usecase.NewAuthUsecase(users, auth.NewPasswordHasher(bcrypt.MinCost), auth.NewTokenIssuer("secret", "YoForex AI", time.Hour), log)
	analysisUC := usecase.NewAnalysisUsecase(
		analysis.NewGenerator(analysis.NewMockRecommender(11)),
		repository.NewRedisAnalysisRepository(rdb, "test"),
		usage, users, subs, repository.NoopEventPublisher{}, mkt, rec, log,
	)
	billingUC := usecase.NewBillingUsecase(users, subs, usage, nil, billing.NewWebhookVerifier(testWebhookSecret), jobs, rec, log)

	handlers := []xhttp.Handler{
		NewRootEchoHandler(log, "YoForex AI", "test", map[string]HealthCheck{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		NewAuthEchoHandler(log, authUC),
		NewTradingEchoHandler(log, analysisUC, authUC, middleware.RateLimit(middleware.NewRateLimiter(600, 50), rec)),
		NewMarketEchoHandler(log, usecase.NewMarketUsecase(mkt, cache.NewRedisCache(rdb, "test"), time.Minute), rec, 10*time.Millisecond),
		NewUserEchoHandler(log, usecase.NewUserUsecase(users, repository.NewRedisSettingsRepository(rdb, "test")), authUC),
		NewBillingEchoHandler(log, billingUC, authUC),
	}
	srv := xhttp.NewServer(log, handlers, xhttp.WithMetricsPath(""))
	return &testApp{mr: mr, echo: srv.Echo(), jobs: jobs}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testApp) signup(t *testing.T, email string) string {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/auth/signup", "",
		`{"email":"`+email+`","password":"correct-horse","full_name":"Test Trader"}`)
	require.Equal(t, http.StatusCreated, code)

	var res models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.AccessToken
}

func errorCodes(t *testing.T, env envelope) []string {
	t.Helper()
	var errs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "flow@example.com")

	code, env := app.do(t, http.MethodPost, "/auth/signup", "",
		`{"email":"flow@example.com","password":"correct-horse","full_name":"Again"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, []string{"ERR_CONFLICT"}, errorCodes(t, env))

	code, _ = app.do(t, http.MethodPost, "/auth/login", "", `{"email":"flow@example.com","password":"wrong-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = app.do(t, http.MethodPost, "/auth/login", "", `{"email":"flow@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, code)
	var login models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "bearer", login.TokenType)

	code, env = app.do(t, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "flow@example.com", me.Email)

	code, _ = app.do(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = app.do(t, http.MethodPost, "/auth/signup", "", `{"email":"not-an-email","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, errorCodes(t, env))
}

func TestTradingFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "trader@example.com")

	code, env := app.do(t, http.MethodGet, "/trading/pairs", "", "")
	require.Equal(t, http.StatusOK, code)
	var pairs []models.TradingPair
	require.NoError(t, json.Unmarshal(env.Data, &pairs))
	assert.Len(t, pairs, 10)

	code, _ = app.do(t, http.MethodPost, "/trading/analyze", "", `{"pair":"EUR/USD","timeframe":"1h","strategy":"Breakout"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = app.do(t, http.MethodPost, "/trading/analyze", token,
		`{"pair":"EUR/USD","timeframe":"1h","strategy":"Breakout","ai_models":["gpt-4","gemini-pro"]}`)
	require.Equal(t, http.StatusOK, code)
	var res models.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "EUR/USD", res.Pair)
	require.NotNil(t, res.MultiModel)

	code, env = app.do(t, http.MethodPost, "/trading/analyze", token, `{"pair":"BTC/USD","timeframe":"1h","strategy":"Breakout"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, errorCodes(t, env), "ERR_ONEOF")

	code, env = app.do(t, http.MethodGet, "/trading/history?limit=5", token, "")
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Rows  []models.AnalysisResult `json:"rows"`
		Total int64                   `json:"total"`
		Limit int                     `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 5, page.Limit)
	require.Len(t, page.Rows, 1)

	code, _ = app.do(t, http.MethodGet, "/trading/history/"+res.ID, token, "")
	assert.Equal(t, http.StatusOK, code)

	other := app.signup(t, "other@example.com")
	code, _ = app.do(t, http.MethodGet, "/trading/history/"+res.ID, other, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = app.do(t, http.MethodGet, "/trading/history?limit=500", token, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestQuotaExceededOverHTTP(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "quota@example.com")
	body := `{"pair":"GBP/USD","timeframe":"4h","strategy":"Scalping"}`

	for i := 0; i < 10; i++ {
		code, _ := app.do(t, http.MethodPost, "/trading/analyze", token, body)
		require.Equal(t, http.StatusOK, code)
	}
	code, env := app.do(t, http.MethodPost, "/trading/analyze", token, body)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, []string{"ERR_QUOTA_EXCEEDED"}, errorCodes(t, env))
}

func TestMarketEndpoints(t *testing.T) {
	app := newTestApp(t)

	code, env := app.do(t, http.MethodGet, "/market/data/EUR_USD?timeframe=4h", "", "")
	require.Equal(t, http.StatusOK, code)
	var data models.MarketData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "EUR/USD", data.Pair)
	assert.Len(t, data.Candles, 100)
	assert.Contains(t, []string{"bullish", "bearish"}, data.Indicators.Trend)

	code, _ = app.do(t, http.MethodGet, "/market/data/EUR%2FUSD", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = app.do(t, http.MethodGet, "/market/data/XYZABC", "", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = app.do(t, http.MethodGet, "/market/news?limit=2", "", "")
	require.Equal(t, http.StatusOK, code)
	var news []models.NewsItem
	require.NoError(t, json.Unmarshal(env.Data, &news))
	assert.Len(t, news, 2)
}

func TestMarketStream(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.echo)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/market/stream?pairs=EUR/USD,USD/JPY"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var tick models.Tick
		require.NoError(t, conn.ReadJSON(&tick))
		assert.Less(t, tick.Bid, tick.Ask)
		seen[tick.Pair] = true
	}
	assert.True(t, seen["EUR/USD"])
	assert.True(t, seen["USD/JPY"])
}

func TestUserSettingsOverHTTP(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "settings@example.com")

	code, env := app.do(t, http.MethodGet, "/user/settings", token, "")
	require.Equal(t, http.StatusOK, code)
	var s models.UserSettings
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "dark", s.Theme)

	code, _ = app.do(t, http.MethodPut, "/user/settings", token, `{"theme":"neon"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = app.do(t, http.MethodPut, "/user/settings", token, `{"theme":"light","risk_per_trade":2}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "light", s.Theme)
	assert.Equal(t, "1h", s.DefaultTimeframe)

	code, env = app.do(t, http.MethodPut, "/user/profile", token, `{"full_name":"Renamed"}`)
	require.Equal(t, http.StatusOK, code)
	var u models.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "Renamed", u.FullName)
}

func TestBillingOverHTTP(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "billing@example.com")

	code, env := app.do(t, http.MethodGet, "/billing/plans", "", "")
	require.Equal(t, http.StatusOK, code)
	var plans []models.Plan
	require.NoError(t, json.Unmarshal(env.Data, &plans))
	assert.Len(t, plans, 4)

	code, _ = app.do(t, http.MethodPost, "/billing/subscribe", token, `{"plan":"free"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = app.do(t, http.MethodPost, "/billing/subscribe", token, `{"plan":"basic"}`)
	require.Equal(t, http.StatusOK, code)
	var res models.CheckoutResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.StatusActive, res.Subscription.Status)

	code, env = app.do(t, http.MethodGet, "/billing/info", token, "")
	require.Equal(t, http.StatusOK, code)
	var info models.BillingInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, 100, info.Usage.AnalysesLimit)

	code, _ = app.do(t, http.MethodPost, "/billing/cancel", token, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestBillingWebhook(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed",
			"data":{"object":{"id":"cs_2","object":"checkout.session","metadata":{"user_id":"u1","plan":"pro"}}}}`),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	req = httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(string(signed.Payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec = httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, app.jobs.n)
}

func TestBillingWebhookRejectsOversizedBody(t *testing.T) {
	app := newTestApp(t)

	body := `{"id":"evt_big","pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=irrelevant")
	rec := httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_PAYLOAD_TOO_LARGE")
	assert.Zero(t, app.jobs.n)
}

func TestRootAndHealth(t *testing.T) {
	app := newTestApp(t)

	code, _ := app.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = app.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)

	app.mr.Close()
	code, env := app.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(env.Data), `"redis":"down"`)
}
