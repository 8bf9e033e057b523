package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applogger "YoForex/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoReq struct {
	Pair  string `json:"pair" validate:"required,oneof=EUR/USD GBP/USD"`
	Limit int    `json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/echo", func(c echo.Context) error {
		var req echoReq
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return ValidationErrorResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	g.GET("/conflict", func(c echo.Context) error {
		return AppErrorResponse(c, ConflictError("already there"))
	})
	g.GET("/panic", func(c echo.Context) error {
		panic("boom")
	})
}

func newTestServer() *Server {
	return NewServer(applogger.Nop(), []Handler{testHandler{}}, WithMetricsPath(""))
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	rec, resp := do(t, newTestServer(), http.MethodPost, "/echo", `{"pair":"EUR/USD"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "EUR/USD", data["pair"])
	assert.EqualValues(t, 20, data["limit"])
}

func TestReadAndValidateRequestRejects(t *testing.T) {
	rec, resp := do(t, newTestServer(), http.MethodPost, "/echo", `{"pair":"XAU/USD","limit":500}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	errs := resp.Data.([]interface{})
	require.Len(t, errs, 2)
	fields := []string{}
	for _, e := range errs {
		fields = append(fields, e.(map[string]interface{})["field"].(string))
	}
	assert.ElementsMatch(t, []string{"pair", "limit"}, fields)
}

func TestMalformedBody(t *testing.T) {
	rec, _ := do(t, newTestServer(), http.MethodPost, "/echo", `{"pair":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppErrorStatus(t *testing.T) {
	rec, resp := do(t, newTestServer(), http.MethodGet, "/conflict", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", resp.Message)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	rec, resp := do(t, newTestServer(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestPanicRecovered(t *testing.T) {
	rec, resp := do(t, newTestServer(), http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(applogger.Nop(), []Handler{testHandler{}}, WithMetricsPath(""), WithCORSOrigins([]string{"https://app.yoforex.ai"}))

	req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.yoforex.ai")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.yoforex.ai", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
