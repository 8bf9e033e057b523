package api

import (
	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/internal/middleware"
	"YoForex/internal/usecase"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/labstack/echo/v4"
)

type TradingEchoHandler struct {
	log      *applogger.Logger
	analysis *usecase.AnalysisUsecase
	auth     middleware.Authenticator
	limit    echo.MiddlewareFunc
}

// NewTradingEchoHandler wires the trading routes. limit throttles the analyze endpoints.
func NewTradingEchoHandler(log *applogger.Logger, analysis *usecase.AnalysisUsecase, auth middleware.Authenticator, limit echo.MiddlewareFunc) *TradingEchoHandler {
	return &TradingEchoHandler{log: log, analysis: analysis, auth: auth, limit: limit}
}

func (h *TradingEchoHandler) RegisterRoutes(g *echo.Group) {
	tg := g.Group("/trading")
	tg.GET("/pairs", h.Pairs)
	tg.GET("/timeframes", h.Timeframes)
	tg.GET("/strategies", h.Strategies)
	tg.GET("/models", h.Models)

	auth := middleware.RequireAuth(h.auth)
	tg.POST("/analyze", h.Analyze, auth, h.limit)
	tg.POST("/analyze/manual", h.AnalyzeManual, auth, h.limit)
	tg.GET("/history", h.History, auth)
	tg.GET("/history/:id", h.HistoryItem, auth)
	tg.GET("/signals", h.Signals, auth)
}

func (h *TradingEchoHandler) Pairs(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.analysis.Pairs())
}

func (h *TradingEchoHandler) Timeframes(c echo.Context) error {
	return xhttp.SuccessResponse(c, domrepo.Timeframes())
}

func (h *TradingEchoHandler) Strategies(c echo.Context) error {
	return xhttp.SuccessResponse(c, domrepo.Strategies())
}

func (h *TradingEchoHandler) Models(c echo.Context) error {
	return xhttp.SuccessResponse(c, domrepo.AIModels())
}

func (h *TradingEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	res, err := h.analysis.Analyze(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.log, "analyze", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingEchoHandler) AnalyzeManual(c echo.Context) error {
	req := &models.ManualAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	res, err := h.analysis.AnalyzeManual(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.log, "manual analyze", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	rows, total, err := h.analysis.History(c.Request().Context(), middleware.UserID(c), req.Limit, req.Offset)
	if err != nil {
		return respondError(c, h.log, "history", err)
	}
	return xhttp.ListResponse(c, rows, total, req.Limit, req.Offset)
}

func (h *TradingEchoHandler) HistoryItem(c echo.Context) error {
	req := &models.AnalysisIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	res, err := h.analysis.Get(c.Request().Context(), middleware.UserID(c), req.ID)
	if err != nil {
		return respondError(c, h.log, "history item", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingEchoHandler) Signals(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.analysis.Signals())
}
