package api

import (
	"YoForex/internal/domain/models"
	"YoForex/internal/middleware"
	"YoForex/internal/usecase"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AuthEchoHandler struct {
	log  *applogger.Logger
	auth *usecase.AuthUsecase
}

func NewAuthEchoHandler(log *applogger.Logger, auth *usecase.AuthUsecase) *AuthEchoHandler {
	return &AuthEchoHandler{log: log, auth: auth}
}

func (h *AuthEchoHandler) RegisterRoutes(g *echo.Group) {
	ag := g.Group("/auth")
	ag.POST("/signup", h.Signup)
	ag.POST("/login", h.Login)
	ag.GET("/me", h.Me, middleware.RequireAuth(h.auth))
}

func (h *AuthEchoHandler) Signup(c echo.Context) error {
	req := &models.SignupRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	res, err := h.auth.Signup(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, "signup", err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *AuthEchoHandler) Login(c echo.Context) error {
	req := &models.LoginRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	res, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, "login", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AuthEchoHandler) Me(c echo.Context) error {
	u, err := h.auth.Me(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, "me", err)
	}
	return xhttp.SuccessResponse(c, u)
}
