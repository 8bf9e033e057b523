package api

import (
	"YoForex/internal/domain/models"
	"YoForex/internal/middleware"
	"YoForex/internal/usecase"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/labstack/echo/v4"
)

type UserEchoHandler struct {
	log  *applogger.Logger
	user *usecase.UserUsecase
	auth middleware.Authenticator
}

func NewUserEchoHandler(log *applogger.Logger, user *usecase.UserUsecase, auth middleware.Authenticator) *UserEchoHandler {
	return &UserEchoHandler{log: log, user: user, auth: auth}
}

func (h *UserEchoHandler) RegisterRoutes(g *echo.Group) {
	auth := middleware.RequireAuth(h.auth)
	ug := g.Group("/user")
	ug.GET("/profile", h.Profile, auth)
	ug.PUT("/profile", h.UpdateProfile, auth)
	ug.GET("/settings", h.Settings, auth)
	ug.PUT("/settings", h.UpdateSettings, auth)
}

func (h *UserEchoHandler) Profile(c echo.Context) error {
	u, err := h.user.Profile(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, "profile", err)
	}
	return xhttp.SuccessResponse(c, u)
}

func (h *UserEchoHandler) UpdateProfile(c echo.Context) error {
	req := &models.UpdateProfileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	u, err := h.user.UpdateProfile(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.log, "update profile", err)
	}
	return xhttp.SuccessResponse(c, u)
}

func (h *UserEchoHandler) Settings(c echo.Context) error {
	s, err := h.user.Settings(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, "settings", err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *UserEchoHandler) UpdateSettings(c echo.Context) error {
	req := &models.UpdateSettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	s, err := h.user.UpdateSettings(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.log, "update settings", err)
	}
	return xhttp.SuccessResponse(c, s)
}
