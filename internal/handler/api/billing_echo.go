package api

import (
	"io"
	"net/http"

	"YoForex/internal/domain/models"
	"YoForex/internal/middleware"
	"YoForex/internal/usecase"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Upper bound on an accepted webhook payload.
const maxWebhookBody = 64 << 10

type BillingEchoHandler struct {
	log     *applogger.Logger
	billing *usecase.BillingUsecase
	auth    middleware.Authenticator
}

func NewBillingEchoHandler(log *applogger.Logger, billing *usecase.BillingUsecase, auth middleware.Authenticator) *BillingEchoHandler {
	return &BillingEchoHandler{log: log, billing: billing, auth: auth}
}

func (h *BillingEchoHandler) RegisterRoutes(g *echo.Group) {
	auth := middleware.RequireAuth(h.auth)
	bg := g.Group("/billing")
	bg.GET("/plans", h.Plans)
	bg.GET("/info", h.Info, auth)
	bg.POST("/subscribe", h.Subscribe, auth)
	bg.POST("/cancel", h.Cancel, auth)
	bg.POST("/webhook", h.Webhook)
}

func (h *BillingEchoHandler) Plans(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.billing.Plans())
}

func (h *BillingEchoHandler) Info(c echo.Context) error {
	info, err := h.billing.Info(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, "billing info", err)
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *BillingEchoHandler) Subscribe(c echo.Context) error {
	req := &models.SubscribeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	res, err := h.billing.Subscribe(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.log, "subscribe", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BillingEchoHandler) Cancel(c echo.Context) error {
	sub, err := h.billing.Cancel(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.log, "cancel subscription", err)
	}
	return xhttp.SuccessResponse(c, sub)
}

// Webhook needs the raw body: the signature covers the exact bytes sent.
func (h *BillingEchoHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("Unreadable request body").WithError(err))
	}
	if len(body) > maxWebhookBody {
		return xhttp.AppErrorResponse(c, xhttp.PayloadTooLargeError("Webhook payload too large"))
	}
	if err := h.billing.HandleWebhook(c.Request().Context(), body, c.Request().Header.Get("Stripe-Signature")); err != nil {
		return respondError(c, h.log, "billing webhook", err)
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]bool{"received": true})
}
