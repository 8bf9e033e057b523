package api

import (
	"errors"

	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/labstack/echo/v4"
)

// respondError renders err. Failures that are not user facing are logged first since
// their detail never reaches the client.
func respondError(c echo.Context, log *applogger.Logger, op string, err error) error {
	var appErr *xhttp.AppError
	if !errors.As(err, &appErr) {
		log.Error(op+" failed",
			applogger.String("route", c.Path()),
			applogger.Error(err),
		)
	}
	return xhttp.AppErrorResponse(c, err)
}
