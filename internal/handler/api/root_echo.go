package api

import (
	"context"
	"net/http"
	"time"

	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/labstack/echo/v4"
)

const healthTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type RootEchoHandler struct {
	log     *applogger.Logger
	name    string
	version string
	checks  map[string]HealthCheck
}

// NewRootEchoHandler serves the service banner and /health. Every check must pass
// for the service to report healthy.
func NewRootEchoHandler(log *applogger.Logger, name, version string, checks map[string]HealthCheck) *RootEchoHandler {
	return &RootEchoHandler{log: log, name: name, version: version, checks: checks}
}

func (h *RootEchoHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/", h.Index)
	g.GET("/health", h.Health)
}

func (h *RootEchoHandler) Index(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"name":    h.name,
		"version": h.version,
		"status":  "running",
		"endpoints": map[string]string{
			"auth":    "/auth",
			"trading": "/trading",
			"market":  "/market",
			"user":    "/user",
			"billing": "/billing",
			"health":  "/health",
			"metrics": "/metrics",
		},
	})
}

func (h *RootEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	status := "healthy"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", applogger.String("dependency", name), applogger.Error(err))
			deps[name] = "down"
			status = "unhealthy"
			continue
		}
		deps[name] = "up"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, code, map[string]interface{}{
		"status":       status,
		"version":      h.version,
		"dependencies": deps,
		"time":         time.Now().UTC(),
	})
}
