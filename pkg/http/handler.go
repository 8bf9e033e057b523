package http

import "github.com/labstack/echo/v4"

// Handler registers its routes on a group. Every API surface implements it.
type Handler interface {
	RegisterRoutes(g *echo.Group)
}
