package http

import (
	nethttp "net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"mosaic/backend/internal/handler"
)

// NewRouter assembles the admin API. The audit handler is optional: it is
// only registered when the audit database is configured.
func NewRouter(
	banHandler *handler.BanHandler,
	rateLimitHandler *handler.RateLimitHandler,
	fallbackHandler *handler.FallbackHandler,
	auditHandler *handler.AuditHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(RequestLoggerMiddleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(nethttp.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	banHandler.RegisterRoutes(api)
	rateLimitHandler.RegisterRoutes(api)
	fallbackHandler.RegisterRoutes(api)
	if auditHandler != nil {
		auditHandler.RegisterRoutes(api)
	}

	return e
}
