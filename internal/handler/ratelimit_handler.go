package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mosaic/backend/internal/ratelimit"
)

type RateLimitHandler struct {
	limiter ratelimit.Limiter
}

type rateLimitStatusResponse struct {
	Identifier string `json:"identifier"`
	Count      int64  `json:"count"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

func NewRateLimitHandler(limiter ratelimit.Limiter) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter}
}

func (h *RateLimitHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ratelimits/:identifier", h.Status)
	g.DELETE("/ratelimits/:identifier", h.Reset)
}

func (h *RateLimitHandler) Status(c echo.Context) error {
	identifier := c.Param("identifier")
	status, err := h.limiter.Status(c.Request().Context(), identifier)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, rateLimitStatusResponse{
		Identifier: identifier,
		Count:      status.Count,
		TTLSeconds: int64(status.TTL.Seconds()),
	})
}

func (h *RateLimitHandler) Reset(c echo.Context) error {
	if err := h.limiter.Reset(c.Request().Context(), c.Param("identifier")); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
