package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mosaic/backend/internal/banlist"
	"mosaic/backend/internal/gate"
	"mosaic/backend/internal/logger"
	"mosaic/backend/internal/ratelimit"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, banlist.ErrInvalid), errors.Is(err, ratelimit.ErrInvalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	case errors.Is(err, gate.ErrUnknownProfile):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown profile"})
	default:
		logger.Error("request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
