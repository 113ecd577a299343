package http

import (
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"mosaic/backend/internal/gate"
	"mosaic/backend/internal/hashutil"
	"mosaic/backend/internal/logger"
)

// SignatureHeader carries the opaque client signature that, combined with the
// client IP, identifies one caller across requests.
const SignatureHeader = "X-Client-Signature"

type gateDeniedResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int64  `json:"retryAfterSeconds,omitempty"`
}

// GateMiddleware runs every request through the named rate-limit profile and
// the ban list before the handler sees it.
func GateMiddleware(g *gate.Gate, profile string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := hashutil.DeriveIdentifier(c.RealIP(), c.Request().Header.Get(SignatureHeader))

			decision, err := g.Check(c.Request().Context(), identifier, profile)
			if err != nil {
				logger.Error("gate check failed", "profile", profile, "error", err)
				return c.JSON(nethttp.StatusInternalServerError, gateDeniedResponse{Error: "internal error"})
			}

			switch {
			case decision.Allowed:
				c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				return next(c)
			case decision.Denial == gate.DenialBanned:
				return c.JSON(nethttp.StatusForbidden, gateDeniedResponse{Error: "access denied"})
			default:
				retryAfter := int64(decision.RetryAfter.Seconds())
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				return c.JSON(nethttp.StatusTooManyRequests, gateDeniedResponse{
					Error:             "rate limit exceeded",
					RetryAfterSeconds: retryAfter,
				})
			}
		}
	}
}

// RequestLoggerMiddleware logs one line per request, leveled by status.
func RequestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration", time.Since(start).String(),
			}
			switch {
			case status >= nethttp.StatusInternalServerError:
				logger.Error("request", fields...)
			case status >= nethttp.StatusBadRequest:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}
