package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"mosaic/backend/internal/fallback"
	"mosaic/backend/internal/model"
)

type FallbackHandler struct {
	fallbacks *fallback.Manager
}

type triggerFallbackRequest struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type fallbackStateResponse struct {
	FeatureID       string `json:"featureId"`
	Reason          string `json:"reason"`
	Mode            string `json:"mode"`
	FailureCount    int    `json:"failureCount"`
	StartTime       string `json:"startTime"`
	LastHealthCheck string `json:"lastHealthCheck,omitempty"`
}

type fallbackListResponse struct {
	Items []fallbackStateResponse `json:"items"`
}

func NewFallbackHandler(fallbacks *fallback.Manager) *FallbackHandler {
	return &FallbackHandler{fallbacks: fallbacks}
}

func (h *FallbackHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/fallbacks", h.List)
	g.POST("/fallbacks/:featureId/trigger", h.Trigger)
	g.DELETE("/fallbacks/:featureId", h.Resolve)
}

func (h *FallbackHandler) List(c echo.Context) error {
	states := h.fallbacks.Active()
	items := make([]fallbackStateResponse, 0, len(states))
	for _, s := range states {
		items = append(items, toFallbackStateResponse(s))
	}
	return c.JSON(http.StatusOK, fallbackListResponse{Items: items})
}

func (h *FallbackHandler) Trigger(c echo.Context) error {
	featureID := c.Param("featureId")

	var req triggerFallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}

	reason := model.FallbackReason(req.Reason)
	if req.Reason == "" {
		reason = model.FallbackReasonManual
	}
	if !reason.Valid() {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown fallback reason"})
	}

	h.fallbacks.Trigger(featureID, reason, req.Message)
	return c.NoContent(http.StatusAccepted)
}

func (h *FallbackHandler) Resolve(c echo.Context) error {
	if !h.fallbacks.Resolve(c.Param("featureId")) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "feature is not degraded"})
	}
	return c.NoContent(http.StatusNoContent)
}

func toFallbackStateResponse(s model.FallbackState) fallbackStateResponse {
	resp := fallbackStateResponse{
		FeatureID:    s.FeatureID,
		Reason:       string(s.Reason),
		Mode:         string(s.Mode),
		FailureCount: s.FailureCount,
		StartTime:    s.StartTime.Format(time.RFC3339),
	}
	if !s.LastHealthCheck.IsZero() {
		resp.LastHealthCheck = s.LastHealthCheck.Format(time.RFC3339)
	}
	return resp
}
