package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"mosaic/backend/internal/model"
	"mosaic/backend/internal/repository"
)

type AuditHandler struct {
	repo repository.AuditRepository
}

type auditEntryResponse struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Action     string `json:"action"`
	Identifier string `json:"identifier,omitempty"`
	FeatureID  string `json:"featureId,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Details    string `json:"details,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

type auditListResponse struct {
	Items []auditEntryResponse `json:"items"`
}

type auditStatsResponse struct {
	ByAction map[string]int `json:"byAction"`
}

func NewAuditHandler(repo repository.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit", h.ListRecent)
	g.GET("/audit/stats", h.Stats)
}

func (h *AuditHandler) ListRecent(c echo.Context) error {
	limit, err := parseIntQuery(c, "limit", 50)
	if err != nil || limit <= 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid limit"})
	}

	entries, err := h.repo.ListRecent(c.Request().Context(), int(limit))
	if err != nil {
		return writeServiceError(c, err)
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toAuditEntryResponse(e))
	}
	return c.JSON(http.StatusOK, auditListResponse{Items: items})
}

func (h *AuditHandler) Stats(c echo.Context) error {
	counts, err := h.repo.CountByAction(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, auditStatsResponse{ByAction: counts})
}

func toAuditEntryResponse(e model.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		// Snowflake IDs overflow JavaScript numbers, send as string.
		ID:         strconv.FormatInt(e.ID, 10),
		Source:     e.Source,
		Action:     e.Action,
		Identifier: e.Identifier,
		FeatureID:  e.FeatureID,
		Reason:     e.Reason,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}
