package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"mosaic/backend/internal/audit"
	"mosaic/backend/internal/banlist"
	"mosaic/backend/internal/model"
)

type BanHandler struct {
	bans    banlist.Service
	auditor audit.Recorder
}

type createBanRequest struct {
	Identifier      string `json:"identifier"`
	Reason          string `json:"reason"`
	DurationSeconds int64  `json:"durationSeconds"`
	Description     string `json:"description"`
	ActorID         string `json:"actorId"`
}

type banResponse struct {
	Identifier  string `json:"identifier"`
	Reason      string `json:"reason"`
	AddedAt     string `json:"addedAt"`
	ExpiresAt   string `json:"expiresAt"`
	Description string `json:"description,omitempty"`
	ActorID     string `json:"actorId,omitempty"`
}

type banListResponse struct {
	Items      []banResponse `json:"items"`
	NextCursor uint64        `json:"nextCursor"`
}

type banStatsResponse struct {
	Total    int            `json:"total"`
	ByReason map[string]int `json:"byReason"`
}

type sweepResponse struct {
	Removed int `json:"removed"`
}

func NewBanHandler(bans banlist.Service, auditor audit.Recorder) *BanHandler {
	return &BanHandler{bans: bans, auditor: auditor}
}

func (h *BanHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/bans", h.Create)
	g.GET("/bans", h.List)
	g.GET("/bans/stats", h.Stats)
	g.POST("/bans/sweep", h.Sweep)
	g.GET("/bans/:identifier", h.Get)
	g.DELETE("/bans/:identifier", h.Delete)
}

func (h *BanHandler) Create(c echo.Context) error {
	var req createBanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}

	opts := []banlist.Option{
		banlist.WithDescription(req.Description),
		banlist.WithActor(req.ActorID),
	}
	if req.DurationSeconds != 0 {
		opts = append(opts, banlist.WithDuration(time.Duration(req.DurationSeconds)*time.Second))
	}

	record, err := h.bans.Add(c.Request().Context(), req.Identifier, model.BanReason(req.Reason), opts...)
	if err != nil {
		return writeServiceError(c, err)
	}

	h.auditor.Record(c.Request().Context(), model.AuditEntry{
		Source:     model.AuditSourceBanList,
		Action:     model.AuditActionBanAdded,
		Identifier: record.Identifier,
		Reason:     string(record.Reason),
		Details:    "actor=" + req.ActorID,
	})
	return c.JSON(http.StatusCreated, toBanResponse(record))
}

func (h *BanHandler) Get(c echo.Context) error {
	record, err := h.bans.Get(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return writeServiceError(c, err)
	}
	if record == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "ban not found"})
	}
	return c.JSON(http.StatusOK, toBanResponse(record))
}

func (h *BanHandler) Delete(c echo.Context) error {
	identifier := c.Param("identifier")
	removed, err := h.bans.Remove(c.Request().Context(), identifier)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !removed {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "ban not found"})
	}

	h.auditor.Record(c.Request().Context(), model.AuditEntry{
		Source:     model.AuditSourceBanList,
		Action:     model.AuditActionBanRemoved,
		Identifier: identifier,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *BanHandler) List(c echo.Context) error {
	cursor, err := parseUintQuery(c, "cursor", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid cursor"})
	}
	count, err := parseIntQuery(c, "count", 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid count"})
	}

	records, next, err := h.bans.List(c.Request().Context(), cursor, count)
	if err != nil {
		return writeServiceError(c, err)
	}

	items := make([]banResponse, 0, len(records))
	for i := range records {
		items = append(items, toBanResponse(&records[i]))
	}
	return c.JSON(http.StatusOK, banListResponse{Items: items, NextCursor: next})
}

func (h *BanHandler) Stats(c echo.Context) error {
	stats, err := h.bans.Stats(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	resp := banStatsResponse{ByReason: make(map[string]int, len(stats))}
	for reason, n := range stats {
		resp.ByReason[string(reason)] = n
		resp.Total += n
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BanHandler) Sweep(c echo.Context) error {
	removed, err := h.bans.Sweep(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, sweepResponse{Removed: removed})
}

func toBanResponse(record *model.BanRecord) banResponse {
	return banResponse{
		Identifier:  record.Identifier,
		Reason:      string(record.Reason),
		AddedAt:     record.AddedAt.Format(time.RFC3339),
		ExpiresAt:   record.ExpiresAt.Format(time.RFC3339),
		Description: record.Description,
		ActorID:     record.ActorID,
	}
}
