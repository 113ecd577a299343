package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mosaic/backend/internal/handler"
	"mosaic/backend/internal/model"
	"mosaic/backend/internal/ratelimit"
	ratemock "mosaic/backend/internal/ratelimit/mock"
)

func TestRateLimitHandler_Status_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLimiter := ratemock.NewMockLimiter(ctrl)
	h := handler.NewRateLimitHandler(mockLimiter)

	e := newTestEcho()
	req := newJSONRequest(http.MethodGet, "/ratelimits/abc123", nil)
	c, rec := newTestContext(e, req)
	setPathParams(c, map[string]string{"identifier": "abc123"})

	mockLimiter.EXPECT().
		Status(gomock.Any(), "abc123").
		Return(model.RateLimitStatus{Count: 3, TTL: 45 * time.Second}, nil)

	err := h.Status(c)
	require.NoError(t, err)

	var resp handler.RateLimitStatusResponse
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.Equal(t, "abc123", resp.Identifier)
	require.Equal(t, int64(3), resp.Count)
	require.Equal(t, int64(45), resp.TTLSeconds)
}

func TestRateLimitHandler_Status_Invalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLimiter := ratemock.NewMockLimiter(ctrl)
	h := handler.NewRateLimitHandler(mockLimiter)

	e := newTestEcho()
	req := newJSONRequest(http.MethodGet, "/ratelimits/%20", nil)
	c, rec := newTestContext(e, req)
	setPathParams(c, map[string]string{"identifier": " "})

	mockLimiter.EXPECT().
		Status(gomock.Any(), " ").
		Return(model.RateLimitStatus{}, ratelimit.ErrInvalid)

	err := h.Status(c)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitHandler_Reset_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLimiter := ratemock.NewMockLimiter(ctrl)
	h := handler.NewRateLimitHandler(mockLimiter)

	e := newTestEcho()
	req := newJSONRequest(http.MethodDelete, "/ratelimits/abc123", nil)
	c, rec := newTestContext(e, req)
	setPathParams(c, map[string]string{"identifier": "abc123"})

	mockLimiter.EXPECT().
		Reset(gomock.Any(), "abc123").
		Return(nil)

	err := h.Reset(c)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
