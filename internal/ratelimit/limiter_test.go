package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mosaic/backend/internal/config"
	"mosaic/backend/internal/ratelimit"
	"mosaic/backend/internal/ratelimit/mock"
)

var loginProfile = config.Profile{Window: 15 * time.Minute, MaxRequests: 5}

func TestCheck_LoginScenario(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockWindowStore(ctrl)
	limiter := ratelimit.New(store)
	ctx := context.Background()

	// Five sequential requests fill the window: post-insert counts 1..5.
	for i := int64(1); i <= 5; i++ {
		store.EXPECT().
			Slide(gomock.Any(), "ratelimit:203.0.113.1", gomock.Any(), loginProfile.Window, gomock.Any()).
			Return(i, nil)
	}

	for want := 4; want >= 0; want-- {
		res, err := limiter.Check(ctx, "203.0.113.1", loginProfile)
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, want, res.Remaining)
		require.Zero(t, res.RetryAfter)
	}

	// The sixth request exceeds the maximum; its entry is rolled back and
	// the caller is told to retry after the full window (900s).
	store.EXPECT().
		Slide(gomock.Any(), "ratelimit:203.0.113.1", gomock.Any(), loginProfile.Window, gomock.Any()).
		Return(int64(6), nil)
	store.EXPECT().
		DropMember(gomock.Any(), "ratelimit:203.0.113.1", gomock.Any()).
		Return(nil)

	res, err := limiter.Check(ctx, "203.0.113.1", loginProfile)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Equal(t, 900*time.Second, res.RetryAfter)
}

func TestCheck_FailsOpenOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockWindowStore(ctrl)
	limiter := ratelimit.New(store)

	store.EXPECT().
		Slide(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("connection refused"))

	// Deliberate availability-over-strictness tradeoff: an unreachable
	// store must never turn into a user-facing denial.
	res, err := limiter.Check(context.Background(), "id-1", loginProfile)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 4, res.Remaining)
}

func TestCheck_RollbackFailureStillDenies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockWindowStore(ctrl)
	limiter := ratelimit.New(store)

	store.EXPECT().
		Slide(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(6), nil)
	store.EXPECT().
		DropMember(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("connection reset"))

	res, err := limiter.Check(context.Background(), "id-1", loginProfile)
	require.NoError(t, err)
	require.False(t, res.Allowed)
}

func TestCheck_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	limiter := ratelimit.New(mock.NewMockWindowStore(ctrl))

	_, err := limiter.Check(context.Background(), "", loginProfile)
	require.ErrorIs(t, err, ratelimit.ErrInvalid)

	_, err = limiter.Check(context.Background(), "id-1", config.Profile{Window: 0, MaxRequests: 5})
	require.ErrorIs(t, err, ratelimit.ErrInvalid)
}

func TestReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockWindowStore(ctrl)
	limiter := ratelimit.New(store)

	store.EXPECT().Clear(gomock.Any(), "ratelimit:id-1").Return(nil)
	require.NoError(t, limiter.Reset(context.Background(), "id-1"))

	err := limiter.Reset(context.Background(), "  ")
	require.ErrorIs(t, err, ratelimit.ErrInvalid)
}

func TestReset_AllowsFullWindowAgain(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockWindowStore(ctrl)
	limiter := ratelimit.New(store)
	ctx := context.Background()

	store.EXPECT().Clear(gomock.Any(), "ratelimit:id-1").Return(nil)
	require.NoError(t, limiter.Reset(ctx, "id-1"))

	// First check after a reset sees an empty window again.
	store.EXPECT().
		Slide(gomock.Any(), "ratelimit:id-1", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(1), nil)

	res, err := limiter.Check(ctx, "id-1", loginProfile)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 4, res.Remaining)
}

func TestStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockWindowStore(ctrl)
	limiter := ratelimit.New(store)

	store.EXPECT().
		Status(gomock.Any(), "ratelimit:id-1").
		Return(int64(3), 42*time.Second, nil)

	status, err := limiter.Status(context.Background(), "id-1")
	require.NoError(t, err)
	require.Equal(t, int64(3), status.Count)
	require.Equal(t, 42*time.Second, status.TTL)
}
