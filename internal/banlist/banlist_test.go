package banlist_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mosaic/backend/internal/banlist"
	"mosaic/backend/internal/banlist/mock"
	"mosaic/backend/internal/model"
)

func TestAdd_RoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	svc := banlist.New(store)
	ctx := context.Background()

	var stored *model.BanRecord
	store.EXPECT().
		SetJSON(gomock.Any(), "ban:203.0.113.9", gomock.Any(), time.Hour).
		DoAndReturn(func(_ context.Context, _ string, v any, _ time.Duration) error {
			stored = v.(*model.BanRecord)
			return nil
		})

	record, err := svc.Add(ctx, "203.0.113.9", model.BanReasonRateLimitExceeded,
		banlist.WithDuration(time.Hour), banlist.WithActor("admin-1"))
	require.NoError(t, err)
	require.Equal(t, stored, record)
	require.Equal(t, model.BanReasonRateLimitExceeded, record.Reason)
	require.Equal(t, "admin-1", record.ActorID)
	require.True(t, record.ExpiresAt.After(record.AddedAt))
	require.WithinDuration(t, record.AddedAt.Add(time.Hour), record.ExpiresAt, time.Second)

	// The identifier reads as banned right away.
	store.EXPECT().
		GetJSON(gomock.Any(), "ban:203.0.113.9", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v any) (bool, error) {
			*v.(*model.BanRecord) = *record
			return true, nil
		})
	require.True(t, svc.IsBanned(ctx, "203.0.113.9"))
}

func TestAdd_DefaultDuration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	svc := banlist.New(store)

	store.EXPECT().
		SetJSON(gomock.Any(), gomock.Any(), gomock.Any(), banlist.DefaultDuration).
		Return(nil)

	record, err := svc.Add(context.Background(), "id-1", model.BanReasonManual)
	require.NoError(t, err)
	require.WithinDuration(t, record.AddedAt.Add(24*time.Hour), record.ExpiresAt, time.Second)
}

func TestAdd_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := banlist.New(mock.NewMockRecordStore(ctrl))
	ctx := context.Background()

	_, err := svc.Add(ctx, "", model.BanReasonManual)
	require.ErrorIs(t, err, banlist.ErrInvalid)

	_, err = svc.Add(ctx, "id-1", model.BanReason("BECAUSE"))
	require.ErrorIs(t, err, banlist.ErrInvalid)

	_, err = svc.Add(ctx, "id-1", model.BanReasonManual, banlist.WithDuration(-time.Minute))
	require.ErrorIs(t, err, banlist.ErrInvalid)
}

func TestIsBanned_MissingAndStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	svc := banlist.New(store)
	ctx := context.Background()

	store.EXPECT().
		GetJSON(gomock.Any(), "ban:id-1", gomock.Any()).
		Return(false, nil)
	require.False(t, svc.IsBanned(ctx, "id-1"))

	// Deliberate fail-to-allow: a store outage must not ban everyone.
	store.EXPECT().
		GetJSON(gomock.Any(), "ban:id-1", gomock.Any()).
		Return(false, errors.New("connection refused"))
	require.False(t, svc.IsBanned(ctx, "id-1"))
}

func TestRemove_MissingReturnsFalse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	svc := banlist.New(store)

	store.EXPECT().Delete(gomock.Any(), "ban:ghost").Return(false, nil)

	removed, err := svc.Remove(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestList_SkipsExpiredBetweenScanAndRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	svc := banlist.New(store)

	store.EXPECT().
		Scan(gomock.Any(), uint64(0), "ban:*", int64(50)).
		Return([]string{"ban:a", "ban:b"}, uint64(7), nil)
	store.EXPECT().
		GetJSON(gomock.Any(), "ban:a", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v any) (bool, error) {
			*v.(*model.BanRecord) = model.BanRecord{Identifier: "a", Reason: model.BanReasonManual}
			return true, nil
		})
	store.EXPECT().
		GetJSON(gomock.Any(), "ban:b", gomock.Any()).
		Return(false, nil)

	records, next, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(7), next)
	require.Len(t, records, 1)
	require.Equal(t, "a", records[0].Identifier)
}

func TestStats_CountsByReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	svc := banlist.New(store)

	records := map[string]model.BanRecord{
		"ban:a": {Identifier: "a", Reason: model.BanReasonManual},
		"ban:b": {Identifier: "b", Reason: model.BanReasonRateLimitExceeded},
		"ban:c": {Identifier: "c", Reason: model.BanReasonManual},
	}

	store.EXPECT().
		Scan(gomock.Any(), uint64(0), "ban:*", int64(100)).
		Return([]string{"ban:a", "ban:b"}, uint64(3), nil)
	store.EXPECT().
		Scan(gomock.Any(), uint64(3), "ban:*", int64(100)).
		Return([]string{"ban:c"}, uint64(0), nil)
	store.EXPECT().
		GetJSON(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string, v any) (bool, error) {
			*v.(*model.BanRecord) = records[key]
			return true, nil
		}).
		Times(3)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[model.BanReason]int{
		model.BanReasonManual:            2,
		model.BanReasonRateLimitExceeded: 1,
	}, stats)
}

func TestSweep_RepairsLegacyRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	svc := banlist.New(store)

	store.EXPECT().
		Scan(gomock.Any(), uint64(0), "ban:*", int64(100)).
		Return([]string{"ban:ttl", "ban:stale", "ban:fresh"}, uint64(0), nil)

	// Already TTL-bounded: untouched.
	store.EXPECT().TTL(gomock.Any(), "ban:ttl").Return(time.Hour, nil)

	// Legacy record whose expiry already passed: deleted.
	store.EXPECT().TTL(gomock.Any(), "ban:stale").Return(time.Duration(-1), nil)
	store.EXPECT().
		GetJSON(gomock.Any(), "ban:stale", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v any) (bool, error) {
			*v.(*model.BanRecord) = model.BanRecord{
				Identifier: "stale",
				ExpiresAt:  time.Now().Add(-time.Hour),
			}
			return true, nil
		})
	store.EXPECT().Delete(gomock.Any(), "ban:stale").Return(true, nil)

	// Legacy record still in force: gets its TTL re-applied.
	store.EXPECT().TTL(gomock.Any(), "ban:fresh").Return(time.Duration(-1), nil)
	store.EXPECT().
		GetJSON(gomock.Any(), "ban:fresh", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v any) (bool, error) {
			*v.(*model.BanRecord) = model.BanRecord{
				Identifier: "fresh",
				ExpiresAt:  time.Now().Add(time.Hour),
			}
			return true, nil
		})
	store.EXPECT().Expire(gomock.Any(), "ban:fresh", gomock.Any()).Return(true, nil)

	removed, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}
