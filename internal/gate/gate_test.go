package gate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mosaic/backend/internal/alert"
	banmock "mosaic/backend/internal/banlist/mock"
	"mosaic/backend/internal/config"
	"mosaic/backend/internal/fallback"
	fallbackmock "mosaic/backend/internal/fallback/mock"
	"mosaic/backend/internal/gate"
	"mosaic/backend/internal/model"
	ratemock "mosaic/backend/internal/ratelimit/mock"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (c *captureRecorder) Record(_ context.Context, e model.AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func testGateConfig() *config.Config {
	return &config.Config{
		BanDuration: 24 * time.Hour,
		Profiles: map[string]config.Profile{
			config.ProfileAPI: {Window: time.Minute, MaxRequests: 100},
		},
		Fallback: config.FallbackConfig{
			Enabled:          true,
			Mode:             model.FallbackModeWarn,
			Timeout:          time.Second,
			MaxFailures:      3,
			RecoveryInterval: time.Minute,
			VerifyURL:        "https://verify.example.com/siteverify",
		},
	}
}

func newTestGate(t *testing.T, ctrl *gomock.Controller) (*gate.Gate, *ratemock.MockLimiter, *banmock.MockService, *fallback.Manager, *captureRecorder) {
	t.Helper()

	cfg := testGateConfig()
	limiter := ratemock.NewMockLimiter(ctrl)
	bans := banmock.NewMockService(ctrl)
	auditor := &captureRecorder{}
	fallbacks := fallback.New(cfg.Fallback, fallbackmock.NewMockProber(ctrl), auditor, alert.NopNotifier{})

	return gate.New(cfg, limiter, bans, fallbacks, auditor), limiter, bans, fallbacks, auditor
}

func TestCheck_BannedDeniedBeforeRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, _, bans, _, auditor := newTestGate(t, ctrl)

	// The rate limiter must not even be consulted for a banned identifier.
	bans.EXPECT().IsBanned(gomock.Any(), "id-1").Return(true)

	decision, err := g.Check(context.Background(), "id-1", config.ProfileAPI)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, gate.DenialBanned, decision.Denial)

	require.Len(t, auditor.entries, 1)
	require.Equal(t, model.AuditSourceBanList, auditor.entries[0].Source)
	require.Equal(t, model.AuditActionDenied, auditor.entries[0].Action)
}

func TestCheck_RateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, limiter, bans, _, auditor := newTestGate(t, ctrl)

	bans.EXPECT().IsBanned(gomock.Any(), "id-1").Return(false)
	limiter.EXPECT().
		Check(gomock.Any(), "id-1", gomock.Any()).
		Return(model.RateLimitResult{Allowed: false, RetryAfter: time.Minute}, nil)

	decision, err := g.Check(context.Background(), "id-1", config.ProfileAPI)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, gate.DenialRateLimited, decision.Denial)
	require.Equal(t, time.Minute, decision.RetryAfter)

	require.Len(t, auditor.entries, 1)
	require.Equal(t, model.AuditSourceRateLimit, auditor.entries[0].Source)
}

func TestCheck_Allowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, limiter, bans, _, auditor := newTestGate(t, ctrl)

	bans.EXPECT().IsBanned(gomock.Any(), "id-1").Return(false)
	limiter.EXPECT().
		Check(gomock.Any(), "id-1", gomock.Any()).
		Return(model.RateLimitResult{Allowed: true, Remaining: 42}, nil)

	decision, err := g.Check(context.Background(), "id-1", config.ProfileAPI)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, 42, decision.Remaining)
	require.Empty(t, auditor.entries, "allowed requests are not audited")
}

func TestCheck_UnknownProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, _, _, _, _ := newTestGate(t, ctrl)

	_, err := g.Check(context.Background(), "id-1", "NOPE")
	require.ErrorIs(t, err, gate.ErrUnknownProfile)
}

func TestVerificationDecision(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	g, _, _, _, _ := newTestGate(t, ctrl)

	require.Equal(t, model.FallbackModeVerify, g.VerificationDecision(model.FeatureUserLogin))

	g.ReportVerificationFailure(model.FeatureUserLogin, model.FallbackReasonAPITimeout, "timed out")
	require.Equal(t, model.FallbackModeWarn, g.VerificationDecision(model.FeatureUserLogin))

	// Critical features keep verifying no matter what.
	g.ReportVerificationFailure(model.FeaturePaymentProcess, model.FallbackReasonAPITimeout, "timed out")
	require.Equal(t, model.FallbackModeVerify, g.VerificationDecision(model.FeaturePaymentProcess))
}
