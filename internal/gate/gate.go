// Package gate is the process-wide request-gating service: one instance is
// constructed at startup and handed to request handlers by reference. Per
// request it runs the ban check first, then the rate-limit check; callers
// that need human verification additionally ask for a verification decision.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mosaic/backend/internal/audit"
	"mosaic/backend/internal/banlist"
	"mosaic/backend/internal/config"
	"mosaic/backend/internal/fallback"
	"mosaic/backend/internal/model"
	"mosaic/backend/internal/ratelimit"
)

// ErrUnknownProfile marks a Check against a profile name that was never configured.
var ErrUnknownProfile = errors.New("gate: unknown rate-limit profile")

// DenialReason says which component denied a request.
type DenialReason string

const (
	DenialBanned      DenialReason = "banned"
	DenialRateLimited DenialReason = "rate_limited"
)

// Decision is the outcome of gating one request.
type Decision struct {
	Allowed    bool
	Denial     DenialReason
	Remaining  int
	RetryAfter time.Duration
}

// Gate composes the ban list, rate limiter and fallback manager.
type Gate struct {
	cfg       *config.Config
	limiter   ratelimit.Limiter
	bans      banlist.Service
	fallbacks *fallback.Manager
	auditor   audit.Recorder
}

// New wires the gating service. The config must already be validated.
func New(cfg *config.Config, limiter ratelimit.Limiter, bans banlist.Service, fallbacks *fallback.Manager, auditor audit.Recorder) *Gate {
	return &Gate{
		cfg:       cfg,
		limiter:   limiter,
		bans:      bans,
		fallbacks: fallbacks,
		auditor:   auditor,
	}
}

// Check gates one request: banned identifiers are denied outright, then the
// named profile's sliding window is consulted. Denials are always audited.
func (g *Gate) Check(ctx context.Context, identifier, profileName string) (Decision, error) {
	profile, ok := g.cfg.Profile(profileName)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownProfile, profileName)
	}

	if g.bans.IsBanned(ctx, identifier) {
		g.auditor.Record(ctx, model.AuditEntry{
			Source:     model.AuditSourceBanList,
			Action:     model.AuditActionDenied,
			Identifier: identifier,
			Details:    "profile=" + profileName,
		})
		return Decision{Allowed: false, Denial: DenialBanned}, nil
	}

	result, err := g.limiter.Check(ctx, identifier, profile)
	if err != nil {
		return Decision{}, err
	}

	if !result.Allowed {
		g.auditor.Record(ctx, model.AuditEntry{
			Source:     model.AuditSourceRateLimit,
			Action:     model.AuditActionDenied,
			Identifier: identifier,
			Reason:     string(model.BanReasonRateLimitExceeded),
			Details:    "profile=" + profileName,
		})
		return Decision{
			Allowed:    false,
			Denial:     DenialRateLimited,
			RetryAfter: result.RetryAfter,
		}, nil
	}

	return Decision{Allowed: true, Remaining: result.Remaining}, nil
}

// VerificationDecision says how a verification-gated feature should proceed:
// VERIFY to call the real dependency, otherwise the configured degraded mode.
func (g *Gate) VerificationDecision(featureID string) model.FallbackMode {
	return g.fallbacks.ModeFor(featureID)
}

// ReportVerificationFailure feeds a dependency failure into the circuit breaker.
func (g *Gate) ReportVerificationFailure(featureID string, reason model.FallbackReason, message string) {
	g.fallbacks.Trigger(featureID, reason, message)
}

// Start launches background work (the fallback recovery loop).
func (g *Gate) Start() {
	g.fallbacks.Start()
}

// Stop halts background work. Call once during shutdown.
func (g *Gate) Stop() {
	g.fallbacks.Stop()
}
