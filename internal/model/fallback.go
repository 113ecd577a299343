package model

import "time"

// FallbackMode selects what happens to verification-gated operations while a
// feature is degraded.
type FallbackMode string

const (
	// FallbackModeSkip proceeds without verification and logs the bypass.
	FallbackModeSkip FallbackMode = "SKIP"
	// FallbackModeWarn proceeds but flags the operation for later review.
	FallbackModeWarn FallbackMode = "WARN"
	// FallbackModeBlock rejects the operation outright.
	FallbackModeBlock FallbackMode = "BLOCK"
	// FallbackModeAdaptive delegates the choice to a caller-supplied policy.
	FallbackModeAdaptive FallbackMode = "ADAPTIVE"
	// FallbackModeVerify means no fallback is in effect: call the real dependency.
	FallbackModeVerify FallbackMode = "VERIFY"
)

// Valid reports whether the mode is a configurable degraded mode.
func (m FallbackMode) Valid() bool {
	switch m {
	case FallbackModeSkip, FallbackModeWarn, FallbackModeBlock, FallbackModeAdaptive:
		return true
	}
	return false
}

// FallbackReason classifies why a feature entered the degraded state.
type FallbackReason string

const (
	FallbackReasonAPITimeout     FallbackReason = "API_TIMEOUT"
	FallbackReasonAPIError       FallbackReason = "API_ERROR"
	FallbackReasonAPIRateLimited FallbackReason = "API_RATE_LIMITED"
	FallbackReasonConfigError    FallbackReason = "CONFIG_ERROR"
	FallbackReasonManual         FallbackReason = "MANUAL"
)

// Valid reports whether the reason is one of the known fallback reasons.
func (r FallbackReason) Valid() bool {
	switch r {
	case FallbackReasonAPITimeout, FallbackReasonAPIError,
		FallbackReasonAPIRateLimited, FallbackReasonConfigError, FallbackReasonManual:
		return true
	}
	return false
}

// FallbackState tracks one degraded feature. State is owned by the in-process
// manager and never persisted; a restart resets every feature to normal.
type FallbackState struct {
	FeatureID       string         `json:"featureId"`
	Active          bool           `json:"active"`
	Reason          FallbackReason `json:"reason"`
	StartTime       time.Time      `json:"startTime"`
	FailureCount    int            `json:"failureCount"`
	LastHealthCheck time.Time      `json:"lastHealthCheck"`
	Mode            FallbackMode   `json:"mode"`
}
