package model

import "time"

// Audit sources identify which gate component produced an entry.
const (
	AuditSourceRateLimit = "ratelimit"
	AuditSourceBanList   = "banlist"
	AuditSourceFallback  = "fallback"
)

// Audit actions recorded by the gating layer.
const (
	AuditActionDenied         = "denied"
	AuditActionBanAdded       = "ban_added"
	AuditActionBanRemoved     = "ban_removed"
	AuditActionFallbackOpened = "fallback_opened"
	AuditActionFallbackRepeat = "fallback_repeat"
	AuditActionRecovered      = "recovered"
	AuditActionCriticalBypass = "critical_bypass_rejected"
)

// AuditEntry records one security decision taken by the gating layer so it
// can be reviewed later. Denials are always recorded.
type AuditEntry struct {
	ID         int64
	Source     string
	Action     string
	Identifier string
	FeatureID  string
	Reason     string
	Details    string
	CreatedAt  time.Time
}
