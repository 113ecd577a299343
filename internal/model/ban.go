package model

import "time"

// BanReason classifies why an identifier was banned.
type BanReason string

const (
	BanReasonMaliciousContent   BanReason = "MALICIOUS_CONTENT"
	BanReasonRateLimitExceeded  BanReason = "RATE_LIMIT_EXCEEDED"
	BanReasonSuspiciousActivity BanReason = "SUSPICIOUS_ACTIVITY"
	BanReasonManual             BanReason = "MANUAL_BAN"
	BanReasonSecurityViolation  BanReason = "SECURITY_VIOLATION"
)

// Valid reports whether the reason is one of the known ban reasons.
func (r BanReason) Valid() bool {
	switch r {
	case BanReasonMaliciousContent, BanReasonRateLimitExceeded,
		BanReasonSuspiciousActivity, BanReasonManual, BanReasonSecurityViolation:
		return true
	}
	return false
}

// BanRecord is the stored denial entry for one identifier. The record lives
// in the shared store under a TTL equal to the ban duration, so expiry needs
// no cleanup job.
type BanRecord struct {
	Identifier  string    `json:"identifier"`
	Reason      BanReason `json:"reason"`
	AddedAt     time.Time `json:"addedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Description string    `json:"description,omitempty"`
	ActorID     string    `json:"actorId,omitempty"`
}
