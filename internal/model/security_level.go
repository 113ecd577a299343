package model

// SecurityLevel classifies how sensitive a verification-gated feature is.
// The level is fixed per feature and decides whether degrade-and-continue is
// ever permissible: critical features are never bypassed.
type SecurityLevel int

const (
	SecurityLevelLow SecurityLevel = iota
	SecurityLevelMedium
	SecurityLevelHigh
	SecurityLevelCritical
)

func (l SecurityLevel) String() string {
	switch l {
	case SecurityLevelLow:
		return "LOW"
	case SecurityLevelMedium:
		return "MEDIUM"
	case SecurityLevelHigh:
		return "HIGH"
	case SecurityLevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Verification-gated features known to the platform.
const (
	FeatureCommentPost    = "COMMENT_POST"
	FeatureContentSubmit  = "CONTENT_SUBMIT"
	FeatureUserLogin      = "USER_LOGIN"
	FeatureUserRegister   = "USER_REGISTER"
	FeaturePasswordReset  = "PASSWORD_RESET"
	FeaturePaymentProcess = "PAYMENT_PROCESS"
	FeatureAdminAction    = "ADMIN_ACTION"
)

var featureLevels = map[string]SecurityLevel{
	FeatureCommentPost:    SecurityLevelLow,
	FeatureContentSubmit:  SecurityLevelMedium,
	FeatureUserLogin:      SecurityLevelMedium,
	FeatureUserRegister:   SecurityLevelHigh,
	FeaturePasswordReset:  SecurityLevelHigh,
	FeaturePaymentProcess: SecurityLevelCritical,
	FeatureAdminAction:    SecurityLevelCritical,
}

// FeatureSecurityLevel returns the fixed classification for a feature.
// Unknown features are treated as HIGH rather than silently permissive.
func FeatureSecurityLevel(featureID string) SecurityLevel {
	if level, ok := featureLevels[featureID]; ok {
		return level
	}
	return SecurityLevelHigh
}
