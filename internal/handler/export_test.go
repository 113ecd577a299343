package handler

// Export for testing
type BanResponse = banResponse
type BanListResponse = banListResponse
type BanStatsResponse = banStatsResponse
type SweepResponse = sweepResponse
type RateLimitStatusResponse = rateLimitStatusResponse
type FallbackStateResponse = fallbackStateResponse
type FallbackListResponse = fallbackListResponse
type AuditEntryResponse = auditEntryResponse
type AuditListResponse = auditListResponse
type AuditStatsResponse = auditStatsResponse

var WriteServiceError = writeServiceError
