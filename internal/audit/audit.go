//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package audit

import (
	"context"
	"time"

	"mosaic/backend/internal/logger"
	"mosaic/backend/internal/model"
	"mosaic/backend/pkg/snowflake"
)

// Recorder receives every security decision the gating layer takes.
// Implementations must never surface failures to the request path.
type Recorder interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

// Sink persists audit entries somewhere durable.
type Sink interface {
	Write(ctx context.Context, entry model.AuditEntry) error
}

type recorder struct {
	sinks []Sink
}

// New creates a Recorder that stamps entries and fans them out. Entries are
// always emitted to the structured log; sinks are best-effort on top: a
// failing sink is logged and skipped, because an audit hiccup must not turn
// into a user-facing outage.
func New(sinks ...Sink) Recorder {
	return &recorder{sinks: sinks}
}

func (r *recorder) Record(ctx context.Context, entry model.AuditEntry) {
	if entry.ID == 0 {
		entry.ID = snowflake.NextID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	logger.Info("audit",
		"id", entry.ID,
		"source", entry.Source,
		"action", entry.Action,
		"identifier", entry.Identifier,
		"feature", entry.FeatureID,
		"reason", entry.Reason,
		"details", entry.Details,
	)

	for _, sink := range r.sinks {
		if err := sink.Write(ctx, entry); err != nil {
			logger.Warn("audit sink write failed", "id", entry.ID, "error", err)
		}
	}
}
