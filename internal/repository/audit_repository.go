//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mosaic/backend/internal/model"
)

// AuditRepository persists gate audit entries. Write satisfies audit.Sink.
type AuditRepository interface {
	Write(ctx context.Context, entry model.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error)
	CountByAction(ctx context.Context) (map[string]int, error)
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit entry repository.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Write inserts one audit entry.
func (r *auditRepository) Write(ctx context.Context, entry model.AuditEntry) error {
	createdAt := entry.CreatedAt.UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, source, action, identifier, feature_id, reason, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Source, entry.Action, entry.Identifier, entry.FeatureID, entry.Reason, entry.Details, createdAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, action, identifier, feature_id, reason, details, created_at
		FROM audit_entries ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Source, &e.Action, &e.Identifier, &e.FeatureID, &e.Reason, &e.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByAction aggregates entry counts per action for observability.
func (r *auditRepository) CountByAction(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT action, COUNT(*) FROM audit_entries GROUP BY action
	`)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("scan audit count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}
