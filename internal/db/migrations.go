package db

import (
	"database/sql"
	"fmt"
)

// Base schema - uses Snowflake IDs (no AUTOINCREMENT)
const baseSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
  id INTEGER PRIMARY KEY,
  source TEXT NOT NULL,
  action TEXT NOT NULL,
  identifier TEXT NOT NULL DEFAULT '',
  reason TEXT NOT NULL DEFAULT '',
  details TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_source ON audit_entries(source);
CREATE INDEX IF NOT EXISTS idx_audit_entries_identifier ON audit_entries(identifier);
CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries(created_at);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("migrate base schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	// Migration 1: Add feature_id column for fallback-related entries
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('audit_entries') WHERE name = 'feature_id'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check feature_id column: %w", err)
	}

	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE audit_entries ADD COLUMN feature_id TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add feature_id column: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_entries_feature_id ON audit_entries(feature_id)`); err != nil {
		return fmt.Errorf("create idx_audit_entries_feature_id: %w", err)
	}

	return nil
}
