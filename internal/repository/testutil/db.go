package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"mosaic/backend/internal/db"
	"mosaic/backend/internal/model"
	"mosaic/backend/pkg/snowflake"

	_ "modernc.org/sqlite"
)

// snowflakeOnce ensures snowflake is initialized exactly once across parallel tests.
var snowflakeOnce sync.Once

// NewTestDB creates an in-memory SQLite database and runs all migrations.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	snowflakeOnce.Do(func() {
		if err := snowflake.Init(0); err != nil {
			// t.Fatalf is not usable inside sync.Once, so panic instead
			panic("failed to initialize snowflake: " + err.Error())
		}
	})

	// Shared-cache mode supports concurrent access to the in-memory database;
	// a unique name per test avoids collisions.
	dbName := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	database, err := sql.Open("sqlite", dbName)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

// SeedAuditEntry inserts a test audit entry and returns its ID.
func SeedAuditEntry(t *testing.T, db *sql.DB, entry model.AuditEntry) int64 {
	t.Helper()

	if entry.ID == 0 {
		entry.ID = snowflake.NextID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(
		context.Background(),
		`INSERT INTO audit_entries (id, source, action, identifier, feature_id, reason, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Source, entry.Action, entry.Identifier, entry.FeatureID,
		entry.Reason, entry.Details, entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("failed to seed audit entry: %v", err)
	}

	return entry.ID
}
