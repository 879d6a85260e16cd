package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

// Schema creates the vehicle, history and outbox tables. It is idempotent.
//
//go:embed schema.sql
var Schema string

// Migrate applies Schema to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
