// Package migrations embeds the sales schema.
package migrations

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed 0001_sales.sql
var Schema string

// Apply runs the idempotent schema against db.
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply sales schema: %w", err)
	}
	return nil
}
