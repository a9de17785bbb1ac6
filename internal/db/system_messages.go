package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// HasSystemMessage reports whether an in-app copy of the alert already exists
// for the given target. The SYSTEM channel is idempotent across retries.
func (d *DB) HasSystemMessage(ctx context.Context, alertID uuid.UUID, target string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM system_messages WHERE alert_id = $1 AND target = $2)`
	if err := d.Pool.QueryRow(ctx, query, alertID, target).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check system message: %w", err)
	}
	return exists, nil
}

// CreateSystemMessage stores the in-app delivery record.
func (d *DB) CreateSystemMessage(ctx context.Context, alertID uuid.UUID, userID int64, target, title, content string) error {
	query := `
	INSERT INTO system_messages (id, alert_id, user_id, target, title, content, read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, false, NOW())`
	if _, err := d.Pool.Exec(ctx, query, uuid.New(), alertID, userID, target, title, content); err != nil {
		return fmt.Errorf("failed to insert system message: %w", err)
	}
	return nil
}
