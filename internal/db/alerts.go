package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alerting-service/internal/models"
)

const alertColumns = `
	id, number, rule_id, rule_code, target_type, target_id, target_name, level,
	title, content, status, triggered_at, escalated, escalated_at, history,
	created_at, updated_at`

// CreateAlert inserts a new alert record.
func (d *DB) CreateAlert(ctx context.Context, a *models.Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	history, err := json.Marshal(a.History)
	if err != nil {
		return fmt.Errorf("failed to encode escalation history: %w", err)
	}
	query := `
	INSERT INTO alerts (
		id, number, rule_id, rule_code, target_type, target_id, target_name,
		level, title, content, status, triggered_at, escalated, escalated_at,
		history, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())`
	_, err = d.Pool.Exec(ctx, query,
		a.ID, a.Number, a.RuleID, a.RuleCode, a.TargetType, a.TargetID,
		a.TargetName, a.Level, a.Title, a.Content, a.Status, a.TriggeredAt,
		a.Escalated, a.EscalatedAt, history,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert fetches one alert by id.
func (d *DB) GetAlert(ctx context.Context, id uuid.UUID) (models.Alert, error) {
	query := `SELECT` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlertRow(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return models.Alert{}, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return a, nil
}

// FindOpenAlert returns the most recent open alert for the given rule+target
// triggered since the given time, or nil when none exists.
func (d *DB) FindOpenAlert(ctx context.Context, ruleID uuid.UUID, targetType, targetID string, since time.Time) (*models.Alert, error) {
	query := `
	SELECT` + alertColumns + `
	FROM alerts
	WHERE rule_id = $1 AND target_type = $2 AND target_id = $3
	  AND status IN ('PENDING', 'ACKNOWLEDGED')
	  AND triggered_at >= $4
	ORDER BY triggered_at DESC
	LIMIT 1`
	a, err := scanAlertRow(d.Pool.QueryRow(ctx, query, ruleID, targetType, targetID, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open alert: %w", err)
	}
	return &a, nil
}

// CountAlertsByNumberPrefix counts alerts whose number starts with prefix.
// Used for the daily per-rule numbering sequence.
func (d *DB) CountAlertsByNumberPrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM alerts WHERE number LIKE $1 || '%'`
	if err := d.Pool.QueryRow(ctx, query, prefix).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts for prefix %q: %w", prefix, err)
	}
	return n, nil
}

// UpdateAlertEscalation commits a level raise. The update is conditional on
// the level still being fromLevel and the alert still being open, so two
// concurrent sweeps cannot double-append history. Returns false when the row
// was changed underneath us.
func (d *DB) UpdateAlertEscalation(ctx context.Context, a *models.Alert, fromLevel string) (bool, error) {
	history, err := json.Marshal(a.History)
	if err != nil {
		return false, fmt.Errorf("failed to encode escalation history: %w", err)
	}
	query := `
	UPDATE alerts
	SET level = $1, title = $2, content = $3, escalated = $4, escalated_at = $5,
	    history = $6, updated_at = NOW()
	WHERE id = $7 AND level = $8 AND status IN ('PENDING', 'ACKNOWLEDGED')`
	tag, err := d.Pool.Exec(ctx, query,
		a.Level, a.Title, a.Content, a.Escalated, a.EscalatedAt, history,
		a.ID, fromLevel,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update alert %s escalation: %w", a.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListEscalationCandidates returns open alerts below URGENT, oldest first.
func (d *DB) ListEscalationCandidates(ctx context.Context) ([]models.Alert, error) {
	query := `
	SELECT` + alertColumns + `
	FROM alerts
	WHERE status IN ('PENDING', 'ACKNOWLEDGED') AND level <> 'URGENT'
	ORDER BY triggered_at ASC`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation candidates: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// UpdateAlertStatus transitions an alert's status. Closed alerts are
// immutable.
func (d *DB) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
	UPDATE alerts
	SET status = $1, updated_at = NOW()
	WHERE id = $2 AND status <> 'CLOSED'`
	tag, err := d.Pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update alert %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListAlerts returns alerts with pagination and an optional status filter.
func (d *DB) ListAlerts(ctx context.Context, status string, limit, offset int) ([]models.Alert, int, error) {
	countQ := `SELECT COUNT(*) FROM alerts`
	countArgs := []interface{}{}
	if status != "" {
		countQ += ` WHERE status = $1`
		countArgs = append(countArgs, status)
	}
	var total int
	if err := d.Pool.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `SELECT` + alertColumns + ` FROM alerts`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY triggered_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY triggered_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()
	list, err := scanAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListOpenAlertsWithoutNotifications returns open alerts that have no
// notification rows at all, for the backfill job.
func (d *DB) ListOpenAlertsWithoutNotifications(ctx context.Context, limit int) ([]models.Alert, error) {
	query := `
	SELECT` + alertColumns + `
	FROM alerts a
	WHERE a.status IN ('PENDING', 'ACKNOWLEDGED')
	  AND NOT EXISTS (SELECT 1 FROM notifications n WHERE n.alert_id = a.id)
	ORDER BY a.triggered_at ASC
	LIMIT $1`
	rows, err := d.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts without notifications: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func scanAlertRow(row pgx.Row) (models.Alert, error) {
	var a models.Alert
	var history []byte
	err := row.Scan(
		&a.ID, &a.Number, &a.RuleID, &a.RuleCode, &a.TargetType, &a.TargetID,
		&a.TargetName, &a.Level, &a.Title, &a.Content, &a.Status,
		&a.TriggeredAt, &a.Escalated, &a.EscalatedAt, &history,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return models.Alert{}, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.History); err != nil {
			return models.Alert{}, fmt.Errorf("failed to decode escalation history: %w", err)
		}
	}
	return a, nil
}

func scanAlerts(rows pgx.Rows) ([]models.Alert, error) {
	var list []models.Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
