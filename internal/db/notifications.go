package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alerting-service/internal/models"
)

const notificationColumns = `
	id, alert_id, channel, target, recipient_id, title, content, status,
	sent_at, error, retry_count, next_retry_at, created_at, updated_at`

// CreateNotification inserts a new notification row.
func (d *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
	INSERT INTO notifications (
		id, alert_id, channel, target, recipient_id, title, content, status,
		sent_at, error, retry_count, next_retry_at, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`
	_, err := d.Pool.Exec(ctx, query,
		n.ID, n.AlertID, n.Channel, n.Target, n.RecipientID, n.Title,
		n.Content, n.Status, n.SentAt, n.Error, n.RetryCount, n.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// MarkNotificationSent records a successful delivery.
func (d *DB) MarkNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
	UPDATE notifications
	SET status = 'SENT', sent_at = $1, error = '', next_retry_at = NULL, updated_at = NOW()
	WHERE id = $2`
	if _, err := d.Pool.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark notification %s sent: %w", id, err)
	}
	return nil
}

// MarkNotificationFailed records a failed attempt with its retry schedule.
func (d *DB) MarkNotificationFailed(ctx context.Context, id uuid.UUID, errMsg string, retryCount int, nextRetry time.Time) error {
	query := `
	UPDATE notifications
	SET status = 'FAILED', error = $1, retry_count = $2, next_retry_at = $3, updated_at = NOW()
	WHERE id = $4`
	if _, err := d.Pool.Exec(ctx, query, errMsg, retryCount, nextRetry, id); err != nil {
		return fmt.Errorf("failed to mark notification %s failed: %w", id, err)
	}
	return nil
}

// MarkNotificationAbandoned terminally fails a notification past its retry
// budget.
func (d *DB) MarkNotificationAbandoned(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
	UPDATE notifications
	SET status = 'ABANDONED', error = $1, next_retry_at = NULL, updated_at = NOW()
	WHERE id = $2`
	if _, err := d.Pool.Exec(ctx, query, errMsg, id); err != nil {
		return fmt.Errorf("failed to mark notification %s abandoned: %w", id, err)
	}
	return nil
}

// DeferNotification pushes a pending notification past a quiet-hours window
// without consuming a retry attempt.
func (d *DB) DeferNotification(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `
	UPDATE notifications
	SET next_retry_at = $1, updated_at = NOW()
	WHERE id = $2`
	if _, err := d.Pool.Exec(ctx, query, until, id); err != nil {
		return fmt.Errorf("failed to defer notification %s: %w", id, err)
	}
	return nil
}

// ListDueRetries returns failed or deferred notifications due for redelivery,
// joined with their alert and the recipient's quiet-hours window, oldest
// first.
func (d *DB) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]models.RetryItem, error) {
	query := `
	SELECT
		n.id, n.alert_id, n.channel, n.target, n.recipient_id, n.title,
		n.content, n.status, n.sent_at, n.error, n.retry_count,
		n.next_retry_at, n.created_at, n.updated_at,
		a.id, a.number, a.rule_id, a.rule_code, a.target_type, a.target_id,
		a.target_name, a.level, a.title, a.content, a.status, a.triggered_at,
		a.escalated, a.escalated_at, a.created_at, a.updated_at,
		COALESCE(u.quiet_start, ''), COALESCE(u.quiet_end, '')
	FROM notifications n
	JOIN alerts a ON a.id = n.alert_id
	LEFT JOIN users u ON u.id = n.recipient_id
	WHERE (n.status = 'FAILED' AND n.next_retry_at <= $1)
	   OR (n.status = 'PENDING' AND n.next_retry_at IS NOT NULL AND n.next_retry_at <= $1)
	ORDER BY n.next_retry_at ASC
	LIMIT $2`
	rows, err := d.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due retries: %w", err)
	}
	defer rows.Close()

	var items []models.RetryItem
	for rows.Next() {
		var it models.RetryItem
		err := rows.Scan(
			&it.Notification.ID, &it.Notification.AlertID, &it.Notification.Channel,
			&it.Notification.Target, &it.Notification.RecipientID,
			&it.Notification.Title, &it.Notification.Content, &it.Notification.Status,
			&it.Notification.SentAt, &it.Notification.Error, &it.Notification.RetryCount,
			&it.Notification.NextRetryAt, &it.Notification.CreatedAt, &it.Notification.UpdatedAt,
			&it.Alert.ID, &it.Alert.Number, &it.Alert.RuleID, &it.Alert.RuleCode,
			&it.Alert.TargetType, &it.Alert.TargetID, &it.Alert.TargetName,
			&it.Alert.Level, &it.Alert.Title, &it.Alert.Content, &it.Alert.Status,
			&it.Alert.TriggeredAt, &it.Alert.Escalated, &it.Alert.EscalatedAt,
			&it.Alert.CreatedAt, &it.Alert.UpdatedAt,
			&it.Recipient.QuietStart, &it.Recipient.QuietEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan retry candidate: %w", err)
		}
		it.Recipient.UserID = it.Notification.RecipientID
		it.Recipient.Channel = it.Notification.Channel
		it.Recipient.Target = it.Notification.Target
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetNotification fetches one notification by id.
func (d *DB) GetNotification(ctx context.Context, id uuid.UUID) (models.Notification, error) {
	query := `SELECT` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotificationRow(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Notification{}, fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return models.Notification{}, fmt.Errorf("failed to get notification %s: %w", id, err)
	}
	return n, nil
}

// ListNotificationsByAlert returns all notifications for one alert.
func (d *DB) ListNotificationsByAlert(ctx context.Context, alertID uuid.UUID) ([]models.Notification, error) {
	query := `
	SELECT` + notificationColumns + `
	FROM notifications
	WHERE alert_id = $1
	ORDER BY created_at ASC`
	rows, err := d.Pool.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for alert %s: %w", alertID, err)
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		n, err := scanNotificationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func scanNotificationRow(row pgx.Row) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID, &n.AlertID, &n.Channel, &n.Target, &n.RecipientID, &n.Title,
		&n.Content, &n.Status, &n.SentAt, &n.Error, &n.RetryCount,
		&n.NextRetryAt, &n.CreatedAt, &n.UpdatedAt,
	)
	return n, err
}
