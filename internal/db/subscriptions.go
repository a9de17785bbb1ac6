package db

import (
	"context"
	"fmt"

	"alerting-service/internal/models"
)

// ResolveRecipients matches active subscriptions against an alert's rule
// code, target type, and level, returning one recipient per (user, channel)
// with the address resolved for that channel.
func (d *DB) ResolveRecipients(ctx context.Context, ruleCode, targetType, level string) ([]models.Recipient, error) {
	query := `
	SELECT
		u.id,
		c.channel,
		CASE c.channel
			WHEN 'EMAIL' THEN COALESCE(u.email, '')
			WHEN 'SMS'   THEN COALESCE(u.phone, '')
			WHEN 'IM'    THEN COALESCE(NULLIF(u.webhook_url, ''), u.chat_id, '')
			ELSE u.id::text
		END,
		s.min_level,
		COALESCE(u.quiet_start, ''),
		COALESCE(u.quiet_end, '')
	FROM subscriptions s
	JOIN users u ON u.id = s.user_id
	CROSS JOIN LATERAL unnest(s.channels) AS c(channel)
	WHERE s.status = 'active'
	  AND (s.rule_code = '' OR s.rule_code = $1)
	  AND (s.target_type = '' OR s.target_type = $2)`
	rows, err := d.Pool.Query(ctx, query, ruleCode, targetType)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var out []models.Recipient
	for rows.Next() {
		var r models.Recipient
		var minLevel string
		if err := rows.Scan(&r.UserID, &r.Channel, &r.Target, &minLevel, &r.QuietStart, &r.QuietEnd); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		// Level filtering happens here rather than in SQL so the ordering
		// lives in one place (models.LevelPriority).
		if models.LevelPriority(level) < models.LevelPriority(minLevel) {
			continue
		}
		key := fmt.Sprintf("%d/%s", r.UserID, r.Channel)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out, rows.Err()
}

// DefaultRecipients returns the fallback recipients used when no subscription
// matches an alert: users flagged alert_fallback, on the SYSTEM channel.
func (d *DB) DefaultRecipients(ctx context.Context) ([]models.Recipient, error) {
	query := `
	SELECT u.id, u.id::text, COALESCE(u.quiet_start, ''), COALESCE(u.quiet_end, '')
	FROM users u
	WHERE u.alert_fallback`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fallback recipients: %w", err)
	}
	defer rows.Close()

	var out []models.Recipient
	for rows.Next() {
		r := models.Recipient{Channel: models.ChannelSystem}
		if err := rows.Scan(&r.UserID, &r.Target, &r.QuietStart, &r.QuietEnd); err != nil {
			return nil, fmt.Errorf("failed to scan fallback recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
