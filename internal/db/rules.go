package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alerting-service/internal/models"
)

const ruleColumns = `
	id, code, name, kind, target_type, target_field, planned_field, operator,
	threshold, advance_days, expression, default_level, description,
	remediation, enabled, created_at, updated_at`

// GetEnabledRule returns the enabled rule with the given code. A missing or
// disabled rule is a real integrity problem for the caller and surfaces as
// ErrNotFound.
func (d *DB) GetEnabledRule(ctx context.Context, code string) (models.Rule, error) {
	query := `SELECT` + ruleColumns + ` FROM alert_rules WHERE code = $1 AND enabled`
	r, err := scanRule(d.Pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Rule{}, fmt.Errorf("rule %q: %w", code, ErrNotFound)
		}
		return models.Rule{}, fmt.Errorf("failed to get rule %q: %w", code, err)
	}
	return r, nil
}

// GetOrCreateRule returns the rule with defaults.Code, creating it from the
// given defaults on first use.
func (d *DB) GetOrCreateRule(ctx context.Context, defaults models.Rule) (models.Rule, error) {
	if defaults.ID == uuid.Nil {
		defaults.ID = uuid.New()
	}
	insert := `
	INSERT INTO alert_rules (
		id, code, name, kind, target_type, target_field, planned_field, operator,
		threshold, advance_days, expression, default_level, description,
		remediation, enabled, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	ON CONFLICT (code) DO NOTHING`
	_, err := d.Pool.Exec(ctx, insert,
		defaults.ID, defaults.Code, defaults.Name, defaults.Kind,
		defaults.TargetType, defaults.TargetField, defaults.PlannedField,
		defaults.Operator, defaults.Threshold, defaults.AdvanceDays,
		defaults.Expression, defaults.DefaultLevel, defaults.Description,
		defaults.Remediation, defaults.Enabled,
	)
	if err != nil {
		return models.Rule{}, fmt.Errorf("failed to create rule %q: %w", defaults.Code, err)
	}

	query := `SELECT` + ruleColumns + ` FROM alert_rules WHERE code = $1`
	r, err := scanRule(d.Pool.QueryRow(ctx, query, defaults.Code))
	if err != nil {
		return models.Rule{}, fmt.Errorf("failed to load rule %q: %w", defaults.Code, err)
	}
	return r, nil
}

func scanRule(row pgx.Row) (models.Rule, error) {
	var r models.Rule
	err := row.Scan(
		&r.ID, &r.Code, &r.Name, &r.Kind, &r.TargetType, &r.TargetField,
		&r.PlannedField, &r.Operator, &r.Threshold, &r.AdvanceDays,
		&r.Expression, &r.DefaultLevel, &r.Description, &r.Remediation,
		&r.Enabled, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}
