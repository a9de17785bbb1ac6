package models

import (
	"time"

	"github.com/google/uuid"
)

// Rule kinds. Exactly one of {Threshold+Operator, Expression} is meaningful,
// selected by Kind.
const (
	KindThreshold = "THRESHOLD"
	KindDeviation = "DEVIATION"
	KindOverdue   = "OVERDUE"
	KindCustom    = "CUSTOM"
)

// Comparison operators for THRESHOLD and DEVIATION rules.
const (
	OpGT  = "GT"
	OpGTE = "GTE"
	OpLT  = "LT"
	OpLTE = "LTE"
	OpEQ  = "EQ"
)

// Rule is a standing definition of a condition watched against incoming facts.
type Rule struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	TargetType   string    `json:"target_type"`
	TargetField  string    `json:"target_field"`  // dotted path into the target snapshot
	PlannedField string    `json:"planned_field"` // DEVIATION only; empty means derive from TargetField
	Operator     string    `json:"operator"`
	Threshold    string    `json:"threshold"` // numeric-coerced at evaluation time
	AdvanceDays  int       `json:"advance_days"`
	Expression   string    `json:"expression"` // CUSTOM only
	DefaultLevel string    `json:"default_level"`
	Description  string    `json:"description"`
	Remediation  string    `json:"remediation"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
