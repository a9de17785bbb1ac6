package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert levels, ordered by severity.
const (
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelCritical = "CRITICAL"
	LevelUrgent   = "URGENT"
)

// Alert statuses. Status and level are independent axes: escalation changes
// the level without forcing a status transition.
const (
	StatusPending      = "PENDING"
	StatusAcknowledged = "ACKNOWLEDGED"
	StatusResolved     = "RESOLVED"
	StatusClosed       = "CLOSED"
	StatusIgnored      = "IGNORED"
)

// levelPriority orders levels for comparison. Unknown levels map to 0, the
// lowest priority.
var levelPriority = map[string]int{
	LevelInfo:     1,
	LevelWarning:  2,
	LevelCritical: 3,
	LevelUrgent:   4,
}

// LevelPriority returns the ordering rank of a level string.
func LevelPriority(level string) int {
	return levelPriority[level]
}

// IsOpenStatus reports whether an alert in this status is still eligible for
// deduplication and escalation.
func IsOpenStatus(status string) bool {
	return status == StatusPending || status == StatusAcknowledged
}

// Target identifies the monitored entity a rule fired against.
type Target struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EscalationRecord is one entry of an alert's escalation history.
type EscalationRecord struct {
	FromLevel string    `json:"from_level"`
	ToLevel   string    `json:"to_level"`
	At        time.Time `json:"at"`
	Reason    string    `json:"reason"`
}

// Alert is one occurrence of a rule firing against a target.
type Alert struct {
	ID          uuid.UUID          `json:"id"`
	Number      string             `json:"number"`
	RuleID      uuid.UUID          `json:"rule_id"`
	RuleCode    string             `json:"rule_code"`
	TargetType  string             `json:"target_type"`
	TargetID    string             `json:"target_id"`
	TargetName  string             `json:"target_name"`
	Level       string             `json:"level"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Status      string             `json:"status"`
	TriggeredAt time.Time          `json:"triggered_at"`
	Escalated   bool               `json:"escalated"`
	EscalatedAt *time.Time         `json:"escalated_at,omitempty"`
	History     []EscalationRecord `json:"history,omitempty"` // stored as JSONB
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// IsOpen reports whether the alert is still eligible for deduplication and
// escalation.
func (a *Alert) IsOpen() bool {
	return IsOpenStatus(a.Status)
}
