package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription binds a user to alerts from a rule or target type at or above
// a minimum level, over a set of channels.
type Subscription struct {
	ID         uuid.UUID `json:"id"`
	UserID     int64     `json:"user_id"`
	RuleCode   string    `json:"rule_code"`   // empty matches any rule
	TargetType string    `json:"target_type"` // empty matches any target type
	MinLevel   string    `json:"min_level"`
	Channels   []string  `json:"channels"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recipient is one resolved (user, channel, address) delivery intent, carrying
// the user's quiet-hours window.
type Recipient struct {
	UserID     int64  `json:"user_id"`
	Channel    string `json:"channel"`
	Target     string `json:"target"`
	QuietStart string `json:"quiet_start,omitempty"` // "HH:MM", empty disables quiet hours
	QuietEnd   string `json:"quiet_end,omitempty"`
}
