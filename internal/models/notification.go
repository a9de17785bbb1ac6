package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification channels.
const (
	ChannelSystem = "SYSTEM"
	ChannelEmail  = "EMAIL"
	ChannelIM     = "IM"
	ChannelSMS    = "SMS"
)

// Notification statuses. ABANDONED is terminal and only reached after the
// retry count passes the configured maximum.
const (
	NotifPending   = "PENDING"
	NotifSent      = "SENT"
	NotifFailed    = "FAILED"
	NotifAbandoned = "ABANDONED"
)

// Notification is one planned or attempted delivery of an alert to one
// recipient over one channel.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	AlertID     uuid.UUID  `json:"alert_id"`
	Channel     string     `json:"channel"`
	Target      string     `json:"target"` // opaque address: user id, email, webhook url, phone
	RecipientID int64      `json:"recipient_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Status      string     `json:"status"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
