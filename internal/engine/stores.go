package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"alerting-service/internal/models"
)

// AlertStore is the persistence boundary for alerts. *db.DB implements it.
type AlertStore interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	FindOpenAlert(ctx context.Context, ruleID uuid.UUID, targetType, targetID string, since time.Time) (*models.Alert, error)
	CountAlertsByNumberPrefix(ctx context.Context, prefix string) (int, error)
	UpdateAlertEscalation(ctx context.Context, a *models.Alert, fromLevel string) (bool, error)
	ListEscalationCandidates(ctx context.Context) ([]models.Alert, error)
	ListOpenAlertsWithoutNotifications(ctx context.Context, limit int) ([]models.Alert, error)
}

// NotificationStore persists notification rows created during fan-out.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// SubscriptionStore resolves who gets told about an alert.
type SubscriptionStore interface {
	ResolveRecipients(ctx context.Context, ruleCode, targetType, level string) ([]models.Recipient, error)
	DefaultRecipients(ctx context.Context) ([]models.Recipient, error)
}

// Notifier attempts one delivery. The dispatcher implements it; fan-out
// treats the outcome as best-effort.
type Notifier interface {
	Dispatch(ctx context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient, forced bool) bool
}
