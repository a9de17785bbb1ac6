package engine

import (
	"context"
	"fmt"
	"time"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// Upgrader raises an existing alert's level, records history, and
// force-notifies recipients. Level never decreases.
type Upgrader struct {
	alerts AlertStore
	fan    *fanOut
	logger *logging.Logger
	now    func() time.Time
}

// NewUpgrader wires an alert upgrader.
func NewUpgrader(alerts AlertStore, notifs NotificationStore, subs SubscriptionStore, dispatcher Notifier, logger *logging.Logger) *Upgrader {
	return &Upgrader{
		alerts: alerts,
		fan:    &fanOut{notifs: notifs, subs: subs, dispatcher: dispatcher, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Upgrade raises the alert to newLevel. A lower-or-equal level is a no-op.
// The level change commits via a conditional update; a lost race means
// another writer already escalated and this call backs off without
// dispatching, returning the alert unchanged. Notification dispatch bypasses
// quiet hours: an escalation must always reach the recipient.
func (u *Upgrader) Upgrade(ctx context.Context, alert *models.Alert, newLevel, reason string) (*models.Alert, error) {
	if models.LevelPriority(newLevel) <= models.LevelPriority(alert.Level) {
		return alert, nil
	}

	now := u.now()
	fromLevel := alert.Level
	record := models.EscalationRecord{
		FromLevel: fromLevel,
		ToLevel:   newLevel,
		At:        now,
		Reason:    reason,
	}

	// Work on a copy so a lost race leaves the caller's alert untouched.
	upgraded := *alert
	upgraded.Level = newLevel
	upgraded.Escalated = true
	upgraded.EscalatedAt = &now
	upgraded.History = append(append([]models.EscalationRecord(nil), alert.History...), record)
	upgraded.Title = retitle(alert.Title, fromLevel, newLevel)
	upgraded.Content = alert.Content + "\n" + escalationNote(record)

	ok, err := u.alerts.UpdateAlertEscalation(ctx, &upgraded, fromLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to escalate alert %s: %w", alert.Number, err)
	}
	if !ok {
		u.logger.Warnf("alert %s: escalation to %s lost a concurrent update, skipping", alert.Number, newLevel)
		return alert, nil
	}
	u.logger.Infof("escalated alert %s: %s -> %s (%s)", alert.Number, fromLevel, newLevel, reason)

	*alert = upgraded
	u.fan.notifyAll(ctx, alert, true)
	return alert, nil
}
