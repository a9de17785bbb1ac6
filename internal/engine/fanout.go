package engine

import (
	"context"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// fanOut creates and dispatches notifications for an alert. Shared by the
// creator and the upgrader. Fan-out failure never propagates: the alert (or
// its level change) has already committed and must stay committed.
type fanOut struct {
	notifs     NotificationStore
	subs       SubscriptionStore
	dispatcher Notifier
	logger     *logging.Logger
}

func (f *fanOut) notifyAll(ctx context.Context, alert *models.Alert, forced bool) {
	recipients, err := f.subs.ResolveRecipients(ctx, alert.RuleCode, alert.TargetType, alert.Level)
	if err != nil {
		f.logger.Errorf("alert %s: failed to resolve recipients: %v", alert.Number, err)
		return
	}
	if len(recipients) == 0 {
		recipients, err = f.subs.DefaultRecipients(ctx)
		if err != nil {
			f.logger.Errorf("alert %s: failed to load fallback recipients: %v", alert.Number, err)
			return
		}
	}

	for _, rcpt := range recipients {
		n := &models.Notification{
			AlertID:     alert.ID,
			Channel:     rcpt.Channel,
			Target:      rcpt.Target,
			RecipientID: rcpt.UserID,
			Title:       alert.Title,
			Content:     alert.Content,
			Status:      models.NotifPending,
		}
		if err := f.notifs.CreateNotification(ctx, n); err != nil {
			f.logger.Errorf("alert %s: failed to create notification for user %d: %v",
				alert.Number, rcpt.UserID, err)
			continue
		}
		f.dispatcher.Dispatch(ctx, n, alert, rcpt, forced)
	}
}
