package engine

import (
	"context"

	"alerting-service/internal/logging"
)

// Backfiller creates SYSTEM notifications for open alerts that somehow have
// none (e.g. fan-out crashed mid-way), so no alert stays silent forever.
type Backfiller struct {
	alerts AlertStore
	fan    *fanOut
	batch  int
	logger *logging.Logger
}

// NewBackfiller wires a notification backfill job.
func NewBackfiller(alerts AlertStore, notifs NotificationStore, subs SubscriptionStore, dispatcher Notifier, batch int, logger *logging.Logger) *Backfiller {
	return &Backfiller{
		alerts: alerts,
		fan:    &fanOut{notifs: notifs, subs: subs, dispatcher: dispatcher, logger: logger},
		batch:  batch,
		logger: logger,
	}
}

// Run fans out notifications for up to batch notification-less open alerts.
func (b *Backfiller) Run(ctx context.Context) int {
	alerts, err := b.alerts.ListOpenAlertsWithoutNotifications(ctx, b.batch)
	if err != nil {
		b.logger.Errorf("backfill: failed to list alerts: %v", err)
		return 0
	}
	for i := range alerts {
		b.fan.notifyAll(ctx, &alerts[i], false)
	}
	if len(alerts) > 0 {
		b.logger.Infof("backfill: fanned out %d alerts", len(alerts))
	}
	return len(alerts)
}
