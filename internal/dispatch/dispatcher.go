package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// ErrUnsupportedChannel is recorded on notifications routed to a channel no
// handler claims.
var ErrUnsupportedChannel = errors.New("unsupported notification channel")

// Handler delivers one notification over one channel.
type Handler interface {
	Channel() string
	Send(ctx context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient) error
}

// Store is the persistence boundary for delivery outcomes. *db.DB
// implements it.
type Store interface {
	MarkNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id uuid.UUID, errMsg string, retryCount int, nextRetry time.Time) error
	MarkNotificationAbandoned(ctx context.Context, id uuid.UUID, errMsg string) error
	DeferNotification(ctx context.Context, id uuid.UUID, until time.Time) error
}

// Dispatcher routes a notification to exactly one channel handler, applies
// quiet-hours policy, records the outcome, and computes the retry schedule
// on failure. Delivery errors never propagate past it.
type Dispatcher struct {
	handlers    map[string]Handler
	store       Store
	backoff     []time.Duration
	maxRetries  int
	sendTimeout time.Duration
	logger      *logging.Logger
	now         func() time.Time
}

// NewDispatcher builds a dispatcher over the given channel handlers.
func NewDispatcher(store Store, handlers []Handler, backoff []time.Duration, maxRetries int, sendTimeout time.Duration, logger *logging.Logger) *Dispatcher {
	byChannel := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		byChannel[h.Channel()] = h
	}
	return &Dispatcher{
		handlers:    byChannel,
		store:       store,
		backoff:     backoff,
		maxRetries:  maxRetries,
		sendTimeout: sendTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Dispatch attempts one delivery and reports whether it was sent. forced
// bypasses quiet hours (escalations must always reach the recipient).
func (d *Dispatcher) Dispatch(ctx context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient, forced bool) bool {
	now := d.now()

	channel := n.Channel
	if channel == "" {
		channel = models.ChannelSystem
	}

	if !forced {
		if inWindow, end := quietWindow(now, rcpt.QuietStart, rcpt.QuietEnd); inWindow {
			// Deferred, not attempted: no retry budget is consumed.
			n.NextRetryAt = &end
			if err := d.store.DeferNotification(ctx, n.ID, end); err != nil {
				d.logger.Errorf("notification %s: failed to defer past quiet hours: %v", n.ID, err)
			}
			d.logger.Debugf("notification %s: deferred to %s (quiet hours of user %d)", n.ID, end, rcpt.UserID)
			return false
		}
	}

	handler, ok := d.handlers[channel]
	if !ok {
		d.recordFailure(ctx, n, now, ErrUnsupportedChannel)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := handler.Send(sendCtx, n, alert, rcpt); err != nil {
		d.logger.Warnf("notification %s: %s delivery failed: %v", n.ID, channel, err)
		d.recordFailure(ctx, n, now, err)
		return false
	}

	n.Status = models.NotifSent
	n.SentAt = &now
	n.Error = ""
	n.NextRetryAt = nil
	if err := d.store.MarkNotificationSent(ctx, n.ID, now); err != nil {
		d.logger.Errorf("notification %s: failed to record delivery: %v", n.ID, err)
	}
	d.logger.Infof("notification %s: sent via %s to user %d", n.ID, channel, rcpt.UserID)
	return true
}

func (d *Dispatcher) recordFailure(ctx context.Context, n *models.Notification, now time.Time, sendErr error) {
	n.RetryCount++
	n.Error = sendErr.Error()

	if n.RetryCount >= d.maxRetries {
		n.Status = models.NotifAbandoned
		n.NextRetryAt = nil
		if err := d.store.MarkNotificationAbandoned(ctx, n.ID, n.Error); err != nil {
			d.logger.Errorf("notification %s: failed to record abandonment: %v", n.ID, err)
		}
		return
	}

	next := now.Add(d.backoffFor(n.RetryCount))
	n.Status = models.NotifFailed
	n.NextRetryAt = &next
	if err := d.store.MarkNotificationFailed(ctx, n.ID, n.Error, n.RetryCount, next); err != nil {
		d.logger.Errorf("notification %s: failed to record failure: %v", n.ID, err)
	}
}

// backoffFor returns the delay before the given attempt, clamped to the last
// schedule entry.
func (d *Dispatcher) backoffFor(retryCount int) time.Duration {
	if len(d.backoff) == 0 {
		return time.Hour
	}
	idx := retryCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(d.backoff) {
		idx = len(d.backoff) - 1
	}
	return d.backoff[idx]
}
