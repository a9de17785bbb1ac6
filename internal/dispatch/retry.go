package dispatch

import (
	"context"
	"time"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// RetryStore lists notifications due for redelivery. *db.DB implements it.
type RetryStore interface {
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]models.RetryItem, error)
}

// RetryResult summarizes one retry sweep. Deferred counts attempts pushed
// past a quiet-hours window; those are not failures.
type RetryResult struct {
	Retried   int `json:"retried"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
	Abandoned int `json:"abandoned"`
}

// RetryScheduler re-drives failed and deferred notifications through the
// dispatcher once their next_retry_at comes due.
type RetryScheduler struct {
	store      RetryStore
	dispatcher *Dispatcher
	batch      int
	logger     *logging.Logger
	now        func() time.Time
}

// NewRetryScheduler wires a retry sweep.
func NewRetryScheduler(store RetryStore, dispatcher *Dispatcher, batch int, logger *logging.Logger) *RetryScheduler {
	return &RetryScheduler{
		store:      store,
		dispatcher: dispatcher,
		batch:      batch,
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs one retry sweep, oldest due first. Failures stay on the
// notification rows; the sweep itself never fails.
func (r *RetryScheduler) Run(ctx context.Context) RetryResult {
	var result RetryResult

	items, err := r.store.ListDueRetries(ctx, r.now(), r.batch)
	if err != nil {
		r.logger.Errorf("retry sweep: failed to list due notifications: %v", err)
		return result
	}

	for i := range items {
		item := &items[i]
		result.Retried++
		attempts := item.Notification.RetryCount
		if r.dispatcher.Dispatch(ctx, &item.Notification, &item.Alert, item.Recipient, false) {
			result.Succeeded++
			continue
		}
		switch {
		case item.Notification.Status == models.NotifAbandoned:
			result.Abandoned++
		case item.Notification.RetryCount == attempts:
			// No attempt was consumed: quiet hours pushed the delivery out.
			result.Deferred++
		default:
			result.Failed++
		}
	}

	r.logger.Infof("retry sweep: retried=%d succeeded=%d failed=%d deferred=%d abandoned=%d",
		result.Retried, result.Succeeded, result.Failed, result.Deferred, result.Abandoned)
	return result
}
