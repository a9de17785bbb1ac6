package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

type fakeRetryStore struct {
	items []models.RetryItem
	err   error
}

func (f *fakeRetryStore) ListDueRetries(_ context.Context, _ time.Time, limit int) ([]models.RetryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func retryItem(channel string, retryCount int) models.RetryItem {
	return models.RetryItem{
		Notification: models.Notification{
			ID:         uuid.New(),
			AlertID:    uuid.New(),
			Channel:    channel,
			Status:     models.NotifFailed,
			RetryCount: retryCount,
		},
		Alert:     models.Alert{ID: uuid.New(), Number: "PRO202608310001"},
		Recipient: models.Recipient{UserID: 1, Channel: channel, Target: "ops@example.com"},
	}
}

func TestRetryScheduler_CountsOutcomes(t *testing.T) {
	emailOK := &stubHandler{channel: models.ChannelEmail}
	smsBroken := &stubHandler{channel: models.ChannelSMS, err: errors.New("gateway 500")}
	dispatcher := newTestDispatcher(newOutcomeStore(), emailOK, smsBroken)

	store := &fakeRetryStore{items: []models.RetryItem{
		retryItem(models.ChannelEmail, 1),
		retryItem(models.ChannelSMS, 1),
		retryItem(models.ChannelSMS, 4), // next failure abandons
	}}
	scheduler := NewRetryScheduler(store, dispatcher, 100, logging.NewNop())

	result := scheduler.Run(context.Background())
	assert.Equal(t, 3, result.Retried)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Abandoned)
}

// A due retry falling inside the recipient's quiet hours is deferred, not
// failed: no attempt is consumed and the deferral is reported separately.
func TestRetryScheduler_QuietHoursCountAsDeferred(t *testing.T) {
	email := &stubHandler{channel: models.ChannelEmail}
	dispatcher := newTestDispatcher(newOutcomeStore(), email)
	dispatcher.now = func() time.Time { return time.Date(2026, 8, 31, 23, 30, 0, 0, time.UTC) }

	quiet := retryItem(models.ChannelEmail, 2)
	quiet.Recipient.QuietStart = "22:00"
	quiet.Recipient.QuietEnd = "07:00"
	store := &fakeRetryStore{items: []models.RetryItem{quiet}}
	scheduler := NewRetryScheduler(store, dispatcher, 100, logging.NewNop())

	result := scheduler.Run(context.Background())
	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 1, result.Deferred)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 0, email.sends)
}

func TestRetryScheduler_BatchLimit(t *testing.T) {
	email := &stubHandler{channel: models.ChannelEmail}
	dispatcher := newTestDispatcher(newOutcomeStore(), email)

	store := &fakeRetryStore{items: []models.RetryItem{
		retryItem(models.ChannelEmail, 1),
		retryItem(models.ChannelEmail, 1),
		retryItem(models.ChannelEmail, 1),
	}}
	scheduler := NewRetryScheduler(store, dispatcher, 2, logging.NewNop())

	result := scheduler.Run(context.Background())
	assert.Equal(t, 2, result.Retried)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, email.sends)
}

func TestRetryScheduler_ListErrorReturnsEmptyResult(t *testing.T) {
	dispatcher := newTestDispatcher(newOutcomeStore())
	store := &fakeRetryStore{err: errors.New("db gone")}
	scheduler := NewRetryScheduler(store, dispatcher, 100, logging.NewNop())

	result := scheduler.Run(context.Background())
	assert.Equal(t, RetryResult{}, result)
}
