package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"alerting-service/internal/models"
)

// In-memory store fakes shared by the engine tests.

type fakeAlertStore struct {
	alerts         []*models.Alert
	updateRejected bool // simulate losing the conditional update race
}

func (f *fakeAlertStore) CreateAlert(_ context.Context, a *models.Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	stored := *a
	f.alerts = append(f.alerts, &stored)
	return nil
}

func (f *fakeAlertStore) FindOpenAlert(_ context.Context, ruleID uuid.UUID, targetType, targetID string, since time.Time) (*models.Alert, error) {
	var found *models.Alert
	for _, a := range f.alerts {
		if a.RuleID == ruleID && a.TargetType == targetType && a.TargetID == targetID &&
			a.IsOpen() && !a.TriggeredAt.Before(since) {
			if found == nil || a.TriggeredAt.After(found.TriggeredAt) {
				found = a
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	copied := *found
	return &copied, nil
}

func (f *fakeAlertStore) CountAlertsByNumberPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, a := range f.alerts {
		if strings.HasPrefix(a.Number, prefix) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAlertStore) UpdateAlertEscalation(_ context.Context, a *models.Alert, fromLevel string) (bool, error) {
	if f.updateRejected {
		return false, nil
	}
	for _, stored := range f.alerts {
		if stored.ID == a.ID {
			if stored.Level != fromLevel || !stored.IsOpen() {
				return false, nil
			}
			*stored = *a
			return true, nil
		}
	}
	return false, errors.New("alert not found")
}

func (f *fakeAlertStore) ListEscalationCandidates(_ context.Context) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range f.alerts {
		if a.IsOpen() && a.Level != models.LevelUrgent {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) ListOpenAlertsWithoutNotifications(_ context.Context, _ int) ([]models.Alert, error) {
	return nil, nil
}

func (f *fakeAlertStore) get(id uuid.UUID) *models.Alert {
	for _, a := range f.alerts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

type fakeNotificationStore struct {
	created []*models.Notification
	err     error
}

func (f *fakeNotificationStore) CreateNotification(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	f.created = append(f.created, n)
	return nil
}

type fakeSubscriptionStore struct {
	recipients []models.Recipient
	defaults   []models.Recipient
}

func (f *fakeSubscriptionStore) ResolveRecipients(_ context.Context, _, _, _ string) ([]models.Recipient, error) {
	return f.recipients, nil
}

func (f *fakeSubscriptionStore) DefaultRecipients(_ context.Context) ([]models.Recipient, error) {
	return f.defaults, nil
}

type dispatchCall struct {
	notification *models.Notification
	alert        *models.Alert
	recipient    models.Recipient
	forced       bool
}

type fakeNotifier struct {
	calls []dispatchCall
}

func (f *fakeNotifier) Dispatch(_ context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient, forced bool) bool {
	f.calls = append(f.calls, dispatchCall{notification: n, alert: alert, recipient: rcpt, forced: forced})
	return true
}
