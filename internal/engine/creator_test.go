package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

func TestCreator_NumberingSequence(t *testing.T) {
	alerts := &fakeAlertStore{}
	subs := &fakeSubscriptionStore{defaults: []models.Recipient{{UserID: 1, Channel: models.ChannelSystem, Target: "1"}}}
	creator := NewCreator(alerts, &fakeNotificationStore{}, subs, &fakeNotifier{}, logging.NewNop())
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	creator.now = func() time.Time { return now }

	rule := progressRule(models.LevelInfo)

	// Numbers on the same day for the same rule code are strictly
	// increasing and zero-padded to four digits.
	for i := 1; i <= 6; i++ {
		alert, err := creator.Create(context.Background(), rule, models.LevelInfo,
			models.Target{Type: "project", ID: fmt.Sprintf("p-%d", i)}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("PRO20260831%04d", i), alert.Number)
	}
	assert.Equal(t, "PRO202608310006", alerts.alerts[5].Number)

	// A new day restarts the sequence.
	creator.now = func() time.Time { return now.AddDate(0, 0, 1) }
	alert, err := creator.Create(context.Background(), rule, models.LevelInfo,
		models.Target{Type: "project", ID: "p-7"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "PRO202609010001", alert.Number)
}

func TestRulePrefix(t *testing.T) {
	assert.Equal(t, "PRO", rulePrefix("project_delay"))
	assert.Equal(t, "CO", rulePrefix("co"))
	assert.Equal(t, "BUD", rulePrefix("budget_overrun"))
}

func TestCreator_FanOutFailureDoesNotRollBack(t *testing.T) {
	alerts := &fakeAlertStore{}
	notifs := &fakeNotificationStore{err: fmt.Errorf("notification table unavailable")}
	subs := &fakeSubscriptionStore{recipients: []models.Recipient{{UserID: 1, Channel: models.ChannelEmail, Target: "a@b.c"}}}
	creator := NewCreator(alerts, notifs, subs, &fakeNotifier{}, logging.NewNop())

	alert, err := creator.Create(context.Background(), progressRule(models.LevelWarning),
		models.LevelWarning, testTarget, map[string]interface{}{"progress": 10}, nil)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Len(t, alerts.alerts, 1)
}

func TestCreator_FallsBackToDefaultRecipients(t *testing.T) {
	alerts := &fakeAlertStore{}
	notifs := &fakeNotificationStore{}
	subs := &fakeSubscriptionStore{
		defaults: []models.Recipient{{UserID: 99, Channel: models.ChannelSystem, Target: "99"}},
	}
	dispatcher := &fakeNotifier{}
	creator := NewCreator(alerts, notifs, subs, dispatcher, logging.NewNop())

	_, err := creator.Create(context.Background(), progressRule(models.LevelWarning),
		models.LevelWarning, testTarget, nil, nil)
	require.NoError(t, err)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, int64(99), dispatcher.calls[0].recipient.UserID)
	assert.Equal(t, models.ChannelSystem, dispatcher.calls[0].notification.Channel)
}

func TestBuildContent_SkipsEmptySections(t *testing.T) {
	rule := models.Rule{Description: "desc", Threshold: "", Remediation: ""}
	content := buildContent(rule, "", nil, nil)
	assert.Equal(t, "desc", content)

	full := buildContent(models.Rule{
		TargetField: "progress",
		Description: "desc",
		Threshold:   "50",
		Operator:    models.OpLT,
		Remediation: "fix it",
	}, "Apollo", map[string]interface{}{"progress": 30}, nil)
	assert.Contains(t, full, "Target: Apollo")
	assert.Contains(t, full, "desc")
	assert.Contains(t, full, "Current progress: 30")
	assert.Contains(t, full, "Threshold: LT 50")
	assert.Contains(t, full, "Remediation: fix it")
}
