package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// Creator builds and persists new alerts and triggers notification fan-out.
type Creator struct {
	alerts AlertStore
	fan    *fanOut
	logger *logging.Logger
	now    func() time.Time
}

// NewCreator wires an alert creator.
func NewCreator(alerts AlertStore, notifs NotificationStore, subs SubscriptionStore, dispatcher Notifier, logger *logging.Logger) *Creator {
	return &Creator{
		alerts: alerts,
		fan:    &fanOut{notifs: notifs, subs: subs, dispatcher: dispatcher, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Create persists a new PENDING alert and fans out notifications. Fan-out
// failure is logged, never returned: alert creation must not roll back
// because a channel is down.
func (c *Creator) Create(ctx context.Context, rule models.Rule, level string, target models.Target, data, evalCtx map[string]interface{}) (*models.Alert, error) {
	now := c.now()
	number, err := c.nextNumber(ctx, rule.Code, now)
	if err != nil {
		return nil, err
	}

	alert := &models.Alert{
		Number:      number,
		RuleID:      rule.ID,
		RuleCode:    rule.Code,
		TargetType:  target.Type,
		TargetID:    target.ID,
		TargetName:  target.Name,
		Level:       level,
		Title:       buildTitle(level, rule, target.Name),
		Content:     buildContent(rule, target.Name, data, evalCtx),
		Status:      models.StatusPending,
		TriggeredAt: now,
	}
	if err := c.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert %s: %w", number, err)
	}
	c.logger.Infof("created alert %s (%s, %s) for %s/%s", number, rule.Code, level, target.Type, target.ID)

	c.fan.notifyAll(ctx, alert, false)
	return alert, nil
}

// nextNumber builds the human-readable alert number: three-letter rule
// prefix, date, and a 4-digit daily sequence counted from existing numbers.
func (c *Creator) nextNumber(ctx context.Context, ruleCode string, now time.Time) (string, error) {
	prefix := rulePrefix(ruleCode) + now.Format("20060102")
	count, err := c.alerts.CountAlertsByNumberPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to compute alert number for %q: %w", prefix, err)
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func rulePrefix(code string) string {
	upper := strings.ToUpper(code)
	if len(upper) > 3 {
		return upper[:3]
	}
	return upper
}
