package engine

import (
	"context"
	"fmt"
	"time"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// nextLevel is the fixed escalation ladder. URGENT is terminal.
var nextLevel = map[string]string{
	models.LevelInfo:     models.LevelWarning,
	models.LevelWarning:  models.LevelCritical,
	models.LevelCritical: models.LevelUrgent,
}

// SweepResult summarizes one escalation sweep. Errors are collected
// per-alert; the sweep itself never fails.
type SweepResult struct {
	Checked   int      `json:"checked"`
	Escalated int      `json:"escalated"`
	Errors    []string `json:"errors,omitempty"`
}

// Sweeper walks open alerts and escalates those that sat unhandled past
// their level's timeout. The more severe the level, the less tolerance for
// inaction.
type Sweeper struct {
	alerts   AlertStore
	upgrader *Upgrader
	timeouts map[string]time.Duration
	// regap suppresses re-escalation of an alert escalated recently, so
	// back-to-back sweeps cannot climb the ladder faster than intended.
	regap  time.Duration
	logger *logging.Logger
	now    func() time.Time
}

// NewSweeper wires an escalation sweeper.
func NewSweeper(alerts AlertStore, upgrader *Upgrader, timeouts map[string]time.Duration, regap time.Duration, logger *logging.Logger) *Sweeper {
	return &Sweeper{
		alerts:   alerts,
		upgrader: upgrader,
		timeouts: timeouts,
		regap:    regap,
		logger:   logger,
		now:      time.Now,
	}
}

// Run performs one sweep. Idempotent and safe to invoke repeatedly.
func (s *Sweeper) Run(ctx context.Context) SweepResult {
	var result SweepResult

	candidates, err := s.alerts.ListEscalationCandidates(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list candidates: %v", err))
		return result
	}

	now := s.now()
	for i := range candidates {
		alert := &candidates[i]
		result.Checked++

		if alert.EscalatedAt != nil && now.Sub(*alert.EscalatedAt) < s.regap {
			continue
		}
		timeout, ok := s.timeouts[alert.Level]
		if !ok {
			continue
		}
		if now.Sub(alert.TriggeredAt) < timeout {
			continue
		}
		next, ok := nextLevel[alert.Level]
		if !ok {
			continue
		}

		reason := fmt.Sprintf("no action for %s at level %s", timeout, alert.Level)
		if _, err := s.upgrader.Upgrade(ctx, alert, next, reason); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("alert %s: %v", alert.Number, err))
			continue
		}
		result.Escalated++
	}

	s.logger.Infof("escalation sweep: checked=%d escalated=%d errors=%d",
		result.Checked, result.Escalated, len(result.Errors))
	return result
}
