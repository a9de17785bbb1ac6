package engine

import (
	"context"
	"time"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// Engine ties the condition evaluator, level determiner, deduplicator, and
// alert creator/upgrader into the single ingestion entry point.
type Engine struct {
	evaluator   *Evaluator
	level       LevelDeterminer
	alerts      AlertStore
	creator     *Creator
	upgrader    *Upgrader
	dedupWindow time.Duration
	logger      *logging.Logger
	now         func() time.Time
}

// New builds a rule engine. level may be nil to use the rule's configured
// default level.
func New(evaluator *Evaluator, level LevelDeterminer, alerts AlertStore, creator *Creator, upgrader *Upgrader, dedupWindow time.Duration, logger *logging.Logger) *Engine {
	if level == nil {
		level = DefaultLevelDeterminer{}
	}
	return &Engine{
		evaluator:   evaluator,
		level:       level,
		alerts:      alerts,
		creator:     creator,
		upgrader:    upgrader,
		dedupWindow: dedupWindow,
		logger:      logger,
		now:         time.Now,
	}
}

// Evaluate runs one rule against one target snapshot. It returns the created
// or upgraded alert, or nil when the rule is disabled, the condition does
// not hold, or an equal-or-lower open alert already exists in the dedup
// window (the anti-flapping suppression).
func (e *Engine) Evaluate(ctx context.Context, rule models.Rule, target models.Target, data, evalCtx map[string]interface{}) (*models.Alert, error) {
	if !rule.Enabled {
		return nil, nil
	}
	if !e.evaluator.Check(rule, data, evalCtx) {
		return nil, nil
	}

	level := e.level.Determine(rule, data, evalCtx)

	since := e.now().Add(-e.dedupWindow)
	existing, err := e.alerts.FindOpenAlert(ctx, rule.ID, target.Type, target.ID, since)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return e.creator.Create(ctx, rule, level, target, data, evalCtx)
	}
	if models.LevelPriority(level) > models.LevelPriority(existing.Level) {
		return e.upgrader.Upgrade(ctx, existing, level, "rule re-evaluated at higher severity")
	}

	// Condition re-fired but nothing new to report.
	e.logger.Debugf("rule %s: suppressed duplicate for %s/%s (open alert %s at %s)",
		rule.Code, target.Type, target.ID, existing.Number, existing.Level)
	return nil, nil
}
