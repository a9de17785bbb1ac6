package engine

import (
	"strconv"
	"strings"
	"time"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

// Evaluator decides whether a rule's condition holds against a target
// snapshot. Every evaluation failure (bad path, bad type, bad expression,
// bad date) absorbs to false: a misconfigured rule degrades to "never
// fires", it does not crash ingestion.
type Evaluator struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewEvaluator builds a condition evaluator.
func NewEvaluator(logger *logging.Logger) *Evaluator {
	return &Evaluator{logger: logger, now: time.Now}
}

// Check reports whether the rule's condition holds.
func (e *Evaluator) Check(rule models.Rule, data, evalCtx map[string]interface{}) bool {
	switch rule.Kind {
	case models.KindThreshold:
		return e.checkThreshold(rule, data, evalCtx)
	case models.KindDeviation:
		return e.checkDeviation(rule, data, evalCtx)
	case models.KindOverdue:
		return e.checkOverdue(rule, data, evalCtx)
	case models.KindCustom:
		return EvalExpression(rule.Expression, MergeNamespace(data, evalCtx))
	default:
		e.logger.Debugf("rule %s: unknown kind %q", rule.Code, rule.Kind)
		return false
	}
}

func (e *Evaluator) checkThreshold(rule models.Rule, data, evalCtx map[string]interface{}) bool {
	raw, ok := ResolveField(data, evalCtx, rule.TargetField)
	if !ok {
		e.logger.Debugf("rule %s: field %q not found", rule.Code, rule.TargetField)
		return false
	}
	value, ok := toFloat(raw)
	if !ok {
		e.logger.Debugf("rule %s: field %q is not numeric (%v)", rule.Code, rule.TargetField, raw)
		return false
	}
	threshold, err := strconv.ParseFloat(strings.TrimSpace(rule.Threshold), 64)
	if err != nil {
		e.logger.Debugf("rule %s: threshold %q is not numeric", rule.Code, rule.Threshold)
		return false
	}
	return compare(rule.Operator, value, threshold)
}

func (e *Evaluator) checkDeviation(rule models.Rule, data, evalCtx map[string]interface{}) bool {
	actualRaw, ok := ResolveField(data, evalCtx, rule.TargetField)
	if !ok {
		return false
	}
	actual, ok := toFloat(actualRaw)
	if !ok {
		return false
	}

	// The planned-side field is an explicit rule attribute; legacy rules
	// without one fall back to the textual actual->planned derivation.
	plannedField := rule.PlannedField
	if plannedField == "" {
		plannedField = strings.Replace(rule.TargetField, "actual", "planned", 1)
	}
	plannedRaw, ok := ResolveField(data, evalCtx, plannedField)
	if !ok {
		e.logger.Debugf("rule %s: planned field %q not found", rule.Code, plannedField)
		return false
	}
	planned, ok := toFloat(plannedRaw)
	if !ok {
		return false
	}

	threshold, err := strconv.ParseFloat(strings.TrimSpace(rule.Threshold), 64)
	if err != nil {
		return false
	}
	return compare(rule.Operator, actual-planned, threshold)
}

func (e *Evaluator) checkOverdue(rule models.Rule, data, evalCtx map[string]interface{}) bool {
	raw, ok := ResolveField(data, evalCtx, rule.TargetField)
	if !ok {
		return false
	}
	now := e.now()
	due, ok := parseDueDate(raw, now.Location())
	if !ok {
		e.logger.Debugf("rule %s: field %q is not a parseable date (%v)", rule.Code, rule.TargetField, raw)
		return false
	}
	reference := now.AddDate(0, 0, -rule.AdvanceDays)
	return !reference.Before(due)
}

func compare(operator string, value, threshold float64) bool {
	switch operator {
	case models.OpGT:
		return value > threshold
	case models.OpGTE:
		return value >= threshold
	case models.OpLT:
		return value < threshold
	case models.OpLTE:
		return value <= threshold
	case models.OpEQ:
		return value == threshold
	default:
		return false
	}
}

// dueDateLayouts are tried in order for string due dates. The RFC3339 forms
// carry their own zone; the rest are interpreted in the caller's location.
var dueDateZoned = []string{time.RFC3339Nano, time.RFC3339}

var dueDateNaive = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDueDate(v interface{}, loc *time.Location) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, true
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dueDateZoned {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		for _, layout := range dueDateNaive {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
