package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
)

func newTestEvaluator(now time.Time) *Evaluator {
	e := NewEvaluator(logging.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func TestCheck_Threshold(t *testing.T) {
	e := newTestEvaluator(time.Now())
	rule := models.Rule{
		Code:        "project_delay",
		Kind:        models.KindThreshold,
		TargetField: "progress",
		Operator:    models.OpLT,
		Threshold:   "50",
	}

	assert.True(t, e.Check(rule, map[string]interface{}{"progress": 30}, nil))
	assert.False(t, e.Check(rule, map[string]interface{}{"progress": 70}, nil))

	// Missing or non-numeric values degrade to false, never error.
	assert.False(t, e.Check(rule, map[string]interface{}{}, nil))
	assert.False(t, e.Check(rule, map[string]interface{}{"progress": "n/a"}, nil))

	rule.Threshold = "not-a-number"
	assert.False(t, e.Check(rule, map[string]interface{}{"progress": 30}, nil))
}

func TestCheck_ThresholdOperators(t *testing.T) {
	e := newTestEvaluator(time.Now())
	data := map[string]interface{}{"v": 10.0}

	cases := []struct {
		op   string
		want bool
	}{
		{models.OpGT, false},
		{models.OpGTE, true},
		{models.OpLT, false},
		{models.OpLTE, true},
		{models.OpEQ, true},
		{"BOGUS", false},
	}
	for _, tc := range cases {
		rule := models.Rule{Kind: models.KindThreshold, TargetField: "v", Operator: tc.op, Threshold: "10"}
		assert.Equal(t, tc.want, e.Check(rule, data, nil), "operator %s", tc.op)
	}
}

func TestCheck_DeviationExplicitPlannedField(t *testing.T) {
	e := newTestEvaluator(time.Now())
	rule := models.Rule{
		Kind:         models.KindDeviation,
		TargetField:  "cost.spent",
		PlannedField: "cost.budget",
		Operator:     models.OpGT,
		Threshold:    "20",
	}
	data := map[string]interface{}{
		"cost": map[string]interface{}{"spent": 150.0, "budget": 100.0},
	}
	assert.True(t, e.Check(rule, data, nil))

	data["cost"].(map[string]interface{})["spent"] = 110.0
	assert.False(t, e.Check(rule, data, nil))
}

func TestCheck_DeviationDerivedPlannedField(t *testing.T) {
	e := newTestEvaluator(time.Now())
	// Legacy rules without an explicit planned field derive it textually.
	rule := models.Rule{
		Kind:        models.KindDeviation,
		TargetField: "actual_hours",
		Operator:    models.OpGTE,
		Threshold:   "8",
	}
	data := map[string]interface{}{"actual_hours": 48.0, "planned_hours": 40.0}
	assert.True(t, e.Check(rule, data, nil))

	// Missing either side absorbs to false.
	assert.False(t, e.Check(rule, map[string]interface{}{"actual_hours": 48.0}, nil))
}

func TestCheck_OverdueBoundary(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)
	rule := models.Rule{
		Kind:        models.KindOverdue,
		TargetField: "due_date",
		AdvanceDays: 0,
	}

	// Due exactly now matches; one microsecond in the future does not.
	assert.True(t, e.Check(rule, map[string]interface{}{"due_date": now}, nil))
	assert.False(t, e.Check(rule, map[string]interface{}{"due_date": now.Add(time.Microsecond)}, nil))
	assert.True(t, e.Check(rule, map[string]interface{}{"due_date": now.Add(-time.Hour)}, nil))
}

func TestCheck_OverdueStringDates(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)
	rule := models.Rule{Kind: models.KindOverdue, TargetField: "due", AdvanceDays: 0}

	// Timezone-aware string.
	assert.True(t, e.Check(rule, map[string]interface{}{"due": "2026-08-31T11:00:00Z"}, nil))
	assert.False(t, e.Check(rule, map[string]interface{}{"due": "2026-08-31T13:00:00Z"}, nil))

	// Naive date string, interpreted in the evaluator's location.
	assert.True(t, e.Check(rule, map[string]interface{}{"due": "2026-08-30"}, nil))

	// Unparseable dates absorb to false.
	assert.False(t, e.Check(rule, map[string]interface{}{"due": "soon"}, nil))
	assert.False(t, e.Check(rule, map[string]interface{}{"due": 1234}, nil))
}

func TestCheck_OverdueAdvanceDays(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)
	rule := models.Rule{Kind: models.KindOverdue, TargetField: "due", AdvanceDays: 2}

	// With two advance days the reference point is now-2d.
	assert.True(t, e.Check(rule, map[string]interface{}{"due": now.AddDate(0, 0, -2)}, nil))
	assert.False(t, e.Check(rule, map[string]interface{}{"due": now.AddDate(0, 0, -1)}, nil))
}

func TestCheck_CustomAndUnknownKind(t *testing.T) {
	e := newTestEvaluator(time.Now())

	rule := models.Rule{Kind: models.KindCustom, Expression: "progress < 50 && priority > 2"}
	data := map[string]interface{}{"progress": 30.0}
	evalCtx := map[string]interface{}{"priority": 3.0}
	assert.True(t, e.Check(rule, data, evalCtx))

	rule.Expression = "import os"
	assert.False(t, e.Check(rule, data, evalCtx))

	assert.False(t, e.Check(models.Rule{Kind: "WEIRD"}, data, evalCtx))
}
