package engine

import (
	"fmt"
	"strings"

	"alerting-service/internal/models"
)

// buildTitle renders the alert title. Level is part of the title so the
// notification channels need no extra formatting context.
func buildTitle(level string, rule models.Rule, targetName string) string {
	name := rule.Name
	if name == "" {
		name = rule.Code
	}
	if targetName == "" {
		return fmt.Sprintf("[%s] %s", level, name)
	}
	return fmt.Sprintf("[%s] %s: %s", level, name, targetName)
}

// retitle swaps the level tag of an existing title when an alert escalates.
func retitle(title, fromLevel, toLevel string) string {
	oldTag := "[" + fromLevel + "]"
	newTag := "[" + toLevel + "]"
	if strings.HasPrefix(title, oldTag) {
		return newTag + strings.TrimPrefix(title, oldTag)
	}
	return newTag + " " + title
}

// buildContent renders the alert body from whatever sources are non-empty:
// target name, rule description, the current field value if it resolves,
// the threshold, and the rule's remediation guide, in that order.
func buildContent(rule models.Rule, targetName string, data, evalCtx map[string]interface{}) string {
	var sections []string
	if targetName != "" {
		sections = append(sections, fmt.Sprintf("Target: %s", targetName))
	}
	if rule.Description != "" {
		sections = append(sections, rule.Description)
	}
	if rule.TargetField != "" {
		if raw, ok := ResolveField(data, evalCtx, rule.TargetField); ok {
			sections = append(sections, fmt.Sprintf("Current %s: %v", rule.TargetField, raw))
		}
	}
	if rule.Threshold != "" {
		sections = append(sections, fmt.Sprintf("Threshold: %s %s", rule.Operator, rule.Threshold))
	}
	if rule.Remediation != "" {
		sections = append(sections, fmt.Sprintf("Remediation: %s", rule.Remediation))
	}
	return strings.Join(sections, "\n")
}

// escalationNote is appended to the content on every level raise.
func escalationNote(rec models.EscalationRecord) string {
	return fmt.Sprintf("Escalated %s -> %s at %s: %s",
		rec.FromLevel, rec.ToLevel, rec.At.Format("2006-01-02 15:04:05"), rec.Reason)
}
