package engine

import "alerting-service/internal/models"

// LevelDeterminer decides the severity of a firing rule. The default uses
// the rule's configured level; callers plug in their own for dynamic
// severity.
type LevelDeterminer interface {
	Determine(rule models.Rule, data, evalCtx map[string]interface{}) string
}

// DefaultLevelDeterminer returns the rule's configured default level.
type DefaultLevelDeterminer struct{}

func (DefaultLevelDeterminer) Determine(rule models.Rule, _, _ map[string]interface{}) string {
	if rule.DefaultLevel == "" {
		return models.LevelInfo
	}
	return rule.DefaultLevel
}
