package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"alerting-service/internal/models"
)

func TestLevelPriority_TotalOrdering(t *testing.T) {
	assert.Greater(t, models.LevelPriority(models.LevelUrgent), models.LevelPriority(models.LevelCritical))
	assert.Greater(t, models.LevelPriority(models.LevelCritical), models.LevelPriority(models.LevelWarning))
	assert.Greater(t, models.LevelPriority(models.LevelWarning), models.LevelPriority(models.LevelInfo))
	assert.Greater(t, models.LevelPriority(models.LevelInfo), models.LevelPriority("anything else"))

	// Unknown levels all rank lowest.
	assert.Equal(t, 0, models.LevelPriority(""))
	assert.Equal(t, 0, models.LevelPriority("SEVERE"))
	assert.Equal(t, 0, models.LevelPriority("info"))
}

func TestDefaultLevelDeterminer(t *testing.T) {
	d := DefaultLevelDeterminer{}
	assert.Equal(t, models.LevelWarning, d.Determine(models.Rule{DefaultLevel: models.LevelWarning}, nil, nil))
	assert.Equal(t, models.LevelInfo, d.Determine(models.Rule{}, nil, nil))
}
