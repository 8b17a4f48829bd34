package models

import (
	"time"

	"github.com/google/uuid"
)

// SkillLevel grades a user's longitudinal performance in one category.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// ProgressSnapshot is the per (user, category) view of historical results.
// It is always recomputed from the full ordered history, never patched
// incrementally, so repeated recomputation cannot drift.
type ProgressSnapshot struct {
	UserID   uuid.UUID `json:"user_id"`
	Category string    `json:"category"`

	TestsTaken   int     `json:"tests_taken"`
	TestsPassed  int     `json:"tests_passed"`
	AverageScore float64 `json:"average_score"`
	BestScore    float64 `json:"best_score"`
	LatestScore  float64 `json:"latest_score"`
	PassRate     float64 `json:"pass_rate"`

	SkillLevel        SkillLevel `json:"skill_level"`
	MasteryPercentage float64    `json:"mastery_percentage"`

	UpdatedAt time.Time `json:"updated_at"`
}

// SkillLevelFor applies the skill thresholds in priority order.
func SkillLevelFor(averageScore float64, testsPassed int) SkillLevel {
	switch {
	case averageScore >= 90 && testsPassed >= 10:
		return SkillExpert
	case averageScore >= 80 && testsPassed >= 5:
		return SkillAdvanced
	case averageScore >= 70 && testsPassed >= 3:
		return SkillIntermediate
	default:
		return SkillBeginner
	}
}
