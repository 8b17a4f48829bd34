package models

import (
	"time"

	"github.com/google/uuid"
)

// CategoryScore tallies correct answers within one question category.
type CategoryScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Result is the aggregated outcome of one completed attempt. There is
// exactly one Result per attempt; a manual grade correction recomputes and
// overwrites it rather than creating a second row.
type Result struct {
	ID        uuid.UUID `json:"id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	TestID    uuid.UUID `json:"test_id"`
	UserID    uuid.UUID `json:"user_id"`
	Category  string    `json:"category"`

	TotalQuestions         int `json:"total_questions"`
	CorrectAnswers         int `json:"correct_answers"`
	IncorrectAnswers       int `json:"incorrect_answers"`
	UnansweredQuestions    int `json:"unanswered_questions"`
	PartialCreditQuestions int `json:"partial_credit_questions"`
	PendingManual          int `json:"pending_manual"`

	PointsEarned   float64 `json:"points_earned"`
	PointsPossible int     `json:"points_possible"`
	Percentage     float64 `json:"percentage"`
	GradeLetter    string  `json:"grade_letter"`
	IsPassed       bool    `json:"is_passed"`
	PassMark       float64 `json:"pass_mark"`

	CategoryScores      map[string]CategoryScore `json:"category_scores"`
	DifficultyBreakdown map[Difficulty]float64   `json:"difficulty_breakdown"`
	PercentileRank      *float64                 `json:"percentile_rank,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

// GradeLetterFor maps a percentage to its letter band. Boundaries are
// inclusive at the lower edge of each band.
func GradeLetterFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
