package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/buxoro/exam-engine/internal/models"
)

// AttemptContext identifies the completed attempt being aggregated and
// carries the test's pass mark.
type AttemptContext struct {
	AttemptID   uuid.UUID `validate:"required"`
	TestID      uuid.UUID `validate:"required"`
	UserID      uuid.UUID `validate:"required"`
	Category    string    `validate:"required"`
	PassMark    float64   `validate:"gte=0,lte=100"`
	CompletedAt time.Time
}

// ScoredQuestion pairs a question with its grade outcome. A nil Outcome
// marks an unanswered question; the aggregator records it as a zero outcome
// so points possible and category totals stay consistent.
type ScoredQuestion struct {
	Question models.Question
	Outcome  *models.GradeOutcome
}
