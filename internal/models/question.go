package models

import "github.com/google/uuid"

// QuestionKind identifies the answer format of a question and therefore
// which grading strategy applies to it.
type QuestionKind string

const (
	// KindSingleChoice expects exactly one selected choice.
	KindSingleChoice QuestionKind = "single_choice"
	// KindMultipleChoice allows several selected choices with partial credit.
	KindMultipleChoice QuestionKind = "multiple_choice"
	// KindTrueFalse is a two-option single selection.
	KindTrueFalse QuestionKind = "true_false"
	// KindNumeric compares a numeric answer within a tolerance.
	KindNumeric QuestionKind = "numeric"
	// KindMatching compares key/value pairs with partial credit.
	KindMatching QuestionKind = "matching"
	// KindText is a free-text answer requiring manual grading.
	KindText QuestionKind = "text"
	// KindEssay is a long-form answer requiring manual grading.
	KindEssay QuestionKind = "essay"
)

// Difficulty bands questions for the per-difficulty result breakdown.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Choice is one selectable option of a choice-style question.
type Choice struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	IsCorrect bool      `json:"is_correct"`
}

// Question is the gradable content of a single test question. It is
// immutable for the duration of an attempt; only the fields relevant to
// its Kind are populated.
type Question struct {
	ID         uuid.UUID    `json:"id"`
	TestID     uuid.UUID    `json:"test_id"`
	Kind       QuestionKind `json:"kind"`
	Text       string       `json:"text"`
	Points     int          `json:"points"`
	Category   string       `json:"category"`
	Difficulty Difficulty   `json:"difficulty"`

	// Choice kinds.
	Choices []Choice `json:"choices,omitempty"`

	// Numeric kind.
	NumericAnswer    *float64 `json:"numeric_answer,omitempty"`
	NumericTolerance float64  `json:"numeric_tolerance,omitempty"`

	// Matching kind.
	MatchingPairs map[string]string `json:"matching_pairs,omitempty"`
}

// CorrectChoices returns the IDs of every choice flagged correct.
func (q Question) CorrectChoices() []uuid.UUID {
	var ids []uuid.UUID
	for _, c := range q.Choices {
		if c.IsCorrect {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// IsAutoGradable reports whether the question can be scored without a human.
func (q Question) IsAutoGradable() bool {
	switch q.Kind {
	case KindSingleChoice, KindMultipleChoice, KindTrueFalse, KindNumeric, KindMatching:
		return true
	default:
		return false
	}
}
