package models

import "github.com/google/uuid"

// Submission is one candidate's answer to one question. Only the field
// matching the question's kind is meaningful; the rest are ignored by the
// grader.
type Submission struct {
	QuestionID      uuid.UUID         `json:"question_id"`
	SelectedChoices []uuid.UUID       `json:"selected_choices,omitempty"`
	TextAnswer      string            `json:"text_answer,omitempty"`
	NumericAnswer   *float64          `json:"numeric_answer,omitempty"`
	MatchingPairs   map[string]string `json:"matching_pairs,omitempty"`
}

// GradeOutcome is the scored verdict for one (question, submission) pair.
// It is produced by the auto grader and never mutated afterwards except by
// a manual override, which clears GradedAutomatically.
type GradeOutcome struct {
	QuestionID          uuid.UUID `json:"question_id"`
	IsCorrect           bool      `json:"is_correct"`
	PointsAwarded       float64   `json:"points_awarded"`
	GradedAutomatically bool      `json:"graded_automatically"`
}

// IsPendingManual reports whether the outcome still needs a human grade.
func (o GradeOutcome) IsPendingManual() bool {
	return !o.GradedAutomatically
}
