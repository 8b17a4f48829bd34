package grader

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/buxoro/exam-engine/internal/models"
)

// ErrUnknownKind indicates the question carries a kind no strategy handles.
var ErrUnknownKind = errors.New("unknown question kind")

// ErrQuestionMismatch indicates the submission was written for a different
// question than the one passed in. Scoring such a pair would corrupt the
// attempt's result, so it propagates instead of producing an outcome.
var ErrQuestionMismatch = errors.New("submission does not match question")

// Grader evaluates one submission against one question. Implementations
// must be pure and safe for concurrent use; the same inputs always produce
// the same outcome, which is what makes regrading safe.
type Grader interface {
	Evaluate(question models.Question, submission models.Submission) (models.GradeOutcome, error)
}

// strategy scores a single question kind.
type strategy interface {
	grade(question models.Question, submission models.Submission) models.GradeOutcome
}

type autoGrader struct {
	strategies map[models.QuestionKind]strategy
}

// NewAutoGrader installs the built-in per-kind strategies.
func NewAutoGrader() Grader {
	return &autoGrader{
		strategies: map[models.QuestionKind]strategy{
			models.KindSingleChoice:   singleChoiceStrategy{},
			models.KindTrueFalse:      singleChoiceStrategy{},
			models.KindMultipleChoice: multipleChoiceStrategy{},
			models.KindNumeric:        numericStrategy{},
			models.KindMatching:       matchingStrategy{},
			models.KindText:           manualStrategy{},
			models.KindEssay:          manualStrategy{},
		},
	}
}

func (g *autoGrader) Evaluate(question models.Question, submission models.Submission) (models.GradeOutcome, error) {
	if submission.QuestionID != question.ID {
		return models.GradeOutcome{}, ErrQuestionMismatch
	}
	s, ok := g.strategies[question.Kind]
	if !ok {
		return models.GradeOutcome{}, ErrUnknownKind
	}
	return s.grade(question, submission), nil
}

// UnansweredOutcome is the zero outcome recorded for a question the
// candidate never answered, so points possible and per-category counts stay
// consistent across the attempt.
func UnansweredOutcome(question models.Question) models.GradeOutcome {
	return models.GradeOutcome{
		QuestionID:          question.ID,
		GradedAutomatically: question.IsAutoGradable(),
	}
}

// singleChoiceStrategy covers single_choice and true_false: full points iff
// exactly one choice is selected, exactly one is canonical, and they match.
type singleChoiceStrategy struct{}

func (singleChoiceStrategy) grade(q models.Question, sub models.Submission) models.GradeOutcome {
	out := models.GradeOutcome{QuestionID: q.ID, GradedAutomatically: true}
	correct := q.CorrectChoices()
	if len(sub.SelectedChoices) == 1 && len(correct) == 1 && sub.SelectedChoices[0] == correct[0] {
		out.IsCorrect = true
		out.PointsAwarded = float64(q.Points)
	}
	return out
}

// multipleChoiceStrategy awards full points on exact set equality, subset
// ratio partial credit when the selection contains no wrong choice, and
// zero as soon as any wrong choice is selected.
type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) grade(q models.Question, sub models.Submission) models.GradeOutcome {
	out := models.GradeOutcome{QuestionID: q.ID, GradedAutomatically: true}
	correct := toSet(q.CorrectChoices())
	if len(correct) == 0 {
		return out
	}
	selected := toSet(sub.SelectedChoices)

	hit := 0
	for id := range selected {
		if _, ok := correct[id]; ok {
			hit++
		}
	}
	if hit != len(selected) {
		// A wrong choice was selected.
		return out
	}
	if hit == len(correct) {
		out.IsCorrect = true
		out.PointsAwarded = float64(q.Points)
		return out
	}
	out.PointsAwarded = float64(q.Points) * float64(hit) / float64(len(correct))
	return out
}

// numericStrategy accepts an answer within the question's absolute
// tolerance. A missing value on either side is incorrect, not an error.
type numericStrategy struct{}

func (numericStrategy) grade(q models.Question, sub models.Submission) models.GradeOutcome {
	out := models.GradeOutcome{QuestionID: q.ID, GradedAutomatically: true}
	if q.NumericAnswer == nil || sub.NumericAnswer == nil {
		return out
	}
	if math.Abs(*sub.NumericAnswer-*q.NumericAnswer) <= q.NumericTolerance {
		out.IsCorrect = true
		out.PointsAwarded = float64(q.Points)
	}
	return out
}

// matchingStrategy scores pair-by-pair: points scale with the number of
// canonical pairs the candidate reproduced, correct only when all match.
type matchingStrategy struct{}

func (matchingStrategy) grade(q models.Question, sub models.Submission) models.GradeOutcome {
	out := models.GradeOutcome{QuestionID: q.ID, GradedAutomatically: true}
	total := len(q.MatchingPairs)
	if total == 0 {
		return out
	}
	matched := 0
	for key, want := range q.MatchingPairs {
		if got, ok := sub.MatchingPairs[key]; ok && got == want {
			matched++
		}
	}
	out.IsCorrect = matched == total
	out.PointsAwarded = float64(q.Points) * float64(matched) / float64(total)
	return out
}

// manualStrategy defers text and essay answers to a human grader. The zero
// outcome it returns keeps the attempt consistent until the override lands.
type manualStrategy struct{}

func (manualStrategy) grade(q models.Question, _ models.Submission) models.GradeOutcome {
	return models.GradeOutcome{QuestionID: q.ID}
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
