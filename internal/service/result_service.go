package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/buxoro/exam-engine/internal/dto"
	"github.com/buxoro/exam-engine/internal/grader"
	"github.com/buxoro/exam-engine/internal/models"
	"github.com/buxoro/exam-engine/internal/observability"
	"github.com/buxoro/exam-engine/internal/repository"
)

// ResultService aggregates per-question outcomes into the attempt's result.
type ResultService interface {
	// Aggregate combines the scored questions of one completed attempt into
	// its Result and upserts it. Concurrent calls for the same attempt are
	// serialized so exactly one Result row exists per attempt.
	Aggregate(ctx context.Context, attempt dto.AttemptContext, scored []dto.ScoredQuestion, cohort []float64) (models.Result, error)

	// EvaluateAttempt grades every question of the attempt (questions
	// without a submission become zero outcomes), loads the cohort from
	// storage and aggregates.
	EvaluateAttempt(ctx context.Context, attempt dto.AttemptContext, questions []models.Question, submissions []models.Submission) (models.Result, error)
}

type resultService struct {
	repo      repository.ResultRepository
	grader    grader.Grader
	validator *validator.Validate
	logger    zerolog.Logger
	attempts  *keyedMutex
	now       func() time.Time
}

// NewResultService constructs the aggregation service.
func NewResultService(repo repository.ResultRepository, g grader.Grader, validator *validator.Validate, logger zerolog.Logger) ResultService {
	return &resultService{
		repo:      repo,
		grader:    g,
		validator: validator,
		logger:    logger.With().Str("component", "result_service").Logger(),
		attempts:  newKeyedMutex(),
		now:       time.Now,
	}
}

func (s *resultService) EvaluateAttempt(ctx context.Context, attempt dto.AttemptContext, questions []models.Question, submissions []models.Submission) (models.Result, error) {
	tracer := otel.Tracer("github.com/buxoro/exam-engine/internal/service/result")
	ctx, span := tracer.Start(ctx, "result.evaluate_attempt")
	span.SetAttributes(
		attribute.String("attempt.id", attempt.AttemptID.String()),
		attribute.Int("attempt.questions", len(questions)),
	)
	defer span.End()

	if err := s.validator.Struct(attempt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return models.Result{}, err
	}

	byQuestion := make(map[uuid.UUID]models.Submission, len(submissions))
	for _, sub := range submissions {
		byQuestion[sub.QuestionID] = sub
	}

	scored := make([]dto.ScoredQuestion, 0, len(questions))
	for _, question := range questions {
		entry := dto.ScoredQuestion{Question: question}
		if sub, ok := byQuestion[question.ID]; ok {
			outcome, err := s.grader.Evaluate(question, sub)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "grading_failed")
				return models.Result{}, fmt.Errorf("grade question %s: %w", question.ID, err)
			}
			observability.QuestionsGraded().WithLabelValues(string(question.Kind), gradeVerdict(outcome)).Inc()
			entry.Outcome = &outcome
		}
		scored = append(scored, entry)
	}

	cohort, err := s.repo.ListPercentagesByTest(ctx, attempt.TestID, attempt.AttemptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cohort_lookup_failed")
		return models.Result{}, fmt.Errorf("load cohort percentages: %w", err)
	}

	return s.Aggregate(ctx, attempt, scored, cohort)
}

func (s *resultService) Aggregate(ctx context.Context, attempt dto.AttemptContext, scored []dto.ScoredQuestion, cohort []float64) (models.Result, error) {
	tracer := otel.Tracer("github.com/buxoro/exam-engine/internal/service/result")
	ctx, span := tracer.Start(ctx, "result.aggregate")
	span.SetAttributes(attribute.String("attempt.id", attempt.AttemptID.String()))
	defer span.End()

	if err := s.validator.Struct(attempt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return models.Result{}, err
	}

	key := attempt.AttemptID.String()
	s.attempts.Lock(key)
	defer s.attempts.Unlock(key)

	result := computeResult(attempt, scored, cohort)
	if result.CompletedAt.IsZero() {
		result.CompletedAt = s.now()
	}

	if err := s.repo.Upsert(ctx, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_upsert_failed")
		return models.Result{}, fmt.Errorf("persist result: %w", err)
	}

	observability.AttemptsAggregated().WithLabelValues(strconv.FormatBool(result.IsPassed)).Inc()
	observability.AttemptPercentage().Observe(result.Percentage)

	span.SetAttributes(
		attribute.Float64("result.percentage", result.Percentage),
		attribute.String("result.grade_letter", result.GradeLetter),
		attribute.Bool("result.passed", result.IsPassed),
	)

	s.logger.Info().
		Str("attempt_id", attempt.AttemptID.String()).
		Float64("percentage", result.Percentage).
		Str("grade_letter", result.GradeLetter).
		Bool("passed", result.IsPassed).
		Msg("attempt aggregated")

	return result, nil
}

// computeResult is the pure aggregation core. The result ID is derived from
// the attempt ID, so recomputation after a manual grade correction targets
// the same row and the same inputs always produce the same result.
func computeResult(attempt dto.AttemptContext, scored []dto.ScoredQuestion, cohort []float64) models.Result {
	result := models.Result{
		ID:                  uuid.NewSHA1(uuid.NameSpaceOID, attempt.AttemptID[:]),
		AttemptID:           attempt.AttemptID,
		TestID:              attempt.TestID,
		UserID:              attempt.UserID,
		Category:            attempt.Category,
		TotalQuestions:      len(scored),
		PassMark:            attempt.PassMark,
		CategoryScores:      make(map[string]models.CategoryScore),
		DifficultyBreakdown: make(map[models.Difficulty]float64),
		CompletedAt:         attempt.CompletedAt,
	}

	difficultyTotals := make(map[models.Difficulty]int)
	difficultyCorrect := make(map[models.Difficulty]int)

	for _, entry := range scored {
		question := entry.Question
		result.PointsPossible += question.Points

		outcome := grader.UnansweredOutcome(question)
		if entry.Outcome != nil {
			outcome = *entry.Outcome
		} else {
			result.UnansweredQuestions++
		}

		result.PointsEarned += outcome.PointsAwarded
		if outcome.IsCorrect {
			result.CorrectAnswers++
		} else if entry.Outcome != nil {
			result.IncorrectAnswers++
		}
		if outcome.PointsAwarded > 0 && outcome.PointsAwarded < float64(question.Points) {
			result.PartialCreditQuestions++
		}
		if outcome.IsPendingManual() {
			result.PendingManual++
		}

		score := result.CategoryScores[question.Category]
		score.Total++
		if outcome.IsCorrect {
			score.Correct++
		}
		result.CategoryScores[question.Category] = score

		difficultyTotals[question.Difficulty]++
		if outcome.IsCorrect {
			difficultyCorrect[question.Difficulty]++
		}
	}

	if result.PointsPossible > 0 {
		result.Percentage = result.PointsEarned / float64(result.PointsPossible) * 100
	}
	result.GradeLetter = models.GradeLetterFor(result.Percentage)
	result.IsPassed = result.Percentage >= attempt.PassMark

	for difficulty, total := range difficultyTotals {
		result.DifficultyBreakdown[difficulty] = float64(difficultyCorrect[difficulty]) / float64(total) * 100
	}

	if rank := percentileRank(result.Percentage, cohort); rank != nil {
		result.PercentileRank = rank
	}

	return result
}

// percentileRank is the share of prior cohort percentages strictly below
// the attempt's percentage, or nil when there is no prior cohort.
func percentileRank(percentage float64, cohort []float64) *float64 {
	if len(cohort) == 0 {
		return nil
	}
	below := 0
	for _, prior := range cohort {
		if prior < percentage {
			below++
		}
	}
	rank := float64(below) / float64(len(cohort)) * 100
	return &rank
}

func gradeVerdict(outcome models.GradeOutcome) string {
	switch {
	case outcome.IsPendingManual():
		return "pending"
	case outcome.IsCorrect:
		return "correct"
	default:
		return "incorrect"
	}
}
