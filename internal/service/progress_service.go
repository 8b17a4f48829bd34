package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/buxoro/exam-engine/internal/models"
	"github.com/buxoro/exam-engine/internal/observability"
	"github.com/buxoro/exam-engine/internal/repository"
)

// ErrMissingCategory indicates a progress recomputation without a category.
var ErrMissingCategory = errors.New("category must not be empty")

// ProgressService maintains the per (user, category) skill snapshot.
type ProgressService interface {
	// Recompute folds the user's full chronological result history in one
	// category into a fresh snapshot and persists it. An empty history
	// yields the zeroed beginner snapshot, never an error.
	Recompute(ctx context.Context, userID uuid.UUID, category string, results []models.Result) (models.ProgressSnapshot, error)

	// Refresh loads the user's history from storage and recomputes. Called
	// after every new result lands.
	Refresh(ctx context.Context, userID uuid.UUID, category string) (models.ProgressSnapshot, error)
}

type progressService struct {
	repo    repository.ProgressRepository
	results repository.ResultRepository
	logger  zerolog.Logger
	keys    *keyedMutex
	now     func() time.Time
}

// NewProgressService constructs the progress tracking service.
func NewProgressService(repo repository.ProgressRepository, results repository.ResultRepository, logger zerolog.Logger) ProgressService {
	return &progressService{
		repo:    repo,
		results: results,
		logger:  logger.With().Str("component", "progress_service").Logger(),
		keys:    newKeyedMutex(),
		now:     time.Now,
	}
}

func (s *progressService) Refresh(ctx context.Context, userID uuid.UUID, category string) (models.ProgressSnapshot, error) {
	if category == "" {
		return models.ProgressSnapshot{}, ErrMissingCategory
	}

	history, err := s.results.ListByUserAndCategory(ctx, userID, category)
	if err != nil {
		return models.ProgressSnapshot{}, fmt.Errorf("load result history: %w", err)
	}

	return s.Recompute(ctx, userID, category, history)
}

func (s *progressService) Recompute(ctx context.Context, userID uuid.UUID, category string, results []models.Result) (models.ProgressSnapshot, error) {
	tracer := otel.Tracer("github.com/buxoro/exam-engine/internal/service/progress")
	ctx, span := tracer.Start(ctx, "progress.recompute")
	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("category", category),
		attribute.Int("history.size", len(results)),
	)
	defer span.End()

	if category == "" {
		span.RecordError(ErrMissingCategory)
		span.SetStatus(codes.Error, "validation_failed")
		return models.ProgressSnapshot{}, ErrMissingCategory
	}

	key := userID.String() + "|" + category
	s.keys.Lock(key)
	defer s.keys.Unlock(key)

	snapshot := computeSnapshot(userID, category, results)
	snapshot.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, &snapshot); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot_upsert_failed")
		return models.ProgressSnapshot{}, fmt.Errorf("persist snapshot: %w", err)
	}

	observability.ProgressRecomputations().WithLabelValues(string(snapshot.SkillLevel)).Inc()

	span.SetAttributes(
		attribute.String("snapshot.skill_level", string(snapshot.SkillLevel)),
		attribute.Float64("snapshot.mastery", snapshot.MasteryPercentage),
	)

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("category", category).
		Int("tests_taken", snapshot.TestsTaken).
		Str("skill_level", string(snapshot.SkillLevel)).
		Msg("progress recomputed")

	return snapshot, nil
}

// computeSnapshot folds the chronological history into the snapshot. The
// fold always starts from zero, so the same history produces the same
// snapshot.
func computeSnapshot(userID uuid.UUID, category string, results []models.Result) models.ProgressSnapshot {
	snapshot := models.ProgressSnapshot{
		UserID:     userID,
		Category:   category,
		SkillLevel: models.SkillBeginner,
	}
	if len(results) == 0 {
		return snapshot
	}

	var sum float64
	for _, result := range results {
		snapshot.TestsTaken++
		if result.IsPassed {
			snapshot.TestsPassed++
		}
		sum += result.Percentage
		if result.Percentage > snapshot.BestScore {
			snapshot.BestScore = result.Percentage
		}
	}

	snapshot.AverageScore = sum / float64(snapshot.TestsTaken)
	snapshot.LatestScore = results[len(results)-1].Percentage
	snapshot.PassRate = float64(snapshot.TestsPassed) / float64(snapshot.TestsTaken) * 100
	snapshot.SkillLevel = models.SkillLevelFor(snapshot.AverageScore, snapshot.TestsPassed)
	snapshot.MasteryPercentage = (snapshot.AverageScore + snapshot.PassRate) / 2

	return snapshot
}
