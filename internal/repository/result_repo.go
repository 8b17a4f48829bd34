package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/buxoro/exam-engine/internal/models"
)

// ResultRepository persists one result per attempt and feeds cohort
// percentages back into percentile computation.
type ResultRepository interface {
	Upsert(ctx context.Context, result *models.Result) error
	GetByAttempt(ctx context.Context, attemptID uuid.UUID) (models.Result, error)
	ListPercentagesByTest(ctx context.Context, testID uuid.UUID, excludeAttempt uuid.UUID) ([]float64, error)
	ListByUserAndCategory(ctx context.Context, userID uuid.UUID, category string) ([]models.Result, error)
}

// resultRow is the storage shape of a result. The breakdown maps are kept
// as JSON columns.
type resultRow struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	AttemptID uuid.UUID `gorm:"uniqueIndex;not null"`
	TestID    uuid.UUID `gorm:"index;not null"`
	UserID    uuid.UUID `gorm:"index;not null"`
	Category  string    `gorm:"size:100;index"`

	TotalQuestions         int
	CorrectAnswers         int
	IncorrectAnswers       int
	UnansweredQuestions    int
	PartialCreditQuestions int
	PendingManual          int

	PointsEarned   float64
	PointsPossible int
	Percentage     float64
	GradeLetter    string `gorm:"size:2"`
	IsPassed       bool
	PassMark       float64

	CategoryScores      datatypes.JSON
	DifficultyBreakdown datatypes.JSON
	PercentileRank      *float64

	CompletedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (resultRow) TableName() string {
	return "results"
}

func newResultRow(result models.Result) (resultRow, error) {
	categories, err := json.Marshal(result.CategoryScores)
	if err != nil {
		return resultRow{}, fmt.Errorf("marshal category scores: %w", err)
	}
	difficulties, err := json.Marshal(result.DifficultyBreakdown)
	if err != nil {
		return resultRow{}, fmt.Errorf("marshal difficulty breakdown: %w", err)
	}

	return resultRow{
		ID:                     result.ID,
		AttemptID:              result.AttemptID,
		TestID:                 result.TestID,
		UserID:                 result.UserID,
		Category:               result.Category,
		TotalQuestions:         result.TotalQuestions,
		CorrectAnswers:         result.CorrectAnswers,
		IncorrectAnswers:       result.IncorrectAnswers,
		UnansweredQuestions:    result.UnansweredQuestions,
		PartialCreditQuestions: result.PartialCreditQuestions,
		PendingManual:          result.PendingManual,
		PointsEarned:           result.PointsEarned,
		PointsPossible:         result.PointsPossible,
		Percentage:             result.Percentage,
		GradeLetter:            result.GradeLetter,
		IsPassed:               result.IsPassed,
		PassMark:               result.PassMark,
		CategoryScores:         datatypes.JSON(categories),
		DifficultyBreakdown:    datatypes.JSON(difficulties),
		PercentileRank:         result.PercentileRank,
		CompletedAt:            result.CompletedAt,
	}, nil
}

func (r resultRow) toModel() (models.Result, error) {
	result := models.Result{
		ID:                     r.ID,
		AttemptID:              r.AttemptID,
		TestID:                 r.TestID,
		UserID:                 r.UserID,
		Category:               r.Category,
		TotalQuestions:         r.TotalQuestions,
		CorrectAnswers:         r.CorrectAnswers,
		IncorrectAnswers:       r.IncorrectAnswers,
		UnansweredQuestions:    r.UnansweredQuestions,
		PartialCreditQuestions: r.PartialCreditQuestions,
		PendingManual:          r.PendingManual,
		PointsEarned:           r.PointsEarned,
		PointsPossible:         r.PointsPossible,
		Percentage:             r.Percentage,
		GradeLetter:            r.GradeLetter,
		IsPassed:               r.IsPassed,
		PassMark:               r.PassMark,
		PercentileRank:         r.PercentileRank,
		CompletedAt:            r.CompletedAt,
	}
	if len(r.CategoryScores) > 0 {
		if err := json.Unmarshal(r.CategoryScores, &result.CategoryScores); err != nil {
			return models.Result{}, fmt.Errorf("unmarshal category scores: %w", err)
		}
	}
	if len(r.DifficultyBreakdown) > 0 {
		if err := json.Unmarshal(r.DifficultyBreakdown, &result.DifficultyBreakdown); err != nil {
			return models.Result{}, fmt.Errorf("unmarshal difficulty breakdown: %w", err)
		}
	}
	return result, nil
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates the repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

// Upsert writes the result, replacing any previous result for the same
// attempt. The unique index on attempt_id keeps the relationship 1:1 even
// when a manual grade correction triggers recomputation.
func (r *resultRepository) Upsert(ctx context.Context, result *models.Result) error {
	row, err := newResultRow(*result)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (r *resultRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (models.Result, error) {
	var row resultRow
	if err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&row).Error; err != nil {
		return models.Result{}, err
	}

	return row.toModel()
}

// ListPercentagesByTest returns the cohort percentages for percentile
// computation, excluding the attempt being aggregated.
func (r *resultRepository) ListPercentagesByTest(ctx context.Context, testID uuid.UUID, excludeAttempt uuid.UUID) ([]float64, error) {
	var percentages []float64
	err := r.db.WithContext(ctx).
		Model(&resultRow{}).
		Where("test_id = ?", testID).
		Where("attempt_id <> ?", excludeAttempt).
		Order("completed_at ASC").
		Pluck("percentage", &percentages).Error
	if err != nil {
		return nil, err
	}

	return percentages, nil
}

// ListByUserAndCategory returns the user's chronological result history in
// one category, the input of a progress recomputation.
func (r *resultRepository) ListByUserAndCategory(ctx context.Context, userID uuid.UUID, category string) ([]models.Result, error) {
	var rows []resultRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("category = ?", category).
		Order("completed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]models.Result, 0, len(rows))
	for _, row := range rows {
		result, err := row.toModel()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}
