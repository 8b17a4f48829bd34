package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/buxoro/exam-engine/internal/models"
)

// ProgressRepository persists one snapshot per (user, category). Snapshots
// are always replaced wholesale; there is no incremental update path.
type ProgressRepository interface {
	Upsert(ctx context.Context, snapshot *models.ProgressSnapshot) error
	Get(ctx context.Context, userID uuid.UUID, category string) (models.ProgressSnapshot, error)
}

type progressRow struct {
	UserID   uuid.UUID `gorm:"primaryKey"`
	Category string    `gorm:"size:100;primaryKey"`

	TestsTaken   int
	TestsPassed  int
	AverageScore float64
	BestScore    float64
	LatestScore  float64
	PassRate     float64

	SkillLevel        string `gorm:"size:20"`
	MasteryPercentage float64

	UpdatedAt time.Time
}

func (progressRow) TableName() string {
	return "progress_snapshots"
}

func newProgressRow(snapshot models.ProgressSnapshot) progressRow {
	return progressRow{
		UserID:            snapshot.UserID,
		Category:          snapshot.Category,
		TestsTaken:        snapshot.TestsTaken,
		TestsPassed:       snapshot.TestsPassed,
		AverageScore:      snapshot.AverageScore,
		BestScore:         snapshot.BestScore,
		LatestScore:       snapshot.LatestScore,
		PassRate:          snapshot.PassRate,
		SkillLevel:        string(snapshot.SkillLevel),
		MasteryPercentage: snapshot.MasteryPercentage,
		UpdatedAt:         snapshot.UpdatedAt,
	}
}

func (r progressRow) toModel() models.ProgressSnapshot {
	return models.ProgressSnapshot{
		UserID:            r.UserID,
		Category:          r.Category,
		TestsTaken:        r.TestsTaken,
		TestsPassed:       r.TestsPassed,
		AverageScore:      r.AverageScore,
		BestScore:         r.BestScore,
		LatestScore:       r.LatestScore,
		PassRate:          r.PassRate,
		SkillLevel:        models.SkillLevel(r.SkillLevel),
		MasteryPercentage: r.MasteryPercentage,
		UpdatedAt:         r.UpdatedAt,
	}
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates the repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Upsert(ctx context.Context, snapshot *models.ProgressSnapshot) error {
	row := newProgressRow(*snapshot)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (r *progressRepository) Get(ctx context.Context, userID uuid.UUID, category string) (models.ProgressSnapshot, error) {
	var row progressRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("category = ?", category).
		First(&row).Error
	if err != nil {
		return models.ProgressSnapshot{}, err
	}

	return row.toModel(), nil
}
