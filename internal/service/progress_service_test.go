package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/buxoro/exam-engine/internal/models"
)

type fakeProgressRepo struct {
	mu          sync.Mutex
	snapshots   map[string]models.ProgressSnapshot
	upsertCalls int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{snapshots: make(map[string]models.ProgressSnapshot)}
}

func (f *fakeProgressRepo) Upsert(_ context.Context, snapshot *models.ProgressSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	f.snapshots[snapshot.UserID.String()+"|"+snapshot.Category] = *snapshot
	return nil
}

func (f *fakeProgressRepo) Get(_ context.Context, userID uuid.UUID, category string) (models.ProgressSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[userID.String()+"|"+category]
	if !ok {
		return models.ProgressSnapshot{}, gorm.ErrRecordNotFound
	}
	return snapshot, nil
}

func historyOf(percentages []float64, passMark float64) []models.Result {
	results := make([]models.Result, 0, len(percentages))
	for _, percentage := range percentages {
		results = append(results, models.Result{
			ID:         uuid.New(),
			AttemptID:  uuid.New(),
			Percentage: percentage,
			IsPassed:   percentage >= passMark,
		})
	}
	return results
}

func TestRecomputeEmptyHistory(t *testing.T) {
	repo := newFakeProgressRepo()
	svc := NewProgressService(repo, newFakeResultRepo(), testLogger())

	userID := uuid.New()
	snapshot, err := svc.Recompute(context.Background(), userID, "mathematics", nil)
	require.NoError(t, err)
	require.Equal(t, userID, snapshot.UserID)
	require.Zero(t, snapshot.TestsTaken)
	require.Zero(t, snapshot.AverageScore)
	require.Zero(t, snapshot.MasteryPercentage)
	require.Equal(t, models.SkillBeginner, snapshot.SkillLevel)
	require.Equal(t, 1, repo.upsertCalls)
}

func TestRecomputeExpertHistory(t *testing.T) {
	repo := newFakeProgressRepo()
	svc := NewProgressService(repo, newFakeResultRepo(), testLogger())

	history := historyOf([]float64{95, 92, 91, 90, 93, 94, 96, 91, 92, 95}, 60)
	snapshot, err := svc.Recompute(context.Background(), uuid.New(), "mathematics", history)
	require.NoError(t, err)

	require.Equal(t, 10, snapshot.TestsTaken)
	require.Equal(t, 10, snapshot.TestsPassed)
	require.InDelta(t, 92.9, snapshot.AverageScore, 0.01)
	require.Equal(t, 96.0, snapshot.BestScore)
	require.Equal(t, 95.0, snapshot.LatestScore)
	require.Equal(t, 100.0, snapshot.PassRate)
	require.Equal(t, models.SkillExpert, snapshot.SkillLevel)
	require.InDelta(t, (92.9+100)/2, snapshot.MasteryPercentage, 0.01)
}

func TestRecomputeSkillThresholds(t *testing.T) {
	repo := newFakeProgressRepo()
	svc := NewProgressService(repo, newFakeResultRepo(), testLogger())

	// High average but too few passes stays beginner.
	snapshot, err := svc.Recompute(context.Background(), uuid.New(), "mathematics", historyOf([]float64{95, 96}, 60))
	require.NoError(t, err)
	require.Equal(t, models.SkillBeginner, snapshot.SkillLevel)

	snapshot, err = svc.Recompute(context.Background(), uuid.New(), "mathematics", historyOf([]float64{72, 74, 71}, 60))
	require.NoError(t, err)
	require.Equal(t, models.SkillIntermediate, snapshot.SkillLevel)

	snapshot, err = svc.Recompute(context.Background(), uuid.New(), "mathematics", historyOf([]float64{82, 84, 81, 80, 85}, 60))
	require.NoError(t, err)
	require.Equal(t, models.SkillAdvanced, snapshot.SkillLevel)
}

func TestRecomputeMixedHistory(t *testing.T) {
	repo := newFakeProgressRepo()
	svc := NewProgressService(repo, newFakeResultRepo(), testLogger())

	snapshot, err := svc.Recompute(context.Background(), uuid.New(), "mathematics", historyOf([]float64{40, 80, 60}, 60))
	require.NoError(t, err)
	require.Equal(t, 3, snapshot.TestsTaken)
	require.Equal(t, 2, snapshot.TestsPassed)
	require.InDelta(t, 60.0, snapshot.AverageScore, 1e-9)
	require.Equal(t, 80.0, snapshot.BestScore)
	require.Equal(t, 60.0, snapshot.LatestScore)
	require.InDelta(t, 2.0/3.0*100, snapshot.PassRate, 1e-9)
	require.InDelta(t, (60.0+2.0/3.0*100)/2, snapshot.MasteryPercentage, 1e-9)
	require.Equal(t, models.SkillBeginner, snapshot.SkillLevel)
}

func TestRecomputeIdempotent(t *testing.T) {
	repo := newFakeProgressRepo()
	svc := NewProgressService(repo, newFakeResultRepo(), testLogger())

	history := historyOf([]float64{70, 75, 80}, 60)
	userID := uuid.New()

	first, err := svc.Recompute(context.Background(), userID, "mathematics", history)
	require.NoError(t, err)
	second, err := svc.Recompute(context.Background(), userID, "mathematics", history)
	require.NoError(t, err)

	first.UpdatedAt = second.UpdatedAt
	require.Equal(t, first, second)
	require.Len(t, repo.snapshots, 1)
}

func TestRecomputeMissingCategory(t *testing.T) {
	repo := newFakeProgressRepo()
	svc := NewProgressService(repo, newFakeResultRepo(), testLogger())

	_, err := svc.Recompute(context.Background(), uuid.New(), "", nil)
	require.ErrorIs(t, err, ErrMissingCategory)
	require.Zero(t, repo.upsertCalls)
}

func TestRefreshLoadsHistoryFromStorage(t *testing.T) {
	results := newFakeResultRepo()
	repo := newFakeProgressRepo()
	svc := NewProgressService(repo, results, testLogger())

	userID := uuid.New()
	for _, percentage := range []float64{65, 85} {
		result := models.Result{
			ID:         uuid.New(),
			AttemptID:  uuid.New(),
			UserID:     userID,
			Category:   "mathematics",
			Percentage: percentage,
			IsPassed:   true,
		}
		require.NoError(t, results.Upsert(context.Background(), &result))
	}

	snapshot, err := svc.Refresh(context.Background(), userID, "mathematics")
	require.NoError(t, err)
	require.Equal(t, 2, snapshot.TestsTaken)
	require.Equal(t, 2, snapshot.TestsPassed)
	require.InDelta(t, 75.0, snapshot.AverageScore, 1e-9)

	stored, err := repo.Get(context.Background(), userID, "mathematics")
	require.NoError(t, err)
	require.Equal(t, snapshot, stored)
}
