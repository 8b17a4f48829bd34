// Command gradedemo runs the full evaluation pipeline against an in-memory
// sample test: auto-grading, aggregation, certificate issuance and progress
// recomputation, printing each produced record as JSON.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/buxoro/exam-engine/internal/config"
	"github.com/buxoro/exam-engine/internal/database"
	"github.com/buxoro/exam-engine/internal/dto"
	"github.com/buxoro/exam-engine/internal/grader"
	"github.com/buxoro/exam-engine/internal/models"
	"github.com/buxoro/exam-engine/internal/repository"
	"github.com/buxoro/exam-engine/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)

	db, err := database.ConnectSQLite(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	resultRepo := repository.NewResultRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	resultService := service.NewResultService(resultRepo, grader.NewAutoGrader(), validate, logger)
	certificateService := service.NewCertificateService(certificateRepo, validate, logger)
	progressService := service.NewProgressService(progressRepo, resultRepo, logger)

	ctx := context.Background()
	testID := uuid.New()
	userID := uuid.New()

	questions, submissions := sampleAttempt(testID)
	attempt := dto.AttemptContext{
		AttemptID:   uuid.New(),
		TestID:      testID,
		UserID:      userID,
		Category:    "mathematics",
		PassMark:    cfg.DefaultPassMark,
		CompletedAt: time.Now(),
	}

	result, err := resultService.EvaluateAttempt(ctx, attempt, questions, submissions)
	if err != nil {
		log.Fatalf("failed to evaluate attempt: %v", err)
	}
	emit("result", result)

	if result.IsPassed {
		certificate, err := certificateService.Issue(ctx, result, dto.IssueCertificateRequest{
			RecipientName:  "Demo Candidate",
			CategoryCode:   "mathematics",
			CompletionDate: attempt.CompletedAt,
		})
		if err != nil {
			log.Fatalf("failed to issue certificate: %v", err)
		}
		emit("certificate", certificate)
	}

	snapshot, err := progressService.Refresh(ctx, userID, "mathematics")
	if err != nil {
		log.Fatalf("failed to recompute progress: %v", err)
	}
	emit("progress", snapshot)
}

// sampleAttempt builds one question of every auto-gradable kind plus an
// essay, with submissions that exercise full, partial and pending grading.
func sampleAttempt(testID uuid.UUID) ([]models.Question, []models.Submission) {
	single := models.Question{
		ID: uuid.New(), TestID: testID, Kind: models.KindSingleChoice,
		Text: "What is 7 x 8?", Points: 5, Category: "mathematics", Difficulty: models.DifficultyEasy,
		Choices: []models.Choice{
			{ID: uuid.New(), Text: "54"},
			{ID: uuid.New(), Text: "56", IsCorrect: true},
			{ID: uuid.New(), Text: "64"},
		},
	}
	multiple := models.Question{
		ID: uuid.New(), TestID: testID, Kind: models.KindMultipleChoice,
		Text: "Select the prime numbers.", Points: 4, Category: "mathematics", Difficulty: models.DifficultyMedium,
		Choices: []models.Choice{
			{ID: uuid.New(), Text: "2", IsCorrect: true},
			{ID: uuid.New(), Text: "3", IsCorrect: true},
			{ID: uuid.New(), Text: "5", IsCorrect: true},
			{ID: uuid.New(), Text: "9"},
		},
	}
	answer := 3.14159
	numeric := models.Question{
		ID: uuid.New(), TestID: testID, Kind: models.KindNumeric,
		Text: "Approximate pi to five decimals.", Points: 3, Category: "mathematics", Difficulty: models.DifficultyHard,
		NumericAnswer: &answer, NumericTolerance: 0.001,
	}
	matching := models.Question{
		ID: uuid.New(), TestID: testID, Kind: models.KindMatching,
		Text: "Match each power of two.", Points: 6, Category: "mathematics", Difficulty: models.DifficultyMedium,
		MatchingPairs: map[string]string{"2^3": "8", "2^5": "32", "2^7": "128"},
	}
	essay := models.Question{
		ID: uuid.New(), TestID: testID, Kind: models.KindEssay,
		Text: "Explain the proof of infinitude of primes.", Points: 10, Category: "mathematics", Difficulty: models.DifficultyHard,
	}

	pi := 3.1416
	submissions := []models.Submission{
		{QuestionID: single.ID, SelectedChoices: []uuid.UUID{single.Choices[1].ID}},
		{QuestionID: multiple.ID, SelectedChoices: []uuid.UUID{multiple.Choices[0].ID, multiple.Choices[1].ID}},
		{QuestionID: numeric.ID, NumericAnswer: &pi},
		{QuestionID: matching.ID, MatchingPairs: map[string]string{"2^3": "8", "2^5": "32", "2^7": "127"}},
		{QuestionID: essay.ID, TextAnswer: "Suppose finitely many primes exist..."},
	}

	return []models.Question{single, multiple, numeric, matching, essay}, submissions
}

func emit(label string, v interface{}) {
	data, err := json.MarshalIndent(map[string]interface{}{label: v}, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal %s: %v", label, err)
	}
	os.Stdout.Write(append(data, '\n'))
}
