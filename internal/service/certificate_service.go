package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/buxoro/exam-engine/internal/dto"
	"github.com/buxoro/exam-engine/internal/models"
	"github.com/buxoro/exam-engine/internal/observability"
	"github.com/buxoro/exam-engine/internal/repository"
)

// ErrResultNotPassed indicates certificate issuance was requested for a
// failed result.
var ErrResultNotPassed = errors.New("result is not passed")

// ErrCertificateCollision indicates repeated certificate number collisions;
// the condition is retryable with fresh randomness.
var ErrCertificateCollision = errors.New("certificate number collision")

// ErrVerificationFailed indicates the presented verification code does not
// belong to the certificate.
var ErrVerificationFailed = errors.New("certificate verification failed")

// certificateIssueRetries bounds regeneration after a number collision.
const certificateIssueRetries = 3

// CertificateService issues and verifies certificates for passing results.
type CertificateService interface {
	// Issue creates the certificate for a passing result, or returns the
	// existing one unchanged. At most one certificate exists per result.
	Issue(ctx context.Context, result models.Result, payload dto.IssueCertificateRequest) (models.Certificate, error)

	// Verify looks up a certificate by number and checks the presented
	// verification code.
	Verify(ctx context.Context, certificateNumber, verificationCode string) (models.Certificate, error)
}

type certificateService struct {
	repo      repository.CertificateRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCertificateService constructs the issuance service.
func NewCertificateService(repo repository.CertificateRepository, validator *validator.Validate, logger zerolog.Logger) CertificateService {
	return &certificateService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "certificate_service").Logger(),
		now:       time.Now,
	}
}

func (s *certificateService) Issue(ctx context.Context, result models.Result, payload dto.IssueCertificateRequest) (models.Certificate, error) {
	tracer := otel.Tracer("github.com/buxoro/exam-engine/internal/service/certificate")
	ctx, span := tracer.Start(ctx, "certificate.issue")
	span.SetAttributes(attribute.String("result.id", result.ID.String()))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return models.Certificate{}, err
	}

	if !result.IsPassed {
		span.RecordError(ErrResultNotPassed)
		span.SetStatus(codes.Error, "result_not_passed")
		return models.Certificate{}, ErrResultNotPassed
	}

	existing, err := s.repo.GetByResult(ctx, result.ID)
	if err == nil {
		span.SetAttributes(attribute.Bool("certificate.idempotent", true))
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "certificate_lookup_failed")
		return models.Certificate{}, fmt.Errorf("look up certificate: %w", err)
	}

	for attempt := 0; attempt < certificateIssueRetries; attempt++ {
		number := generateCertificateNumber(s.now().Year(), payload.CategoryCode)
		certificate := models.Certificate{
			ID:                uuid.New(),
			ResultID:          result.ID,
			CertificateNumber: number,
			RecipientName:     payload.RecipientName,
			VerificationCode:  verificationCode(number, payload.RecipientName, payload.CompletionDate),
			ScoreAchieved:     result.Percentage,
			CompletionDate:    payload.CompletionDate,
			IssuedAt:          s.now(),
		}

		err := s.repo.Create(ctx, &certificate)
		if err == nil {
			observability.CertificatesIssued().Inc()
			span.SetAttributes(attribute.String("certificate.number", number))
			s.logger.Info().
				Str("result_id", result.ID.String()).
				Str("certificate_number", number).
				Msg("certificate issued")
			return certificate, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "certificate_insert_failed")
			return models.Certificate{}, fmt.Errorf("persist certificate: %w", err)
		}

		// A duplicated key is either a concurrent issuance that won the
		// race on result_id, or a number collision worth retrying.
		if existing, lookupErr := s.repo.GetByResult(ctx, result.ID); lookupErr == nil {
			span.SetAttributes(attribute.Bool("certificate.idempotent", true))
			return existing, nil
		}

		observability.CertificateCollisions().Inc()
		s.logger.Warn().
			Str("result_id", result.ID.String()).
			Str("certificate_number", number).
			Msg("certificate number collision, regenerating")
	}

	span.RecordError(ErrCertificateCollision)
	span.SetStatus(codes.Error, "certificate_collision")
	return models.Certificate{}, ErrCertificateCollision
}

func (s *certificateService) Verify(ctx context.Context, certificateNumber, verificationCode string) (models.Certificate, error) {
	tracer := otel.Tracer("github.com/buxoro/exam-engine/internal/service/certificate")
	ctx, span := tracer.Start(ctx, "certificate.verify")
	span.SetAttributes(attribute.String("certificate.number", certificateNumber))
	defer span.End()

	certificate, err := s.repo.GetByNumber(ctx, certificateNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "certificate_lookup_failed")
		return models.Certificate{}, err
	}

	if certificate.VerificationCode != strings.ToUpper(strings.TrimSpace(verificationCode)) {
		span.RecordError(ErrVerificationFailed)
		span.SetStatus(codes.Error, "verification_failed")
		return models.Certificate{}, ErrVerificationFailed
	}

	return certificate, nil
}

// generateCertificateNumber builds "CERT-{year}-{CAT}-{HEX8}". The category
// segment is the upper-cased first three characters of the category code;
// the random segment comes from a fresh v4 UUID.
func generateCertificateNumber(year int, categoryCode string) string {
	category := strings.ToUpper(categoryCode)
	if len(category) > 3 {
		category = category[:3]
	}
	random := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("CERT-%d-%s-%s", year, category, random)
}

// verificationCode derives the public verification code: the upper-cased
// first twenty hex characters of SHA-256 over the certificate number, the
// recipient name and the ISO-8601 completion date.
func verificationCode(certificateNumber, recipientName string, completionDate time.Time) string {
	sum := sha256.Sum256([]byte(certificateNumber + recipientName + completionDate.Format("2006-01-02")))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:20])
}
