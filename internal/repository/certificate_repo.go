package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/buxoro/exam-engine/internal/models"
)

// CertificateRepository persists issued certificates. Create surfaces
// gorm.ErrDuplicatedKey when a generated number or the result's 1:1
// relationship collides, which the issuer treats as a retryable condition.
type CertificateRepository interface {
	Create(ctx context.Context, certificate *models.Certificate) error
	GetByResult(ctx context.Context, resultID uuid.UUID) (models.Certificate, error)
	GetByNumber(ctx context.Context, certificateNumber string) (models.Certificate, error)
}

type certificateRow struct {
	ID                uuid.UUID `gorm:"primaryKey"`
	ResultID          uuid.UUID `gorm:"uniqueIndex;not null"`
	CertificateNumber string    `gorm:"size:50;uniqueIndex;not null"`
	RecipientName     string    `gorm:"size:200;not null"`
	VerificationCode  string    `gorm:"size:100;uniqueIndex;not null"`
	ScoreAchieved     float64
	CompletionDate    time.Time
	IssuedAt          time.Time
}

func (certificateRow) TableName() string {
	return "certificates"
}

func newCertificateRow(certificate models.Certificate) certificateRow {
	return certificateRow{
		ID:                certificate.ID,
		ResultID:          certificate.ResultID,
		CertificateNumber: certificate.CertificateNumber,
		RecipientName:     certificate.RecipientName,
		VerificationCode:  certificate.VerificationCode,
		ScoreAchieved:     certificate.ScoreAchieved,
		CompletionDate:    certificate.CompletionDate,
		IssuedAt:          certificate.IssuedAt,
	}
}

func (r certificateRow) toModel() models.Certificate {
	return models.Certificate{
		ID:                r.ID,
		ResultID:          r.ResultID,
		CertificateNumber: r.CertificateNumber,
		RecipientName:     r.RecipientName,
		VerificationCode:  r.VerificationCode,
		ScoreAchieved:     r.ScoreAchieved,
		CompletionDate:    r.CompletionDate,
		IssuedAt:          r.IssuedAt,
	}
}

type certificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository instantiates the repository.
func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) Create(ctx context.Context, certificate *models.Certificate) error {
	row := newCertificateRow(*certificate)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *certificateRepository) GetByResult(ctx context.Context, resultID uuid.UUID) (models.Certificate, error) {
	var row certificateRow
	if err := r.db.WithContext(ctx).Where("result_id = ?", resultID).First(&row).Error; err != nil {
		return models.Certificate{}, err
	}

	return row.toModel(), nil
}

// GetByNumber supports the verification lookup exposed to the reporting
// collaborator.
func (r *certificateRepository) GetByNumber(ctx context.Context, certificateNumber string) (models.Certificate, error) {
	var row certificateRow
	if err := r.db.WithContext(ctx).Where("certificate_number = ?", certificateNumber).First(&row).Error; err != nil {
		return models.Certificate{}, err
	}

	return row.toModel(), nil
}
