package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is issued at most once for a passing Result. The number and
// verification code are globally unique; uniqueness is enforced by the
// storage collaborator, not assumed by the issuer.
type Certificate struct {
	ID                uuid.UUID `json:"id"`
	ResultID          uuid.UUID `json:"result_id"`
	CertificateNumber string    `json:"certificate_number"`
	RecipientName     string    `json:"recipient_name"`
	VerificationCode  string    `json:"verification_code"`
	ScoreAchieved     float64   `json:"score_achieved"`
	CompletionDate    time.Time `json:"completion_date"`
	IssuedAt          time.Time `json:"issued_at"`
}
