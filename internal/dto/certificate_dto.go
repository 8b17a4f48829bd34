package dto

import "time"

// IssueCertificateRequest carries the certificate fields supplied by the
// caller; the issuer derives everything else from the result.
type IssueCertificateRequest struct {
	RecipientName  string    `validate:"required,min=1"`
	CategoryCode   string    `validate:"required,min=1"`
	CompletionDate time.Time `validate:"required"`
}
