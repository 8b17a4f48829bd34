package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/buxoro/exam-engine/internal/dto"
	"github.com/buxoro/exam-engine/internal/models"
)

type fakeCertificateRepo struct {
	mu          sync.Mutex
	byResult    map[uuid.UUID]models.Certificate
	numbers     map[string]struct{}
	createCalls int
	failCreates int
}

func newFakeCertificateRepo() *fakeCertificateRepo {
	return &fakeCertificateRepo{
		byResult: make(map[uuid.UUID]models.Certificate),
		numbers:  make(map[string]struct{}),
	}
}

func (f *fakeCertificateRepo) Create(_ context.Context, certificate *models.Certificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreates > 0 {
		f.failCreates--
		return gorm.ErrDuplicatedKey
	}
	if _, ok := f.byResult[certificate.ResultID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if _, ok := f.numbers[certificate.CertificateNumber]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.byResult[certificate.ResultID] = *certificate
	f.numbers[certificate.CertificateNumber] = struct{}{}
	return nil
}

func (f *fakeCertificateRepo) GetByResult(_ context.Context, resultID uuid.UUID) (models.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	certificate, ok := f.byResult[resultID]
	if !ok {
		return models.Certificate{}, gorm.ErrRecordNotFound
	}
	return certificate, nil
}

func (f *fakeCertificateRepo) GetByNumber(_ context.Context, certificateNumber string) (models.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, certificate := range f.byResult {
		if certificate.CertificateNumber == certificateNumber {
			return certificate, nil
		}
	}
	return models.Certificate{}, gorm.ErrRecordNotFound
}

func passedResult() models.Result {
	return models.Result{
		ID:         uuid.New(),
		AttemptID:  uuid.New(),
		Percentage: 87.5,
		IsPassed:   true,
	}
}

func issuePayload() dto.IssueCertificateRequest {
	return dto.IssueCertificateRequest{
		RecipientName:  "Aziza Karimova",
		CategoryCode:   "mathematics",
		CompletionDate: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestIssueWellFormedNumberAndCode(t *testing.T) {
	repo := newFakeCertificateRepo()
	svc := NewCertificateService(repo, testValidator(), testLogger())

	result := passedResult()
	payload := issuePayload()

	certificate, err := svc.Issue(context.Background(), result, payload)
	require.NoError(t, err)
	require.Equal(t, result.ID, certificate.ResultID)
	require.Equal(t, result.Percentage, certificate.ScoreAchieved)
	require.Regexp(t, regexp.MustCompile(`^CERT-\d{4}-MAT-[0-9A-F]{8}$`), certificate.CertificateNumber)

	sum := sha256.Sum256([]byte(certificate.CertificateNumber + payload.RecipientName + "2025-04-02"))
	want := strings.ToUpper(hex.EncodeToString(sum[:])[:20])
	require.Equal(t, want, certificate.VerificationCode)
}

func TestIssueRejectsFailedResult(t *testing.T) {
	repo := newFakeCertificateRepo()
	svc := NewCertificateService(repo, testValidator(), testLogger())

	result := passedResult()
	result.IsPassed = false

	_, err := svc.Issue(context.Background(), result, issuePayload())
	require.ErrorIs(t, err, ErrResultNotPassed)
	require.Zero(t, repo.createCalls)
}

func TestIssueRejectsInvalidPayload(t *testing.T) {
	repo := newFakeCertificateRepo()
	svc := NewCertificateService(repo, testValidator(), testLogger())

	_, err := svc.Issue(context.Background(), passedResult(), dto.IssueCertificateRequest{})
	require.Error(t, err)
	require.Zero(t, repo.createCalls)
}

func TestIssueIdempotent(t *testing.T) {
	repo := newFakeCertificateRepo()
	svc := NewCertificateService(repo, testValidator(), testLogger())

	result := passedResult()
	first, err := svc.Issue(context.Background(), result, issuePayload())
	require.NoError(t, err)

	second, err := svc.Issue(context.Background(), result, issuePayload())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.createCalls)
}

func TestIssueRetriesNumberCollision(t *testing.T) {
	repo := newFakeCertificateRepo()
	repo.failCreates = 2
	svc := NewCertificateService(repo, testValidator(), testLogger())

	certificate, err := svc.Issue(context.Background(), passedResult(), issuePayload())
	require.NoError(t, err)
	require.NotEmpty(t, certificate.CertificateNumber)
	require.Equal(t, 3, repo.createCalls)
}

func TestIssueCollisionExhausted(t *testing.T) {
	repo := newFakeCertificateRepo()
	repo.failCreates = certificateIssueRetries
	svc := NewCertificateService(repo, testValidator(), testLogger())

	_, err := svc.Issue(context.Background(), passedResult(), issuePayload())
	require.ErrorIs(t, err, ErrCertificateCollision)
}

func TestIssueConcurrentAtMostOnce(t *testing.T) {
	repo := newFakeCertificateRepo()
	svc := NewCertificateService(repo, testValidator(), testLogger())

	result := passedResult()
	payload := issuePayload()

	var wg sync.WaitGroup
	certificates := make([]models.Certificate, 16)
	errs := make([]error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			certificates[slot], errs[slot] = svc.Issue(context.Background(), result, payload)
		}(i)
	}
	wg.Wait()

	require.Len(t, repo.byResult, 1)
	for i, certificate := range certificates {
		require.NoError(t, errs[i])
		require.Equal(t, certificates[0].CertificateNumber, certificate.CertificateNumber)
	}
}

func TestVerify(t *testing.T) {
	repo := newFakeCertificateRepo()
	svc := NewCertificateService(repo, testValidator(), testLogger())

	certificate, err := svc.Issue(context.Background(), passedResult(), issuePayload())
	require.NoError(t, err)

	verified, err := svc.Verify(context.Background(), certificate.CertificateNumber, certificate.VerificationCode)
	require.NoError(t, err)
	require.Equal(t, certificate, verified)

	// Codes are case and whitespace tolerant on input.
	_, err = svc.Verify(context.Background(), certificate.CertificateNumber, " "+strings.ToLower(certificate.VerificationCode)+" ")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), certificate.CertificateNumber, "00000000000000000000")
	require.ErrorIs(t, err, ErrVerificationFailed)

	_, err = svc.Verify(context.Background(), "CERT-2025-MAT-FFFFFFFF", certificate.VerificationCode)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
