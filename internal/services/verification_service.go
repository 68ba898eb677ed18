package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/pkg/crypto"
	apperrors "github.com/esalinasbarros/zmartboard/pkg/errors"
	"github.com/esalinasbarros/zmartboard/pkg/logger"
	"github.com/esalinasbarros/zmartboard/pkg/mail"
	"github.com/esalinasbarros/zmartboard/pkg/metrics"
)

const (
	verificationCodeDigits  = 6
	verificationCodeTTL     = 15 * time.Minute
	verificationMaxAttempts = 5
)

var (
	// ErrCodeInvalid covers unknown, expired, consumed and mismatched codes.
	ErrCodeInvalid = apperrors.NewBadRequest("verification code is invalid or expired")
	// ErrCodeAttemptsExceeded rejects codes that accumulated too many failed tries.
	ErrCodeAttemptsExceeded = apperrors.New("TOO_MANY_ATTEMPTS", "Too many verification attempts, request a new code", http.StatusBadRequest)
)

// VerificationOption configures a VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationClock overrides the time source used for expiry checks.
func WithVerificationClock(now func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// VerificationService issues and checks short-lived emailed codes.
type VerificationService struct {
	db     *gorm.DB
	mailer mail.Mailer
	now    func() time.Time
}

// NewVerificationService constructs a VerificationService. The mailer may be
// nil, in which case codes are issued but no email leaves the process.
func NewVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}
	svc := &VerificationService{db: db, mailer: mailer, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue creates a fresh code for the (email, type) pair, invalidating any
// earlier unverified codes for that pair, and emails it to the address.
func (s *VerificationService) Issue(ctx context.Context, email string, vType models.VerificationType, userID *string) (*models.EmailVerification, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	code, err := crypto.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return nil, fmt.Errorf("verification service: generate code: %w", err)
	}

	record := &models.EmailVerification{
		Email:     email,
		Code:      code,
		Type:      vType,
		ExpiresAt: s.now().Add(verificationCodeTTL),
		UserID:    userID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.EmailVerification{}).
			Where("email = ? AND type = ? AND verified = ?", email, vType, false).
			Update("verified", true).Error
		if err != nil {
			return fmt.Errorf("verification service: invalidate prior codes: %w", err)
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("verification service: store code: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VerificationCodes.WithLabelValues(string(vType), "issued").Inc()
	s.deliver(ctx, email, vType, code)

	return record, nil
}

// Verify checks a submitted code against the latest active code for the
// (email, type) pair. Each wrong submission counts against the attempt cap;
// once the cap is reached the code is dead and a new one must be requested.
func (s *VerificationService) Verify(ctx context.Context, email, code string, vType models.VerificationType) (*models.EmailVerification, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, apperrors.NewBadRequest("email and code are required")
	}

	var result models.EmailVerification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.EmailVerification
		err := tx.
			Where("email = ? AND type = ? AND verified = ?", email, vType, false).
			Order("created_at DESC").
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeInvalid
		}
		if err != nil {
			return fmt.Errorf("verification service: load code: %w", err)
		}

		if record.Attempts >= verificationMaxAttempts {
			return ErrCodeAttemptsExceeded
		}
		if s.now().After(record.ExpiresAt) {
			return ErrCodeInvalid
		}

		if record.Code != code {
			if err := tx.Model(&record).Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
				return fmt.Errorf("verification service: count attempt: %w", err)
			}
			return ErrCodeInvalid
		}

		updates := map[string]any{
			"verified": true,
			"attempts": gorm.Expr("attempts + 1"),
		}
		if err := tx.Model(&record).Updates(updates).Error; err != nil {
			return fmt.Errorf("verification service: consume code: %w", err)
		}

		record.Verified = true
		record.Attempts++
		result = record
		return nil
	})
	if err != nil {
		metrics.VerificationCodes.WithLabelValues(string(vType), "rejected").Inc()
		return nil, err
	}

	metrics.VerificationCodes.WithLabelValues(string(vType), "verified").Inc()
	return &result, nil
}

// PurgeExpired removes codes whose expiry passed more than the retention
// window ago. Returns the number of deleted rows.
func (s *VerificationService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ensureContext(ctx)

	cutoff := s.now().Add(-retention)
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.EmailVerification{})
	if res.Error != nil {
		return 0, fmt.Errorf("verification service: purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *VerificationService) deliver(ctx context.Context, email string, vType models.VerificationType, code string) {
	if s.mailer == nil {
		return
	}

	subject, body := verificationEmail(vType, code)
	err := s.mailer.Send(ctx, mail.Message{
		To:       []string{email},
		Subject:  subject,
		HTMLBody: body,
	})
	if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		logger.Error("failed to send verification email",
			zap.String("type", string(vType)),
			zap.Error(err))
	}
}

func verificationEmail(vType models.VerificationType, code string) (subject, body string) {
	switch vType {
	case models.VerificationPasswordReset:
		subject = "Reset your password"
		body = fmt.Sprintf("<p>Use the following code to reset your password:</p><h2>%s</h2><p>The code expires in 15 minutes.</p>", code)
	case models.VerificationEmailChange:
		subject = "Confirm your new email address"
		body = fmt.Sprintf("<p>Use the following code to confirm your new email address:</p><h2>%s</h2><p>The code expires in 15 minutes.</p>", code)
	default:
		subject = "Verify your email address"
		body = fmt.Sprintf("<p>Welcome! Use the following code to verify your email address:</p><h2>%s</h2><p>The code expires in 15 minutes.</p>", code)
	}
	return subject, body
}
