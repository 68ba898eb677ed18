package models

import "time"

// VerificationType distinguishes the flows that consume emailed codes.
type VerificationType string

const (
	VerificationEmail         VerificationType = "EMAIL_VERIFICATION"
	VerificationPasswordReset VerificationType = "PASSWORD_RESET"
	VerificationEmailChange   VerificationType = "EMAIL_CHANGE"
)

// EmailVerification stores short-lived 6-digit codes proving control of an
// email address. Issuing a new code for the same (email, type) pair marks
// earlier unverified codes as consumed.
type EmailVerification struct {
	BaseModel

	Email     string           `gorm:"not null;index:idx_email_type" json:"email"`
	Code      string           `gorm:"not null" json:"-"`
	Type      VerificationType `gorm:"not null;index:idx_email_type" json:"type"`
	ExpiresAt time.Time        `gorm:"index" json:"expires_at"`
	Verified  bool             `gorm:"default:false" json:"verified"`
	Attempts  int              `gorm:"default:0" json:"attempts"`
	UserID    *string          `gorm:"type:uuid;index" json:"user_id,omitempty"`
}
