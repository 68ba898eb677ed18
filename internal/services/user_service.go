package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/auth"
	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/pkg/crypto"
	apperrors "github.com/esalinasbarros/zmartboard/pkg/errors"
	"github.com/esalinasbarros/zmartboard/pkg/logger"
	"github.com/esalinasbarros/zmartboard/pkg/metrics"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserExists signals a username or email collision on registration.
	ErrUserExists = apperrors.New("USER_EXISTS", "Username or email is already taken", http.StatusConflict)
	// ErrEmailNotVerified rejects logins from accounts that never confirmed their address.
	ErrEmailNotVerified = apperrors.New("EMAIL_NOT_VERIFIED", "Email address has not been verified", http.StatusForbidden)
	// ErrUserInactive rejects logins from deactivated accounts.
	ErrUserInactive = apperrors.New("USER_INACTIVE", "Account is deactivated", http.StatusForbidden)
	// ErrEmailTaken signals the requested new email already belongs to an account.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "Email address is already in use", http.StatusConflict)
)

// RegisterInput captures the fields required to create an account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateProfileInput describes mutable profile fields.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Username  *string
}

// LoginResult bundles the authenticated user with their access token.
type LoginResult struct {
	User        *models.User
	AccessToken string
}

// UserService handles account lifecycle, credentials and authentication.
type UserService struct {
	db           *gorm.DB
	jwt          *auth.JWTService
	verification *VerificationService
	audit        *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, jwt *auth.JWTService, verification *VerificationService, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("user service: jwt service is required")
	}
	if verification == nil {
		return nil, errors.New("user service: verification service is required")
	}
	return &UserService{db: db, jwt: jwt, verification: verification, audit: audit}, nil
}

// Register creates an account and issues an email verification code. The
// account stays unverified until the code is confirmed.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewBadRequest("username, email and password are required")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      models.UserRoleUser,
		IsActive:  true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	if _, err := s.verification.Issue(ctx, email, models.VerificationEmail, &user.ID); err != nil {
		logger.Error("failed to issue registration code", zap.Error(err))
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "user.register",
		Resource: user.ID,
		Result:   "success",
	})

	return user, nil
}

// Login verifies credentials and returns a signed access token. Invalid
// email and invalid password collapse into the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   &user.ID,
			Action:   "user.login",
			Resource: user.ID,
			Result:   "failure",
		})
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrUserInactive
	}
	if !user.EmailVerified {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrEmailNotVerified
	}

	token, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{
		UserID: user.ID,
		Role:   string(user.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("user service: issue token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "user.login",
		Resource: user.ID,
		Result:   "success",
	})

	return &LoginResult{User: &user, AccessToken: token}, nil
}

// VerifyEmail confirms a registration code and marks the account verified.
func (s *UserService) VerifyEmail(ctx context.Context, email, code string) (*models.User, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.verification.Verify(ctx, email, code, models.VerificationEmail); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !user.EmailVerified {
		if err := s.db.WithContext(ctx).Model(&user).Update("email_verified", true).Error; err != nil {
			return nil, fmt.Errorf("user service: mark verified: %w", err)
		}
		user.EmailVerified = true
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "user.verify_email",
		Resource: user.ID,
		Result:   "success",
	})

	return &user, nil
}

// ResendVerification issues a fresh registration code. Unknown and already
// verified addresses return quietly to avoid account enumeration.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	_, err = s.verification.Issue(ctx, email, models.VerificationEmail, &user.ID)
	return err
}

// GetByID loads a user by their identifier.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user by their email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile modifies the caller's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Username != nil {
		if username := strings.TrimSpace(*input.Username); username != "" && username != user.Username {
			updates["username"] = username
		}
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(user.Password, current) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := crypto.HashPassword(next)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "user.change_password",
		Resource: user.ID,
		Result:   "success",
	})

	return nil
}

// RequestPasswordReset issues a reset code. Unknown addresses return quietly
// to avoid account enumeration.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}

	_, err = s.verification.Issue(ctx, email, models.VerificationPasswordReset, &user.ID)
	return err
}

// ResetPassword confirms a reset code and installs the new password.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if newPassword == "" {
		return apperrors.NewBadRequest("new password is required")
	}

	if _, err := s.verification.Verify(ctx, email, code, models.VerificationPasswordReset); err != nil {
		return err
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "user.reset_password",
		Resource: user.ID,
		Result:   "success",
	})

	return nil
}

// RequestEmailChange issues a confirmation code to the proposed new address.
func (s *UserService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	ctx = ensureContext(ctx)

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" {
		return apperrors.NewBadRequest("new email is required")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == newEmail {
		return apperrors.NewBadRequest("new email matches the current address")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", newEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("user service: check email: %w", err)
	}
	if count > 0 {
		return ErrEmailTaken
	}

	_, err = s.verification.Issue(ctx, newEmail, models.VerificationEmailChange, &user.ID)
	return err
}

// ConfirmEmailChange verifies the code sent to the new address and switches
// the account over to it.
func (s *UserService) ConfirmEmailChange(ctx context.Context, userID, newEmail, code string) (*models.User, error) {
	ctx = ensureContext(ctx)

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))

	record, err := s.verification.Verify(ctx, newEmail, code, models.VerificationEmailChange)
	if err != nil {
		return nil, err
	}
	if record.UserID == nil || *record.UserID != userID {
		return nil, ErrCodeInvalid
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("email", newEmail).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: update email: %w", err)
	}
	user.Email = newEmail

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "user.change_email",
		Resource: user.ID,
		Result:   "success",
	})

	return user, nil
}

// List returns all users. Restricted to platform admins in the handler layer.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// SetRole changes a user's platform role. Only a super admin may grant or
// revoke roles, and never their own.
func (s *UserService) SetRole(ctx context.Context, actorID, userID string, role models.UserRole) (*models.User, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown user role")
	}

	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.UserRoleSuperAdmin {
		return nil, apperrors.ErrForbidden
	}
	if actorID == userID {
		return nil, apperrors.NewBadRequest("cannot change your own role")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("user service: update role: %w", err)
	}
	user.Role = role

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "user.set_role",
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{"role": role},
	})

	return user, nil
}

// SetActive toggles account activation. Restricted to platform admins.
func (s *UserService) SetActive(ctx context.Context, actorID, userID string, active bool) (*models.User, error) {
	ctx = ensureContext(ctx)

	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsSystemAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if actorID == userID {
		return nil, apperrors.NewBadRequest("cannot deactivate your own account")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("user service: update active flag: %w", err)
	}
	user.IsActive = active

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "user.set_active",
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{"active": active},
	})

	return user, nil
}
