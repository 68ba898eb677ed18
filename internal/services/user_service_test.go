package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/auth"
	"github.com/esalinasbarros/zmartboard/internal/models"
	apperrors "github.com/esalinasbarros/zmartboard/pkg/errors"
)

func newUserService(t *testing.T, db *gorm.DB) (*UserService, *VerificationService) {
	t.Helper()

	jwt, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "zmartboard-test"})
	require.NoError(t, err)

	verification := newVerificationService(t, db)
	svc, err := NewUserService(db, jwt, verification, nil)
	require.NoError(t, err)
	return svc, verification
}

func latestCode(t *testing.T, db *gorm.DB, email string, vType models.VerificationType) string {
	t.Helper()

	var record models.EmailVerification
	err := db.Where("email = ? AND type = ? AND verified = ?", email, vType, false).
		Order("created_at DESC").
		First(&record).Error
	require.NoError(t, err)
	return record.Code
}

func TestUserServiceRegisterAndVerifyFlow(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)

	ctx := testContext()
	user, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "secret123!",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.False(t, user.EmailVerified)

	// Unverified accounts cannot log in.
	_, err = svc.Login(ctx, "alice@example.com", "secret123!")
	require.ErrorIs(t, err, ErrEmailNotVerified)

	code := latestCode(t, db, "alice@example.com", models.VerificationEmail)
	verified, err := svc.VerifyEmail(ctx, "alice@example.com", code)
	require.NoError(t, err)
	require.True(t, verified.EmailVerified)

	result, err := svc.Login(ctx, "alice@example.com", "secret123!")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, user.ID, result.User.ID)
}

func TestUserServiceRegisterRejectsDuplicates(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)

	ctx := testContext()
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret123!"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret123!"})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(ctx, RegisterInput{Username: "other", Email: "alice@example.com", Password: "secret123!"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestUserServiceLoginCollapsesUnknownAndWrongPassword(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)
	createTestUser(t, db, "alice")

	ctx := testContext()
	_, err := svc.Login(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserServiceLoginRejectsInactiveAccount(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)

	user := createTestUser(t, db, "alice")
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, err := svc.Login(testContext(), "alice@example.com", "secret123!")
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestUserServicePasswordResetFlow(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)
	createTestUser(t, db, "alice")

	ctx := testContext()

	// Unknown addresses return quietly.
	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	code := latestCode(t, db, "alice@example.com", models.VerificationPasswordReset)

	require.NoError(t, svc.ResetPassword(ctx, "alice@example.com", code, "new-password-1"))

	_, err := svc.Login(ctx, "alice@example.com", "secret123!")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "alice@example.com", "new-password-1")
	require.NoError(t, err)
}

func TestUserServiceChangePasswordChecksCurrent(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)
	user := createTestUser(t, db, "alice")

	ctx := testContext()
	err := svc.ChangePassword(ctx, user.ID, "wrong", "another-secret-1")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "secret123!", "another-secret-1"))

	_, err = svc.Login(ctx, "alice@example.com", "another-secret-1")
	require.NoError(t, err)
}

func TestUserServiceEmailChangeFlow(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)
	user := createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	ctx := testContext()

	err := svc.RequestEmailChange(ctx, user.ID, "bob@example.com")
	require.ErrorIs(t, err, ErrEmailTaken)

	require.NoError(t, svc.RequestEmailChange(ctx, user.ID, "new@example.com"))
	code := latestCode(t, db, "new@example.com", models.VerificationEmailChange)

	updated, err := svc.ConfirmEmailChange(ctx, user.ID, "new@example.com", code)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", updated.Email)

	_, err = svc.Login(ctx, "new@example.com", "secret123!")
	require.NoError(t, err)
}

func TestUserServiceSetRoleRestrictedToSuperAdmin(t *testing.T) {
	db := openServiceTestDB(t)
	svc, _ := newUserService(t, db)

	super := createTestUser(t, db, "root")
	require.NoError(t, db.Model(super).Update("role", models.UserRoleSuperAdmin).Error)
	regular := createTestUser(t, db, "alice")
	target := createTestUser(t, db, "bob")

	ctx := testContext()

	_, err := svc.SetRole(ctx, regular.ID, target.ID, models.UserRoleAdmin)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.SetRole(ctx, super.ID, super.ID, models.UserRoleUser)
	require.Error(t, err)

	updated, err := svc.SetRole(ctx, super.ID, target.ID, models.UserRoleAdmin)
	require.NoError(t, err)
	require.Equal(t, models.UserRoleAdmin, updated.Role)
}
