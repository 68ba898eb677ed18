package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
	apperrors "github.com/esalinasbarros/zmartboard/pkg/errors"
)

var (
	// ErrNotProjectMember signals the caller has no membership in the project.
	ErrNotProjectMember = apperrors.New("NOT_PROJECT_MEMBER", "You are not a member of this project", http.StatusForbidden)
	// ErrInsufficientRole signals the caller's project role ranks below the required one.
	ErrInsufficientRole = apperrors.New("INSUFFICIENT_ROLE", "Your project role does not permit this action", http.StatusForbidden)
	// ErrMemberExists signals the user already belongs to the project.
	ErrMemberExists = apperrors.New("MEMBER_EXISTS", "User is already a member of this project", http.StatusConflict)
	// ErrMemberNotFound indicates the requested membership does not exist.
	ErrMemberNotFound = apperrors.New("MEMBER_NOT_FOUND", "User is not a member of this project", http.StatusNotFound)
	// ErrLastAdmin rejects removing or downgrading a project's only admin.
	ErrLastAdmin = apperrors.NewBadRequest("a project must retain at least one admin member")
)

// MembershipService resolves project memberships and enforces role
// preconditions for every project-scoped mutation.
type MembershipService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(db *gorm.DB, audit *AuditService) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{db: db, audit: audit}, nil
}

// Membership returns the caller's membership record, or nil when absent.
func (s *MembershipService) Membership(ctx context.Context, userID, projectID string) (*models.ProjectMember, error) {
	ctx = ensureContext(ctx)

	var member models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: resolve membership: %w", err)
	}
	return &member, nil
}

// RequireRole resolves the membership and fails unless its role ranks at
// least as high as the required role.
func (s *MembershipService) RequireRole(ctx context.Context, userID, projectID string, required models.ProjectRole) (*models.ProjectMember, error) {
	member, err := s.Membership(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotProjectMember
	}
	if member.Role.Rank() < required.Rank() {
		return nil, ErrInsufficientRole
	}
	return member, nil
}

// RequireSystemAdmin ensures the user carries a platform admin role.
func (s *MembershipService) RequireSystemAdmin(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load user: %w", err)
	}
	if !user.Role.IsSystemAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return &user, nil
}

// List returns the members of a project visible to any member.
func (s *MembershipService) List(ctx context.Context, requesterID, projectID string) ([]models.ProjectMember, error) {
	ctx = ensureContext(ctx)

	if _, err := s.RequireRole(ctx, requesterID, projectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("membership service: list members: %w", err)
	}
	return members, nil
}

// Add attaches a user to the project with the given role. Requires the
// actor to hold the project admin role.
func (s *MembershipService) Add(ctx context.Context, actorID, projectID, userID string, role models.ProjectRole) (*models.ProjectMember, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown project role")
	}
	if _, err := s.RequireRole(ctx, actorID, projectID, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("membership service: load user: %w", err)
	}

	member := models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrMemberExists
		}
		return nil, fmt.Errorf("membership service: add member: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "project.member.add",
		Resource: projectID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID, "role": role},
	})

	return &member, nil
}

// ChangeRole updates a member's role. Downgrading the last admin is rejected.
func (s *MembershipService) ChangeRole(ctx context.Context, actorID, projectID, userID string, role models.ProjectRole) (*models.ProjectMember, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown project role")
	}
	if _, err := s.RequireRole(ctx, actorID, projectID, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}

	var result models.ProjectMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.ProjectMember
		if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("membership service: load member: %w", err)
		}

		if member.Role == models.ProjectRoleAdmin && role != models.ProjectRoleAdmin {
			if err := ensureNotLastAdmin(tx, projectID); err != nil {
				return err
			}
		}

		if err := tx.Model(&member).Update("role", role).Error; err != nil {
			return fmt.Errorf("membership service: update role: %w", err)
		}

		member.Role = role
		result = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "project.member.change_role",
		Resource: projectID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID, "role": role},
	})

	return &result, nil
}

// Remove detaches a user from the project. Admin role is required unless a
// member removes themselves; the last admin can never be removed.
func (s *MembershipService) Remove(ctx context.Context, actorID, projectID, userID string) error {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID != strings.TrimSpace(userID) {
		if _, err := s.RequireRole(ctx, actorID, projectID, models.ProjectRoleAdmin); err != nil {
			return err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.ProjectMember
		if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("membership service: load member: %w", err)
		}

		if member.Role == models.ProjectRoleAdmin {
			if err := ensureNotLastAdmin(tx, projectID); err != nil {
				return err
			}
		}

		if err := tx.Delete(&member).Error; err != nil {
			return fmt.Errorf("membership service: remove member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &actorID,
		Action:   "project.member.remove",
		Resource: projectID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}

// ensureNotLastAdmin fails when the project currently holds a single admin.
func ensureNotLastAdmin(tx *gorm.DB, projectID string) error {
	var admins int64
	err := tx.Model(&models.ProjectMember{}).
		Where("project_id = ? AND role = ?", projectID, models.ProjectRoleAdmin).
		Count(&admins).Error
	if err != nil {
		return fmt.Errorf("membership service: count admins: %w", err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}
