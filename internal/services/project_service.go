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

// ErrProjectNotFound indicates the requested project does not exist.
var ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)

// CreateProjectInput captures new project metadata.
type CreateProjectInput struct {
	Title       string
	Description string
}

// UpdateProjectInput describes mutable project fields.
type UpdateProjectInput struct {
	Title       *string
	Description *string
}

// ProjectService handles project lifecycle and ownership semantics.
type ProjectService struct {
	db      *gorm.DB
	members *MembershipService
	audit   *AuditService
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(db *gorm.DB, members *MembershipService, audit *AuditService) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	if members == nil {
		return nil, errors.New("project service: membership service is required")
	}
	return &ProjectService{db: db, members: members, audit: audit}, nil
}

// Create registers a new project and enrols the creator as its first admin.
func (s *ProjectService) Create(ctx context.Context, creatorID string, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("project title is required")
	}

	project := &models.Project{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("project service: create project: %w", err)
		}

		member := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    creatorID,
			Role:      models.ProjectRoleAdmin,
		}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("project service: enrol creator: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &creatorID,
		Action:   "project.create",
		Resource: project.ID,
		Result:   "success",
		Metadata: map[string]any{"title": project.Title},
	})

	return project, nil
}

// GetByID loads a project for a requesting member.
func (s *ProjectService) GetByID(ctx context.Context, requesterID, projectID string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Members.User").
		Preload("Boards").
		First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get project: %w", err)
	}
	return &project, nil
}

// ListMine returns the projects the requesting user belongs to.
func (s *ProjectService) ListMine(ctx context.Context, requesterID string) ([]models.Project, error) {
	ctx = ensureContext(ctx)

	var projects []models.Project
	err := s.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", requesterID).
		Order("projects.created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("project service: list projects: %w", err)
	}
	return projects, nil
}

// ListAll returns every project. Restricted to platform admins.
func (s *ProjectService) ListAll(ctx context.Context, requesterID string) ([]models.Project, error) {
	ctx = ensureContext(ctx)

	if _, err := s.members.RequireSystemAdmin(ctx, requesterID); err != nil {
		return nil, err
	}

	var projects []models.Project
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("project service: list all projects: %w", err)
	}
	return projects, nil
}

// Update modifies project metadata. Requires the project admin role.
func (s *ProjectService) Update(ctx context.Context, requesterID, projectID string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleAdmin); err != nil {
		return nil, err
	}

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load project: %w", err)
	}

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" && title != project.Title {
			updates["title"] = title
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	if len(updates) == 0 {
		return &project, nil
	}

	if err := s.db.WithContext(ctx).Model(&project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("project service: update project: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "project.update",
		Resource: project.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &project, nil
}

// Delete removes a project and everything it owns: members, invitations,
// boards, columns, tasks, assignments, and time entries.
func (s *ProjectService) Delete(ctx context.Context, requesterID, projectID string) error {
	ctx = ensureContext(ctx)

	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleAdmin); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("project service: load project: %w", err)
		}

		taskScope := "SELECT id FROM tasks WHERE column_id IN (SELECT id FROM columns WHERE board_id IN (SELECT id FROM boards WHERE project_id = ?))"

		if err := tx.Exec("DELETE FROM task_assignees WHERE task_id IN ("+taskScope+")", projectID).Error; err != nil {
			return fmt.Errorf("project service: delete task assignments: %w", err)
		}
		if err := tx.Where("task_id IN ("+taskScope+")", projectID).Delete(&models.TimeEntry{}).Error; err != nil {
			return fmt.Errorf("project service: delete time entries: %w", err)
		}
		if err := tx.Where("column_id IN (SELECT id FROM columns WHERE board_id IN (SELECT id FROM boards WHERE project_id = ?))", projectID).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("project service: delete tasks: %w", err)
		}
		if err := tx.Where("board_id IN (SELECT id FROM boards WHERE project_id = ?)", projectID).Delete(&models.Column{}).Error; err != nil {
			return fmt.Errorf("project service: delete columns: %w", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Board{}).Error; err != nil {
			return fmt.Errorf("project service: delete boards: %w", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectInvitation{}).Error; err != nil {
			return fmt.Errorf("project service: delete invitations: %w", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return fmt.Errorf("project service: delete members: %w", err)
		}
		if err := tx.Delete(&project).Error; err != nil {
			return fmt.Errorf("project service: delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "project.delete",
		Resource: projectID,
		Result:   "success",
	})

	return nil
}
