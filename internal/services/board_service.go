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

// ErrBoardNotFound indicates the requested board does not exist.
var ErrBoardNotFound = apperrors.New("BOARD_NOT_FOUND", "Board not found", http.StatusNotFound)

// CreateBoardInput captures new board metadata.
type CreateBoardInput struct {
	Title       string
	Description string
}

// UpdateBoardInput describes mutable board fields.
type UpdateBoardInput struct {
	Title       *string
	Description *string
}

// BoardService manages boards within a project.
type BoardService struct {
	db      *gorm.DB
	members *MembershipService
	audit   *AuditService
}

// NewBoardService constructs a BoardService instance.
func NewBoardService(db *gorm.DB, members *MembershipService, audit *AuditService) (*BoardService, error) {
	if db == nil {
		return nil, errors.New("board service: db is required")
	}
	if members == nil {
		return nil, errors.New("board service: membership service is required")
	}
	return &BoardService{db: db, members: members, audit: audit}, nil
}

// Create adds a board to the project. Requires the developer role.
func (s *BoardService) Create(ctx context.Context, requesterID, projectID string, input CreateBoardInput) (*models.Board, error) {
	ctx = ensureContext(ctx)

	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("board title is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("board service: check project: %w", err)
	}
	if count == 0 {
		return nil, ErrProjectNotFound
	}

	board := &models.Board{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		ProjectID:   projectID,
	}
	if err := s.db.WithContext(ctx).Create(board).Error; err != nil {
		return nil, fmt.Errorf("board service: create board: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "board.create",
		Resource: board.ID,
		Result:   "success",
		Metadata: map[string]any{"project_id": projectID},
	})

	return board, nil
}

// GetByID loads a board with its columns and tasks in position order.
func (s *BoardService) GetByID(ctx context.Context, requesterID, boardID string) (*models.Board, error) {
	ctx = ensureContext(ctx)

	board, err := s.load(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Preload("Columns", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Columns.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Columns.Tasks.Assignees").
		First(board, "id = ?", boardID).Error
	if err != nil {
		return nil, fmt.Errorf("board service: load board tree: %w", err)
	}
	return board, nil
}

// ListForProject returns the project's boards.
func (s *BoardService) ListForProject(ctx context.Context, requesterID, projectID string) ([]models.Board, error) {
	ctx = ensureContext(ctx)

	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	var boards []models.Board
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&boards).Error
	if err != nil {
		return nil, fmt.Errorf("board service: list boards: %w", err)
	}
	return boards, nil
}

// Update modifies board metadata. Requires the developer role.
func (s *BoardService) Update(ctx context.Context, requesterID, boardID string, input UpdateBoardInput) (*models.Board, error) {
	ctx = ensureContext(ctx)

	board, err := s.load(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" && title != board.Title {
			updates["title"] = title
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	if len(updates) == 0 {
		return board, nil
	}

	if err := s.db.WithContext(ctx).Model(board).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("board service: update board: %w", err)
	}
	return board, nil
}

// Delete removes a board with its columns, tasks, assignments and time entries.
// Requires the project admin role.
func (s *BoardService) Delete(ctx context.Context, requesterID, boardID string) error {
	ctx = ensureContext(ctx)

	board, err := s.load(ctx, boardID)
	if err != nil {
		return err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleAdmin); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskScope := "SELECT id FROM tasks WHERE column_id IN (SELECT id FROM columns WHERE board_id = ?)"

		if err := tx.Exec("DELETE FROM task_assignees WHERE task_id IN ("+taskScope+")", boardID).Error; err != nil {
			return fmt.Errorf("board service: delete task assignments: %w", err)
		}
		if err := tx.Where("task_id IN ("+taskScope+")", boardID).Delete(&models.TimeEntry{}).Error; err != nil {
			return fmt.Errorf("board service: delete time entries: %w", err)
		}
		if err := tx.Where("column_id IN (SELECT id FROM columns WHERE board_id = ?)", boardID).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("board service: delete tasks: %w", err)
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&models.Column{}).Error; err != nil {
			return fmt.Errorf("board service: delete columns: %w", err)
		}
		if err := tx.Delete(board).Error; err != nil {
			return fmt.Errorf("board service: delete board: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "board.delete",
		Resource: boardID,
		Result:   "success",
		Metadata: map[string]any{"project_id": board.ProjectID},
	})

	return nil
}

func (s *BoardService) load(ctx context.Context, boardID string) (*models.Board, error) {
	var board models.Board
	err := s.db.WithContext(ctx).First(&board, "id = ?", boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("board service: load board: %w", err)
	}
	return &board, nil
}
