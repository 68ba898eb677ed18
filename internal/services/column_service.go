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
	"github.com/esalinasbarros/zmartboard/pkg/metrics"
)

// ErrColumnNotFound indicates the requested column does not exist.
var ErrColumnNotFound = apperrors.New("COLUMN_NOT_FOUND", "Column not found", http.StatusNotFound)

// CreateColumnInput captures new column metadata. A nil Position appends.
type CreateColumnInput struct {
	Name     string
	Position *int
}

// ColumnService manages the ordered columns of a board.
type ColumnService struct {
	db      *gorm.DB
	members *MembershipService
	audit   *AuditService
}

// NewColumnService constructs a ColumnService instance.
func NewColumnService(db *gorm.DB, members *MembershipService, audit *AuditService) (*ColumnService, error) {
	if db == nil {
		return nil, errors.New("column service: db is required")
	}
	if members == nil {
		return nil, errors.New("column service: membership service is required")
	}
	return &ColumnService{db: db, members: members, audit: audit}, nil
}

// Create inserts a column into the board at the requested position, or
// appends when no position is given. Requires the developer role.
func (s *ColumnService) Create(ctx context.Context, requesterID, boardID string, input CreateColumnInput) (*models.Column, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("column name is required")
	}

	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}

	column := &models.Column{Name: name, BoardID: boardID}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := columnOrder.resolveInsertPosition(tx, boardID, input.Position)
		if err != nil {
			return err
		}
		column.Position = position
		if err := tx.Create(column).Error; err != nil {
			return fmt.Errorf("column service: create column: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.ReorderOperations.WithLabelValues("column", "failure").Inc()
		return nil, err
	}

	metrics.ReorderOperations.WithLabelValues("column", "success").Inc()
	return column, nil
}

// Rename updates the column name. Requires the developer role.
func (s *ColumnService) Rename(ctx context.Context, requesterID, columnID, name string) (*models.Column, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("column name is required")
	}

	column, board, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(column).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("column service: rename column: %w", err)
	}
	column.Name = name
	return column, nil
}

// Move shifts the column to a new position within its board. Siblings
// between the old and new position slide by one to keep positions dense.
func (s *ColumnService) Move(ctx context.Context, requesterID, columnID string, newPosition int) (*models.Column, error) {
	ctx = ensureContext(ctx)

	if newPosition < 0 {
		return nil, errInvalidPosition
	}

	column, board, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}

	previous := column.Position
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := columnOrder.nextPosition(tx, column.BoardID)
		if err != nil {
			return err
		}
		target := newPosition
		if target >= next {
			target = next - 1
		}
		if target == column.Position {
			return nil
		}

		if err := columnOrder.shiftForMove(tx, column.BoardID, column.ID, column.Position, target); err != nil {
			return err
		}
		if err := tx.Model(column).UpdateColumn("position", target).Error; err != nil {
			return fmt.Errorf("column service: move column: %w", err)
		}
		column.Position = target
		return nil
	})
	if err != nil {
		metrics.ReorderOperations.WithLabelValues("column", "failure").Inc()
		return nil, err
	}
	if column.Position == previous {
		return column, nil
	}

	metrics.ReorderOperations.WithLabelValues("column", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "column.move",
		Resource: column.ID,
		Result:   "success",
		Metadata: map[string]any{"board_id": column.BoardID, "position": column.Position},
	})

	return column, nil
}

// Delete removes a column with its tasks and closes the position gap.
// Requires the developer role.
func (s *ColumnService) Delete(ctx context.Context, requesterID, columnID string) error {
	ctx = ensureContext(ctx)

	column, board, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleDeveloper); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_assignees WHERE task_id IN (SELECT id FROM tasks WHERE column_id = ?)", columnID).Error; err != nil {
			return fmt.Errorf("column service: delete task assignments: %w", err)
		}
		if err := tx.Where("task_id IN (SELECT id FROM tasks WHERE column_id = ?)", columnID).Delete(&models.TimeEntry{}).Error; err != nil {
			return fmt.Errorf("column service: delete time entries: %w", err)
		}
		if err := tx.Where("column_id = ?", columnID).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("column service: delete tasks: %w", err)
		}
		if err := tx.Delete(column).Error; err != nil {
			return fmt.Errorf("column service: delete column: %w", err)
		}
		return columnOrder.closeGap(tx, column.BoardID, column.Position)
	})
	if err != nil {
		metrics.ReorderOperations.WithLabelValues("column", "failure").Inc()
		return err
	}

	metrics.ReorderOperations.WithLabelValues("column", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "column.delete",
		Resource: columnID,
		Result:   "success",
		Metadata: map[string]any{"board_id": column.BoardID},
	})

	return nil
}

// ListForBoard returns the board's columns in position order.
func (s *ColumnService) ListForBoard(ctx context.Context, requesterID, boardID string) ([]models.Column, error) {
	ctx = ensureContext(ctx)

	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, board.ProjectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	var columns []models.Column
	err = s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position ASC").
		Find(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("column service: list columns: %w", err)
	}
	return columns, nil
}

func (s *ColumnService) loadBoard(ctx context.Context, boardID string) (*models.Board, error) {
	var board models.Board
	err := s.db.WithContext(ctx).First(&board, "id = ?", boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("column service: load board: %w", err)
	}
	return &board, nil
}

func (s *ColumnService) loadColumn(ctx context.Context, columnID string) (*models.Column, *models.Board, error) {
	var column models.Column
	err := s.db.WithContext(ctx).First(&column, "id = ?", columnID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrColumnNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("column service: load column: %w", err)
	}

	board, err := s.loadBoard(ctx, column.BoardID)
	if err != nil {
		return nil, nil, err
	}
	return &column, board, nil
}
