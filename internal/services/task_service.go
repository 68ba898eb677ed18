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

var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)
	// ErrTaskArchived rejects mutations on archived tasks.
	ErrTaskArchived = apperrors.New("TASK_ARCHIVED", "Task is archived", http.StatusBadRequest)
	// ErrCrossBoardMove rejects moving a task into a column of another board.
	ErrCrossBoardMove = apperrors.NewBadRequest("target column belongs to a different board")
)

// CreateTaskInput captures new task metadata. A nil Position appends.
type CreateTaskInput struct {
	Title       string
	Description string
	Position    *int
}

// UpdateTaskInput describes mutable task fields.
type UpdateTaskInput struct {
	Title       *string
	Description *string
}

// MoveTaskInput names the target column and position of a task move. A nil
// TargetColumnID keeps the task in its current column.
type MoveTaskInput struct {
	TargetColumnID *string
	Position       int
}

// TaskService manages the ordered tasks of a column, their assignees and
// archival state.
type TaskService struct {
	db      *gorm.DB
	members *MembershipService
	audit   *AuditService
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(db *gorm.DB, members *MembershipService, audit *AuditService) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if members == nil {
		return nil, errors.New("task service: membership service is required")
	}
	return &TaskService{db: db, members: members, audit: audit}, nil
}

// Create inserts a task into the column at the requested position, or
// appends when no position is given. Requires the developer role.
func (s *TaskService) Create(ctx context.Context, requesterID, columnID string, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("task title is required")
	}

	column, projectID, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		ColumnID:    column.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := taskOrder.resolveInsertPosition(tx, column.ID, input.Position)
		if err != nil {
			return err
		}
		task.Position = position
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("task service: create task: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.ReorderOperations.WithLabelValues("task", "failure").Inc()
		return nil, err
	}

	metrics.ReorderOperations.WithLabelValues("task", "success").Inc()
	return task, nil
}

// GetByID loads a task with its assignees.
func (s *TaskService) GetByID(ctx context.Context, requesterID, taskID string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, projectID, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Assignees").First(task, "id = ?", taskID).Error; err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}
	return task, nil
}

// ListForColumn returns the column's tasks in position order. Archived tasks
// are excluded unless includeArchived is set.
func (s *TaskService) ListForColumn(ctx context.Context, requesterID, columnID string, includeArchived bool) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	column, projectID, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("column_id = ?", column.ID)
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}

	var tasks []models.Task
	if err := query.Preload("Assignees").Order("position ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: list tasks: %w", err)
	}
	return tasks, nil
}

// Update modifies task metadata. Archived tasks are immutable.
func (s *TaskService) Update(ctx context.Context, requesterID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, projectID, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}
	if task.Archived {
		return nil, ErrTaskArchived
	}

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" && title != task.Title {
			updates["title"] = title
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	if len(updates) == 0 {
		return task, nil
	}

	if err := s.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("task service: update task: %w", err)
	}
	return task, nil
}

// Move relocates a task within its column or into another column of the same
// board. The source gap closes and the target slot opens in one transaction,
// so both sequences stay dense. Archived tasks cannot move.
func (s *TaskService) Move(ctx context.Context, requesterID, taskID string, input MoveTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	if input.Position < 0 {
		return nil, errInvalidPosition
	}

	task, projectID, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}
	if task.Archived {
		return nil, ErrTaskArchived
	}

	targetColumnID := task.ColumnID
	if input.TargetColumnID != nil && strings.TrimSpace(*input.TargetColumnID) != "" {
		targetColumnID = strings.TrimSpace(*input.TargetColumnID)
	}

	previousColumn, previousPosition := task.ColumnID, task.Position
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if targetColumnID == task.ColumnID {
			return s.moveWithinColumn(tx, task, input.Position)
		}
		return s.moveAcrossColumns(tx, task, targetColumnID, input.Position)
	})
	if err != nil {
		metrics.ReorderOperations.WithLabelValues("task", "failure").Inc()
		return nil, err
	}
	if task.ColumnID == previousColumn && task.Position == previousPosition {
		return task, nil
	}

	metrics.ReorderOperations.WithLabelValues("task", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "task.move",
		Resource: task.ID,
		Result:   "success",
		Metadata: map[string]any{"column_id": task.ColumnID, "position": task.Position},
	})

	return task, nil
}

func (s *TaskService) moveWithinColumn(tx *gorm.DB, task *models.Task, position int) error {
	next, err := taskOrder.nextPosition(tx, task.ColumnID)
	if err != nil {
		return err
	}
	target := position
	if target >= next {
		target = next - 1
	}
	if target == task.Position {
		return nil
	}

	if err := taskOrder.shiftForMove(tx, task.ColumnID, task.ID, task.Position, target); err != nil {
		return err
	}
	if err := tx.Model(task).UpdateColumn("position", target).Error; err != nil {
		return fmt.Errorf("task service: move task: %w", err)
	}
	task.Position = target
	return nil
}

func (s *TaskService) moveAcrossColumns(tx *gorm.DB, task *models.Task, targetColumnID string, position int) error {
	var source, target models.Column
	if err := tx.First(&source, "id = ?", task.ColumnID).Error; err != nil {
		return fmt.Errorf("task service: load source column: %w", err)
	}
	err := tx.First(&target, "id = ?", targetColumnID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrColumnNotFound
	}
	if err != nil {
		return fmt.Errorf("task service: load target column: %w", err)
	}
	if source.BoardID != target.BoardID {
		return ErrCrossBoardMove
	}

	next, err := taskOrder.nextPosition(tx, target.ID)
	if err != nil {
		return err
	}
	slot := position
	if slot > next {
		slot = next
	}

	if err := taskOrder.closeGap(tx, source.ID, task.Position); err != nil {
		return err
	}
	if err := taskOrder.openSlot(tx, target.ID, slot); err != nil {
		return err
	}

	updates := map[string]any{"column_id": target.ID, "position": slot}
	if err := tx.Model(task).UpdateColumns(updates).Error; err != nil {
		return fmt.Errorf("task service: move task across columns: %w", err)
	}
	task.ColumnID = target.ID
	task.Position = slot
	return nil
}

// SetArchived toggles a task's archival flag. Archiving keeps the task in
// its slot; only a later delete closes the gap.
func (s *TaskService) SetArchived(ctx context.Context, requesterID, taskID string, archived bool) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, projectID, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}
	if task.Archived == archived {
		return task, nil
	}

	if err := s.db.WithContext(ctx).Model(task).Update("archived", archived).Error; err != nil {
		return nil, fmt.Errorf("task service: set archived: %w", err)
	}
	task.Archived = archived

	action := "task.archive"
	if !archived {
		action = "task.unarchive"
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   action,
		Resource: taskID,
		Result:   "success",
	})

	return task, nil
}

// Delete removes a task with its assignments and time entries, closing the
// position gap in its column. Requires the developer role.
func (s *TaskService) Delete(ctx context.Context, requesterID, taskID string) error {
	ctx = ensureContext(ctx)

	task, projectID, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_assignees WHERE task_id = ?", taskID).Error; err != nil {
			return fmt.Errorf("task service: delete assignments: %w", err)
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TimeEntry{}).Error; err != nil {
			return fmt.Errorf("task service: delete time entries: %w", err)
		}
		if err := tx.Delete(task).Error; err != nil {
			return fmt.Errorf("task service: delete task: %w", err)
		}
		return taskOrder.closeGap(tx, task.ColumnID, task.Position)
	})
	if err != nil {
		metrics.ReorderOperations.WithLabelValues("task", "failure").Inc()
		return err
	}

	metrics.ReorderOperations.WithLabelValues("task", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &requesterID,
		Action:   "task.delete",
		Resource: taskID,
		Result:   "success",
		Metadata: map[string]any{"column_id": task.ColumnID},
	})

	return nil
}

// Assign attaches a project member to the task. The assignee must belong to
// the task's project.
func (s *TaskService) Assign(ctx context.Context, requesterID, taskID, assigneeID string) error {
	ctx = ensureContext(ctx)

	task, projectID, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return err
	}
	if task.Archived {
		return ErrTaskArchived
	}

	member, err := s.members.Membership(ctx, assigneeID, projectID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrMemberNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", assigneeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("task service: load assignee: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(task).Association("Assignees").Append(&user); err != nil {
		return fmt.Errorf("task service: assign user: %w", err)
	}
	return nil
}

// Unassign detaches a user from the task.
func (s *TaskService) Unassign(ctx context.Context, requesterID, taskID, assigneeID string) error {
	ctx = ensureContext(ctx)

	task, projectID, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(task).Association("Assignees").Delete(&models.User{BaseModel: models.BaseModel{ID: assigneeID}}); err != nil {
		return fmt.Errorf("task service: unassign user: %w", err)
	}
	return nil
}

// loadTask resolves the task and the project it belongs to through its
// column and board.
func (s *TaskService) loadTask(ctx context.Context, taskID string) (*models.Task, string, error) {
	var task models.Task
	err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrTaskNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("task service: load task: %w", err)
	}

	_, projectID, err := s.loadColumn(ctx, task.ColumnID)
	if err != nil {
		return nil, "", err
	}
	return &task, projectID, nil
}

// loadColumn resolves the column and its owning project.
func (s *TaskService) loadColumn(ctx context.Context, columnID string) (*models.Column, string, error) {
	var column models.Column
	err := s.db.WithContext(ctx).First(&column, "id = ?", columnID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrColumnNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("task service: load column: %w", err)
	}

	var board models.Board
	err = s.db.WithContext(ctx).First(&board, "id = ?", column.BoardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrBoardNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("task service: load board: %w", err)
	}
	return &column, board.ProjectID, nil
}
