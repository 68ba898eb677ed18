package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
	apperrors "github.com/esalinasbarros/zmartboard/pkg/errors"
)

// minTrackedHours is the exclusive lower bound on a booking; entries must
// record strictly more than this.
const minTrackedHours = 0.1

var (
	// ErrTimeEntryNotFound indicates the requested time entry does not exist.
	ErrTimeEntryNotFound = apperrors.New("TIME_ENTRY_NOT_FOUND", "Time entry not found", http.StatusNotFound)
	// ErrNotEntryOwner rejects mutations by anyone but the entry's creator.
	ErrNotEntryOwner = apperrors.New("NOT_ENTRY_OWNER", "Only the creator may modify a time entry", http.StatusForbidden)
	// ErrInvalidHours rejects bookings at or below the minimum tracked amount.
	ErrInvalidHours = apperrors.NewBadRequest("hours must be greater than 0.1")
)

// TimeEntryInput captures the fields of a booking.
type TimeEntryInput struct {
	Hours       float64
	Date        time.Time
	Description string
}

// TimeEntryService records hours worked against tasks. Entries belong to the
// user that created them; other members may read but never modify them.
type TimeEntryService struct {
	db      *gorm.DB
	members *MembershipService
	tasks   *TaskService
}

// NewTimeEntryService constructs a TimeEntryService instance.
func NewTimeEntryService(db *gorm.DB, members *MembershipService, tasks *TaskService) (*TimeEntryService, error) {
	if db == nil {
		return nil, errors.New("time entry service: db is required")
	}
	if members == nil {
		return nil, errors.New("time entry service: membership service is required")
	}
	if tasks == nil {
		return nil, errors.New("time entry service: task service is required")
	}
	return &TimeEntryService{db: db, members: members, tasks: tasks}, nil
}

// Create books hours against a task for the requesting user.
func (s *TimeEntryService) Create(ctx context.Context, requesterID, taskID string, input TimeEntryInput) (*models.TimeEntry, error) {
	ctx = ensureContext(ctx)

	if input.Hours <= minTrackedHours {
		return nil, ErrInvalidHours
	}
	if input.Date.IsZero() {
		return nil, apperrors.NewBadRequest("date is required")
	}

	task, projectID, err := s.tasks.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleDeveloper); err != nil {
		return nil, err
	}

	entry := &models.TimeEntry{
		TaskID:      task.ID,
		UserID:      requesterID,
		Hours:       input.Hours,
		Date:        input.Date,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("time entry service: create entry: %w", err)
	}
	return entry, nil
}

// Update modifies one of the caller's own bookings.
func (s *TimeEntryService) Update(ctx context.Context, requesterID, entryID string, input TimeEntryInput) (*models.TimeEntry, error) {
	ctx = ensureContext(ctx)

	if input.Hours <= minTrackedHours {
		return nil, ErrInvalidHours
	}
	if input.Date.IsZero() {
		return nil, apperrors.NewBadRequest("date is required")
	}

	entry, err := s.load(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != requesterID {
		return nil, ErrNotEntryOwner
	}

	updates := map[string]any{
		"hours":       input.Hours,
		"date":        input.Date,
		"description": strings.TrimSpace(input.Description),
	}
	if err := s.db.WithContext(ctx).Model(entry).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("time entry service: update entry: %w", err)
	}

	entry.Hours = input.Hours
	entry.Date = input.Date
	entry.Description = strings.TrimSpace(input.Description)
	return entry, nil
}

// Delete removes one of the caller's own bookings.
func (s *TimeEntryService) Delete(ctx context.Context, requesterID, entryID string) error {
	ctx = ensureContext(ctx)

	entry, err := s.load(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != requesterID {
		return ErrNotEntryOwner
	}

	if err := s.db.WithContext(ctx).Delete(entry).Error; err != nil {
		return fmt.Errorf("time entry service: delete entry: %w", err)
	}
	return nil
}

// ListForTask returns a task's bookings, newest first. Visible to any member
// of the task's project.
func (s *TimeEntryService) ListForTask(ctx context.Context, requesterID, taskID string) ([]models.TimeEntry, error) {
	ctx = ensureContext(ctx)

	_, projectID, err := s.tasks.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleViewer); err != nil {
		return nil, err
	}

	var entries []models.TimeEntry
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("task_id = ?", taskID).
		Order("date DESC, created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("time entry service: list entries: %w", err)
	}
	return entries, nil
}

// TotalForTask sums the hours booked against a task.
func (s *TimeEntryService) TotalForTask(ctx context.Context, requesterID, taskID string) (float64, error) {
	ctx = ensureContext(ctx)

	_, projectID, err := s.tasks.loadTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if _, err := s.members.RequireRole(ctx, requesterID, projectID, models.ProjectRoleViewer); err != nil {
		return 0, err
	}

	var total float64
	err = s.db.WithContext(ctx).
		Model(&models.TimeEntry{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(SUM(hours), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("time entry service: sum hours: %w", err)
	}
	return total, nil
}

func (s *TimeEntryService) load(ctx context.Context, entryID string) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := s.db.WithContext(ctx).First(&entry, "id = ?", entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTimeEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("time entry service: load entry: %w", err)
	}
	return &entry, nil
}
