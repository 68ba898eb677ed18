package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/services"
	appErrors "github.com/esalinasbarros/zmartboard/pkg/errors"
	"github.com/esalinasbarros/zmartboard/pkg/response"
)

// TaskHandler exposes task, assignment and time tracking endpoints.
type TaskHandler struct {
	tasks   *services.TaskService
	entries *services.TimeEntryService
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(tasks *services.TaskService, entries *services.TimeEntryService) (*TaskHandler, error) {
	if tasks == nil {
		return nil, errors.New("task handler: task service is required")
	}
	if entries == nil {
		return nil, errors.New("task handler: time entry service is required")
	}
	return &TaskHandler{tasks: tasks, entries: entries}, nil
}

type createTaskRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=256"`
	Description string `json:"description" validate:"max=4096"`
	Position    *int   `json:"position" validate:"omitempty,gte=0"`
}

// POST /api/columns/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), currentUserID(c), c.Param("id"), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, task)
}

// GET /api/columns/:id/tasks
func (h *TaskHandler) ListForColumn(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"

	tasks, err := h.tasks.ListForColumn(requestContext(c), currentUserID(c), c.Param("id"), includeArchived)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.GetByID(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=256"`
	Description *string `json:"description" validate:"omitempty,max=4096"`
}

// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req updateTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

type moveTaskRequest struct {
	ColumnID *string `json:"column_id" validate:"omitempty,uuid4"`
	Position *int    `json:"position" validate:"required,gte=0"`
}

// PUT /api/tasks/:id/position
func (h *TaskHandler) Move(c *gin.Context) {
	var req moveTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Move(requestContext(c), currentUserID(c), c.Param("id"), services.MoveTaskInput{
		TargetColumnID: req.ColumnID,
		Position:       *req.Position,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// POST /api/tasks/:id/archive
func (h *TaskHandler) Archive(c *gin.Context) {
	task, err := h.tasks.SetArchived(requestContext(c), currentUserID(c), c.Param("id"), true)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// POST /api/tasks/:id/unarchive
func (h *TaskHandler) Unarchive(c *gin.Context) {
	task, err := h.tasks.SetArchived(requestContext(c), currentUserID(c), c.Param("id"), false)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "task deleted"})
}

type assignTaskRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

// POST /api/tasks/:id/assignees
func (h *TaskHandler) Assign(c *gin.Context) {
	var req assignTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.tasks.Assign(requestContext(c), currentUserID(c), c.Param("id"), req.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "user assigned"})
}

// DELETE /api/tasks/:id/assignees/:userID
func (h *TaskHandler) Unassign(c *gin.Context) {
	err := h.tasks.Unassign(requestContext(c), currentUserID(c), c.Param("id"), c.Param("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "user unassigned"})
}

type timeEntryRequest struct {
	Hours       float64 `json:"hours" validate:"required,gt=0"`
	Date        string  `json:"date" validate:"required"`
	Description string  `json:"description" validate:"max=1024"`
}

func (r timeEntryRequest) parse() (services.TimeEntryInput, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return services.TimeEntryInput{}, appErrors.NewBadRequest("date must be formatted as YYYY-MM-DD")
	}
	return services.TimeEntryInput{
		Hours:       r.Hours,
		Date:        date,
		Description: r.Description,
	}, nil
}

// POST /api/tasks/:id/time-entries
func (h *TaskHandler) CreateTimeEntry(c *gin.Context) {
	var req timeEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input, err := req.parse()
	if err != nil {
		response.Error(c, err)
		return
	}

	entry, err := h.entries.Create(requestContext(c), currentUserID(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, entry)
}

// GET /api/tasks/:id/time-entries
func (h *TaskHandler) ListTimeEntries(c *gin.Context) {
	ctx := requestContext(c)
	userID := currentUserID(c)
	taskID := c.Param("id")

	entries, err := h.entries.ListForTask(ctx, userID, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	total, err := h.entries.TotalForTask(ctx, userID, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"entries": entries, "total_hours": total})
}

// PATCH /api/time-entries/:id
func (h *TaskHandler) UpdateTimeEntry(c *gin.Context) {
	var req timeEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input, err := req.parse()
	if err != nil {
		response.Error(c, err)
		return
	}

	entry, err := h.entries.Update(requestContext(c), currentUserID(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/time-entries/:id
func (h *TaskHandler) DeleteTimeEntry(c *gin.Context) {
	if err := h.entries.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "time entry deleted"})
}
