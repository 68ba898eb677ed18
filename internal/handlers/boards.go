package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/response"
)

// BoardHandler exposes board and column endpoints.
type BoardHandler struct {
	boards  *services.BoardService
	columns *services.ColumnService
}

// NewBoardHandler constructs a BoardHandler.
func NewBoardHandler(boards *services.BoardService, columns *services.ColumnService) (*BoardHandler, error) {
	if boards == nil {
		return nil, errors.New("board handler: board service is required")
	}
	if columns == nil {
		return nil, errors.New("board handler: column service is required")
	}
	return &BoardHandler{boards: boards, columns: columns}, nil
}

type createBoardRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=2048"`
}

// POST /api/projects/:id/boards
func (h *BoardHandler) Create(c *gin.Context) {
	var req createBoardRequest
	if !bindAndValidate(c, &req) {
		return
	}

	board, err := h.boards.Create(requestContext(c), currentUserID(c), c.Param("id"), services.CreateBoardInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, board)
}

// GET /api/projects/:id/boards
func (h *BoardHandler) ListForProject(c *gin.Context) {
	boards, err := h.boards.ListForProject(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, boards)
}

// GET /api/boards/:id
func (h *BoardHandler) Get(c *gin.Context) {
	board, err := h.boards.GetByID(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, board)
}

type updateBoardRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=2048"`
}

// PATCH /api/boards/:id
func (h *BoardHandler) Update(c *gin.Context) {
	var req updateBoardRequest
	if !bindAndValidate(c, &req) {
		return
	}

	board, err := h.boards.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateBoardInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, board)
}

// DELETE /api/boards/:id
func (h *BoardHandler) Delete(c *gin.Context) {
	if err := h.boards.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "board deleted"})
}

type createColumnRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=128"`
	Position *int   `json:"position" validate:"omitempty,gte=0"`
}

// POST /api/boards/:id/columns
func (h *BoardHandler) CreateColumn(c *gin.Context) {
	var req createColumnRequest
	if !bindAndValidate(c, &req) {
		return
	}

	column, err := h.columns.Create(requestContext(c), currentUserID(c), c.Param("id"), services.CreateColumnInput{
		Name:     req.Name,
		Position: req.Position,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, column)
}

// GET /api/boards/:id/columns
func (h *BoardHandler) ListColumns(c *gin.Context) {
	columns, err := h.columns.ListForBoard(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, columns)
}

type renameColumnRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// PATCH /api/columns/:id
func (h *BoardHandler) RenameColumn(c *gin.Context) {
	var req renameColumnRequest
	if !bindAndValidate(c, &req) {
		return
	}

	column, err := h.columns.Rename(requestContext(c), currentUserID(c), c.Param("id"), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, column)
}

type moveColumnRequest struct {
	Position *int `json:"position" validate:"required,gte=0"`
}

// PUT /api/columns/:id/position
func (h *BoardHandler) MoveColumn(c *gin.Context) {
	var req moveColumnRequest
	if !bindAndValidate(c, &req) {
		return
	}

	column, err := h.columns.Move(requestContext(c), currentUserID(c), c.Param("id"), *req.Position)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, column)
}

// DELETE /api/columns/:id
func (h *BoardHandler) DeleteColumn(c *gin.Context) {
	if err := h.columns.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "column deleted"})
}
