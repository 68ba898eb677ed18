package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/response"
)

// ProjectHandler exposes project and membership endpoints.
type ProjectHandler struct {
	projects *services.ProjectService
	members  *services.MembershipService
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(projects *services.ProjectService, members *services.MembershipService) (*ProjectHandler, error) {
	if projects == nil {
		return nil, errors.New("project handler: project service is required")
	}
	if members == nil {
		return nil, errors.New("project handler: membership service is required")
	}
	return &ProjectHandler{projects: projects, members: members}, nil
}

type createProjectRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=2048"`
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Create(requestContext(c), currentUserID(c), services.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, project)
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.ListMine(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, projects)
}

// GET /api/projects/all (platform admins only)
func (h *ProjectHandler) ListAll(c *gin.Context) {
	projects, err := h.projects.ListAll(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, projects)
}

// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.GetByID(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, project)
}

type updateProjectRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=2048"`
}

// PATCH /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, project)
}

// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "project deleted"})
}

// GET /api/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	members, err := h.members.List(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, members)
}

type addMemberRequest struct {
	UserID string             `json:"user_id" validate:"required,uuid4"`
	Role   models.ProjectRole `json:"role" validate:"required"`
}

// POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req addMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.members.Add(requestContext(c), currentUserID(c), c.Param("id"), req.UserID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, member)
}

type changeMemberRoleRequest struct {
	Role models.ProjectRole `json:"role" validate:"required"`
}

// PUT /api/projects/:id/members/:userID/role
func (h *ProjectHandler) ChangeMemberRole(c *gin.Context) {
	var req changeMemberRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.members.ChangeRole(requestContext(c), currentUserID(c), c.Param("id"), c.Param("userID"), req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, member)
}

// DELETE /api/projects/:id/members/:userID
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	err := h.members.Remove(requestContext(c), currentUserID(c), c.Param("id"), c.Param("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "member removed"})
}

// POST /api/projects/:id/leave
func (h *ProjectHandler) Leave(c *gin.Context) {
	userID := currentUserID(c)
	if err := h.members.Remove(requestContext(c), userID, c.Param("id"), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "left project"})
}
