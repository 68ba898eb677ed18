package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/response"
)

// InvitationHandler exposes project invitation endpoints.
type InvitationHandler struct {
	invitations *services.InvitationService
}

// NewInvitationHandler constructs an InvitationHandler.
func NewInvitationHandler(invitations *services.InvitationService) (*InvitationHandler, error) {
	if invitations == nil {
		return nil, errors.New("invitation handler: invitation service is required")
	}
	return &InvitationHandler{invitations: invitations}, nil
}

type createInvitationRequest struct {
	ReceiverID string             `json:"receiver_id" validate:"required,uuid4"`
	Role       models.ProjectRole `json:"role" validate:"required"`
}

// POST /api/projects/:id/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	var req createInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invitation, err := h.invitations.Create(requestContext(c), currentUserID(c), c.Param("id"), req.ReceiverID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, invitation)
}

// GET /api/projects/:id/invitations
func (h *InvitationHandler) ListForProject(c *gin.Context) {
	invitations, err := h.invitations.ListForProject(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitations)
}

// GET /api/invitations
func (h *InvitationHandler) ListForUser(c *gin.Context) {
	invitations, err := h.invitations.ListForUser(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitations)
}

// POST /api/invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	invitation, err := h.invitations.Accept(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitation)
}

// POST /api/invitations/:id/reject
func (h *InvitationHandler) Reject(c *gin.Context) {
	invitation, err := h.invitations.Reject(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitation)
}

// DELETE /api/invitations/:id
func (h *InvitationHandler) Cancel(c *gin.Context) {
	if err := h.invitations.Cancel(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "invitation cancelled"})
}
