package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/response"
)

// UserHandler exposes profile and account administration endpoints.
type UserHandler struct {
	users   *services.UserService
	members *services.MembershipService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService, members *services.MembershipService) (*UserHandler, error) {
	if users == nil {
		return nil, errors.New("user handler: user service is required")
	}
	if members == nil {
		return nil, errors.New("user handler: membership service is required")
	}
	return &UserHandler{users: users, members: members}, nil
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=64"`
	LastName  *string `json:"last_name" validate:"omitempty,max=64"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=32"`
}

// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), currentUserID(c), services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// POST /api/users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.users.ChangePassword(requestContext(c), currentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "password updated"})
}

type requestEmailChangeRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
}

// POST /api/users/me/email
func (h *UserHandler) RequestEmailChange(c *gin.Context) {
	var req requestEmailChangeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.RequestEmailChange(requestContext(c), currentUserID(c), req.NewEmail); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "confirmation code sent to the new address"})
}

type confirmEmailChangeRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// POST /api/users/me/email/confirm
func (h *UserHandler) ConfirmEmailChange(c *gin.Context) {
	var req confirmEmailChangeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.ConfirmEmailChange(requestContext(c), currentUserID(c), req.NewEmail, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// GET /api/users (platform admins only)
func (h *UserHandler) List(c *gin.Context) {
	ctx := requestContext(c)

	if _, err := h.members.RequireSystemAdmin(ctx, currentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	users, err := h.users.List(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, users)
}

type setRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required"`
}

// PUT /api/users/:id/role (super admin only)
func (h *UserHandler) SetRole(c *gin.Context) {
	var req setRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetRole(requestContext(c), currentUserID(c), c.Param("id"), req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PUT /api/users/:id/active (platform admins only)
func (h *UserHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetActive(requestContext(c), currentUserID(c), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
