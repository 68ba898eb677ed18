package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/response"
)

// AuthHandler exposes registration, login and credential recovery endpoints.
type AuthHandler struct {
	users *services.UserService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *services.UserService) (*AuthHandler, error) {
	if users == nil {
		return nil, errors.New("auth handler: user service is required")
	}
	return &AuthHandler{users: users}, nil
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=32"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name" validate:"max=64"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.users.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":         result.User,
		"access_token": result.AccessToken,
	})
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.VerifyEmail(requestContext(c), req.Email, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

type resendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req resendVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.ResendVerification(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "verification code sent if the address is registered"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.RequestPasswordReset(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "reset code sent if the address is registered"})
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.ResetPassword(requestContext(c), req.Email, req.Code, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "password updated"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
