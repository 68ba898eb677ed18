package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/esalinasbarros/zmartboard/internal/auth"
	"github.com/esalinasbarros/zmartboard/internal/handlers"
	"github.com/esalinasbarros/zmartboard/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler, jwt *iauth.JWTService) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.POST("/verify-email", handler.VerifyEmail)
		auth.POST("/resend-verification", handler.ResendVerification)
		auth.POST("/forgot-password", handler.ForgotPassword)
		auth.POST("/reset-password", handler.ResetPassword)
	}

	auth.GET("/me", middleware.Auth(jwt), handler.Me)
}
