package api

import (
	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("", handler.List)
		users.PATCH("/me", handler.UpdateProfile)
		users.POST("/me/password", handler.ChangePassword)
		users.POST("/me/email", handler.RequestEmailChange)
		users.POST("/me/email/confirm", handler.ConfirmEmailChange)
		users.PUT("/:id/role", handler.SetRole)
		users.PUT("/:id/active", handler.SetActive)
	}
}
