package api

import (
	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/handlers"
)

func registerTaskRoutes(api *gin.RouterGroup, handler *handlers.TaskHandler) {
	tasks := api.Group("/tasks")
	{
		tasks.GET("/:id", handler.Get)
		tasks.PATCH("/:id", handler.Update)
		tasks.PUT("/:id/position", handler.Move)
		tasks.POST("/:id/archive", handler.Archive)
		tasks.POST("/:id/unarchive", handler.Unarchive)
		tasks.DELETE("/:id", handler.Delete)

		tasks.POST("/:id/assignees", handler.Assign)
		tasks.DELETE("/:id/assignees/:userID", handler.Unassign)

		tasks.POST("/:id/time-entries", handler.CreateTimeEntry)
		tasks.GET("/:id/time-entries", handler.ListTimeEntries)
	}

	entries := api.Group("/time-entries")
	{
		entries.PATCH("/:id", handler.UpdateTimeEntry)
		entries.DELETE("/:id", handler.DeleteTimeEntry)
	}
}
