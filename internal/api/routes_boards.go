package api

import (
	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/handlers"
)

func registerBoardRoutes(api *gin.RouterGroup, boards *handlers.BoardHandler, tasks *handlers.TaskHandler) {
	group := api.Group("/boards")
	{
		group.GET("/:id", boards.Get)
		group.PATCH("/:id", boards.Update)
		group.DELETE("/:id", boards.Delete)
		group.POST("/:id/columns", boards.CreateColumn)
		group.GET("/:id/columns", boards.ListColumns)
	}

	columns := api.Group("/columns")
	{
		columns.PATCH("/:id", boards.RenameColumn)
		columns.PUT("/:id/position", boards.MoveColumn)
		columns.DELETE("/:id", boards.DeleteColumn)
		columns.POST("/:id/tasks", tasks.Create)
		columns.GET("/:id/tasks", tasks.ListForColumn)
	}
}
