package api

import (
	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/handlers"
)

func registerProjectRoutes(api *gin.RouterGroup, projects *handlers.ProjectHandler, invitations *handlers.InvitationHandler, boards *handlers.BoardHandler) {
	group := api.Group("/projects")
	{
		group.POST("", projects.Create)
		group.GET("", projects.List)
		group.GET("/all", projects.ListAll)
		group.GET("/:id", projects.Get)
		group.PATCH("/:id", projects.Update)
		group.DELETE("/:id", projects.Delete)

		group.GET("/:id/members", projects.ListMembers)
		group.POST("/:id/members", projects.AddMember)
		group.PUT("/:id/members/:userID/role", projects.ChangeMemberRole)
		group.DELETE("/:id/members/:userID", projects.RemoveMember)
		group.POST("/:id/leave", projects.Leave)

		group.POST("/:id/invitations", invitations.Create)
		group.GET("/:id/invitations", invitations.ListForProject)

		group.POST("/:id/boards", boards.Create)
		group.GET("/:id/boards", boards.ListForProject)
	}

	user := api.Group("/invitations")
	{
		user.GET("", invitations.ListForUser)
		user.POST("/:id/accept", invitations.Accept)
		user.POST("/:id/reject", invitations.Reject)
		user.DELETE("/:id", invitations.Cancel)
	}
}
