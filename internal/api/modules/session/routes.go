package session

import "github.com/gin-gonic/gin"

// RegisterRoutes adds all routes in this module to the given router group
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/sessions")

	group.POST("", CreateSession)
	group.GET("/:room_id", GetSession)
	group.DELETE("/:room_id", DeleteSession)
	group.POST("/:room_id/segments", PostSegment)
	group.POST("/:room_id/context", SubmitContext)
	group.GET("/:room_id/context", GetContextStatus)
	group.DELETE("/:room_id/context", ResetContext)
}
