package live

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the live module
func RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/sessions/:room_id/live", streamTimeline)
}
