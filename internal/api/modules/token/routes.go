package token

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the token module
func RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/getToken", getToken)
}
