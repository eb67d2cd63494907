package upload

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the upload pipeline routes. These live at the
// engine root rather than under /api to keep the paths the existing clients
// post to.
func RegisterRoutes(engine *gin.Engine) {
	engine.POST("/upload-pdf", uploadPDF)
	engine.POST("/notify-pdf-update/:room_id", notifyUpdate)
}
