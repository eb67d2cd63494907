package upload

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/levra/voicebridge/internal/pdf"
	"github.com/levra/voicebridge/pkg/sdk"
)

// uploadPDF accepts a multipart document upload, extracts its content, and
// stores it as conversation context for the posted room. The response shape
// is the pipeline contract: {success, metadata: {num_pages, ...}, error?}.
func uploadPDF(c *gin.Context) {
	file, header, err := c.Request.FormFile("pdf_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, sdk.UploadResult{Error: "No PDF file provided"})
		return
	}
	defer file.Close()

	roomID := c.DefaultPostForm("room_id", "default")

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, sdk.UploadResult{Error: "Could not read uploaded file"})
		return
	}

	doc, err := processor.Extract(header.Filename, data)
	if err != nil {
		c.JSON(http.StatusOK, sdk.UploadResult{Error: err.Error()})
		return
	}

	if _, err := contexts.SaveContext(c.Request.Context(), roomID, doc); err != nil {
		c.JSON(http.StatusInternalServerError, sdk.UploadResult{Error: "Failed to store document context"})
		return
	}

	log.Printf("[UPLOAD]: stored context for %s: %s (%d pages)", roomID, doc.Filename, doc.NumPages)

	c.JSON(http.StatusOK, sdk.UploadResult{
		Success: true,
		Metadata: sdk.DocumentMetadata{
			Filename:  doc.Filename,
			NumPages:  doc.NumPages,
			FileSize:  doc.FileSize,
			Truncated: doc.Truncated,
		},
	})
}

// notifyUpdate acknowledges a mid-conversation context-change signal. The
// agent pipeline reloads its context from the store on the next turn, so the
// acknowledgment only confirms the context is known.
func notifyUpdate(c *gin.Context) {
	roomID := c.Param("room_id")

	if _, err := contexts.GetContext(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, pdf.ErrNoContext) {
			c.JSON(http.StatusNotFound, sdk.NotifyResult{RoomID: roomID})
			return
		}
		c.JSON(http.StatusInternalServerError, sdk.NotifyResult{RoomID: roomID})
		return
	}

	log.Printf("[UPLOAD]: context update signal for %s", roomID)
	c.JSON(http.StatusOK, sdk.NotifyResult{Success: true, RoomID: roomID})
}

// Package-level dependencies, set by Init
var (
	processor *pdf.Processor
	contexts  pdf.ContextStore
)

// Init wires the module's dependencies
func Init(p *pdf.Processor, s pdf.ContextStore) {
	processor = p
	contexts = s
}
