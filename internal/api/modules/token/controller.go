package token

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/levra/voicebridge/internal/rooms"
	"github.com/levra/voicebridge/internal/tokens"
	"github.com/levra/voicebridge/pkg/sdk"
)

// getToken mints a media-room access token for a client. When no room is
// supplied a fresh room name is generated, so every new visitor gets their
// own session.
func getToken(c *gin.Context) {
	name := c.DefaultQuery("name", "my name")
	room := c.Query("room")

	if room == "" {
		room = rooms.GenerateRoomName()
	}

	signed, err := minter.Mint(name, name, room)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to mint access token", err.Error()).AsGinResponse())
		return
	}

	// Plain-text token, consumed directly by the media transport client
	c.String(http.StatusOK, signed)
}

// Package-level dependencies, set by Init
var minter *tokens.Minter

// Init wires the module's dependencies
func Init(m *tokens.Minter) {
	minter = m
}
