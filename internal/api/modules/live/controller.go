package live

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/levra/voicebridge/internal/stores/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamTimeline upgrades the connection and pushes the room's merged
// timeline to the client: one snapshot immediately, then one event per
// timeline change or context update.
func streamTimeline(c *gin.Context) {
	roomID := c.Param("room_id")

	entries, err := store.GetTimeline(c.Request.Context(), roomID)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := hub.Subscribe(roomID)
	defer cancel()

	// Reader loop only services control frames and detects the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Initial snapshot so late joiners see the conversation so far
	snapshot := Event{Type: EventTimeline, RoomID: roomID, Timeline: entries}
	if err := writeEvent(conn, snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			if err := writeEvent(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, event Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("[LIVE]: failed to write event for %s: %v", event.RoomID, err)
		return err
	}
	return nil
}

// Package-level dependencies, set by Init
var (
	store session.Store
	hub   *Hub
)

// Init wires the module's dependencies
func Init(s session.Store, h *Hub) {
	store = s
	hub = h
}
