package session

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/levra/voicebridge/internal/api/modules/live"
	"github.com/levra/voicebridge/internal/doccontext"
	"github.com/levra/voicebridge/internal/pdf"
	"github.com/levra/voicebridge/internal/rooms"
	storesession "github.com/levra/voicebridge/internal/stores/session"
	"github.com/levra/voicebridge/pkg/sdk"
)

// CreateSession handles POST requests to create a new session. A room
// identifier may be supplied; otherwise a fresh one is generated.
func CreateSession(c *gin.Context) {
	var req sdk.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err.Error()).AsGinResponse())
			return
		}
	}

	roomID := req.RoomID
	if roomID == "" {
		roomID = rooms.GenerateRoomName()
	}

	sess, err := store.CreateSession(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to create session", err.Error()).AsGinResponse())
		return
	}

	resp, err := toSDKSession(c.Request.Context(), sess)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to load timeline", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session created successfully", resp).AsGinResponse())
}

// GetSession handles GET requests to retrieve a session and its merged timeline
func GetSession(c *gin.Context) {
	roomID := c.Param("room_id")

	sess, err := store.GetSession(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", err.Error()).AsGinResponse())
		return
	}

	resp, err := toSDKSession(c.Request.Context(), sess)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to load timeline", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session retrieved successfully", resp).AsGinResponse())
}

// PostSegment handles POST requests recording one transcript segment from
// either speaker. Live subscribers receive the updated merged timeline.
func PostSegment(c *gin.Context) {
	roomID := c.Param("room_id")

	var req sdk.PostSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err.Error()).AsGinResponse())
		return
	}

	speaker := storesession.Speaker(req.Speaker)
	if !speaker.Valid() {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Speaker must be 'agent' or 'user'", nil).AsGinResponse())
		return
	}

	seg := storesession.Segment{
		ID:            req.ID,
		Speaker:       speaker,
		Text:          req.Text,
		FirstReceived: req.FirstReceived,
	}

	if err := store.SaveSegment(c.Request.Context(), roomID, seg); err != nil {
		if errors.Is(err, storesession.ErrNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", err.Error()).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to save segment", err.Error()).AsGinResponse())
		return
	}

	entries := publishTimeline(c.Request.Context(), roomID)

	c.JSON(sdk.NewSuccessResponse("Segment recorded successfully", toSDKEntries(entries)).AsGinResponse())
}

// DeleteSession handles DELETE requests to remove a session, its live
// coordinator state, and any stored document context
func DeleteSession(c *gin.Context) {
	roomID := c.Param("room_id")

	if err := store.DeleteSession(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, storesession.ErrNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", err.Error()).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to delete session", err.Error()).AsGinResponse())
		return
	}

	if err := contexts.DeleteContext(c.Request.Context(), roomID); err != nil {
		log.Printf("[SESSION]: failed to delete context for %s: %v", roomID, err)
	}

	dropRuntime(roomID)

	c.JSON(sdk.NewSuccessResponse[any]("Session deleted successfully", nil).AsGinResponse())
}

// SubmitContext handles POST requests attaching a document to a session
// mid-lifecycle. The upload passes through the session's context
// coordinator, so validation, state transitions, and mid-conversation
// notification all behave as one unit.
func SubmitContext(c *gin.Context) {
	roomID := c.Param("room_id")

	if _, err := store.GetSession(c.Request.Context(), roomID); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", err.Error()).AsGinResponse())
		return
	}

	file, header, err := c.Request.FormFile("pdf_file")
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "No PDF file provided", err.Error()).AsGinResponse())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not read uploaded file", err.Error()).AsGinResponse())
		return
	}

	upload := doccontext.Upload{
		Filename:  header.Filename,
		MIMEType:  header.Header.Get("Content-Type"),
		SizeBytes: header.Size,
		Data:      data,
	}

	rt := getRuntime(roomID)
	summary, err := rt.coordinator.SubmitDocument(c.Request.Context(), upload)
	if err != nil {
		var validationErr *doccontext.ValidationError
		var uploadErr *doccontext.UploadError
		switch {
		case errors.Is(err, doccontext.ErrUploadInProgress):
			c.JSON(sdk.NewErrorResponse(http.StatusConflict, "An upload is already in progress", err.Error()).AsGinResponse())
		case errors.As(err, &validationErr):
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, validationErr.Reason, nil).AsGinResponse())
		case errors.As(err, &uploadErr):
			c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Document upload failed", err.Error()).AsGinResponse())
		default:
			c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Document upload failed", err.Error()).AsGinResponse())
		}
		return
	}

	publishTimeline(c.Request.Context(), roomID)

	c.JSON(sdk.NewSuccessResponse("Document context attached", sdk.ContextStatus{
		State:      string(rt.coordinator.State()),
		Filename:   summary.Filename,
		PageCount:  summary.PageCount,
		AttachedAt: &summary.AttachedAt,
	}).AsGinResponse())
}

// GetContextStatus handles GET requests reporting a session's context state
func GetContextStatus(c *gin.Context) {
	roomID := c.Param("room_id")

	rt := getRuntime(roomID)
	status := sdk.ContextStatus{State: string(rt.coordinator.State())}
	if attached := rt.coordinator.Attached(); attached != nil {
		status.Filename = attached.Filename
		status.PageCount = attached.PageCount
		status.AttachedAt = &attached.AttachedAt
	}

	c.JSON(sdk.NewSuccessResponse("Context status retrieved", status).AsGinResponse())
}

// ResetContext handles DELETE requests detaching the local context projection
func ResetContext(c *gin.Context) {
	roomID := c.Param("room_id")

	rt := getRuntime(roomID)
	if err := rt.coordinator.Reset(); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusConflict, "An upload is in progress", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Context reset", sdk.ContextStatus{
		State: string(rt.coordinator.State()),
	}).AsGinResponse())
}

// publishTimeline pushes the merged timeline to live subscribers and returns it
func publishTimeline(ctx context.Context, roomID string) []storesession.Entry {
	entries, err := store.GetTimeline(ctx, roomID)
	if err != nil {
		log.Printf("[SESSION]: failed to load timeline for %s: %v", roomID, err)
		return nil
	}
	hub.PublishTimeline(roomID, entries)
	return entries
}

// Helper method to convert an internal session to an sdk session
func toSDKSession(ctx context.Context, sess *storesession.Session) (sdk.Session, error) {
	entries, err := store.GetTimeline(ctx, sess.RoomID)
	if err != nil {
		return sdk.Session{}, err
	}

	return sdk.Session{
		RoomID:    sess.RoomID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Timeline:  toSDKEntries(entries),
	}, nil
}

// Helper method to convert internal timeline entries to sdk entries
func toSDKEntries(entries []storesession.Entry) []sdk.TimelineEntry {
	out := make([]sdk.TimelineEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, sdk.TimelineEntry{
			ID:          e.ID,
			Kind:        string(e.Kind),
			Text:        e.Text,
			OrderingKey: e.OrderingKey,
		})
	}
	return out
}

/** Module state **/

// runtime holds the per-session pieces that live outside the store: the
// frozen identity resolver and the context coordinator
type runtime struct {
	resolver    *rooms.Resolver
	coordinator *doccontext.Coordinator
}

var (
	store    storesession.Store
	contexts pdf.ContextStore
	pipeline doccontext.Pipeline
	policy   doccontext.Policy
	hub      *live.Hub

	runtimes   = make(map[string]*runtime)
	runtimesMu sync.Mutex
)

// Init wires the module's dependencies
func Init(s storesession.Store, processor *pdf.Processor, ctxStore pdf.ContextStore, h *live.Hub, p doccontext.Policy) {
	store = s
	contexts = ctxStore
	hub = h
	policy = p
	pipeline = doccontext.NewLocalPipeline(processor, ctxStore, h)
}

// getRuntime returns the live coordinator state for a room, creating it on
// first use. The resolver freezes the room identifier from the request path.
func getRuntime(roomID string) *runtime {
	runtimesMu.Lock()
	defer runtimesMu.Unlock()

	if rt, ok := runtimes[roomID]; ok {
		return rt
	}

	resolver := rooms.NewResolver()
	resolver.Resolve(rooms.Signal{Name: "request", Value: roomID})

	rt := &runtime{
		resolver:    resolver,
		coordinator: doccontext.NewCoordinator(resolver, pipeline, &storeConversation{roomID: roomID}, policy),
	}
	runtimes[roomID] = rt
	return rt
}

// dropRuntime forgets the live state for a room
func dropRuntime(roomID string) {
	runtimesMu.Lock()
	defer runtimesMu.Unlock()
	delete(runtimes, roomID)
}

// storeConversation adapts the session store to the coordinator's view of
// the timeline
type storeConversation struct {
	roomID string
}

func (sc *storeConversation) Started(ctx context.Context) (bool, error) {
	entries, err := store.GetTimeline(ctx, sc.roomID)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

func (sc *storeConversation) AppendSystem(ctx context.Context, text string) error {
	if _, err := store.AppendSystem(ctx, sc.roomID, text); err != nil {
		return err
	}
	publishTimeline(ctx, sc.roomID)
	return nil
}
