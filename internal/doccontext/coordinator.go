// Package doccontext coordinates out-of-band document uploads with an
// in-progress conversation session, so the backend agent pipeline can be told
// that its grounding context changed without disrupting the live audio
// session.
package doccontext

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/levra/voicebridge/internal/rooms"
)

// State is the document-context phase of a session
type State string

const (
	StateNoContext       State = "no_context"
	StateUploading       State = "uploading"
	StateContextAttached State = "context_attached"
)

// Upload is a document submitted for context attachment
type Upload struct {
	Filename  string
	MIMEType  string
	SizeBytes int64
	Data      []byte
}

// ContextSummary is the local projection of an attached document. The
// document itself is owned by the backend pipeline.
type ContextSummary struct {
	Filename   string    `json:"filename"`
	PageCount  int       `json:"page_count"`
	AttachedAt time.Time `json:"attached_at"`
}

// Pipeline is the backend upload/notify collaborator
type Pipeline interface {
	// UploadDocument submits a document for a room and returns its parsed metadata
	UploadDocument(ctx context.Context, roomID string, upload Upload) (*ContextSummary, error)
	// NotifyContextChanged tells the agent pipeline the room's context changed.
	// Repeated notifications for the same attachment are informational.
	NotifyContextChanged(ctx context.Context, roomID string) error
}

// Conversation is the coordinator's view of the session timeline
type Conversation interface {
	// Started reports whether the conversation already has timeline entries
	Started(ctx context.Context) (bool, error)
	// AppendSystem adds a system announcement to the timeline
	AppendSystem(ctx context.Context, text string) error
}

// Coordinator tracks whether a session has document context attached,
// whether an upload is in progress, and whether the backend agent must be
// told that context changed. All context-state transitions go through here.
type Coordinator struct {
	resolver     *rooms.Resolver
	pipeline     Pipeline
	conversation Conversation
	policy       Policy

	mu       sync.Mutex
	state    State
	attached *ContextSummary
}

// NewCoordinator creates a coordinator in the NoContext state
func NewCoordinator(resolver *rooms.Resolver, pipeline Pipeline, conversation Conversation, policy Policy) *Coordinator {
	return &Coordinator{
		resolver:     resolver,
		pipeline:     pipeline,
		conversation: conversation,
		policy:       policy,
		state:        StateNoContext,
	}
}

// State returns the current context state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attached returns the local projection of the attached document, or nil
func (c *Coordinator) Attached() *ContextSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// SubmitDocument validates a document locally, uploads it through the
// pipeline, and on success attaches it to the session. If the conversation
// has already started, the backend agent is notified and a system entry
// announcing the update is appended to the timeline on a successful
// acknowledgment; notification failure never reverts the attachment.
//
// Validation failures and upload failures restore the state held before the
// attempt. A submission while another upload is in flight is refused.
func (c *Coordinator) SubmitDocument(ctx context.Context, upload Upload) (*ContextSummary, error) {
	c.mu.Lock()
	if c.state == StateUploading {
		c.mu.Unlock()
		return nil, ErrUploadInProgress
	}

	// Cheap local checks run before any network call
	if err := c.policy.Validate(upload); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	prior := c.state
	priorAttached := c.attached
	c.state = StateUploading
	c.mu.Unlock()

	summary, err := c.pipeline.UploadDocument(ctx, c.roomID(), upload)

	c.mu.Lock()
	if err != nil {
		// Revert to the state held before the attempt; a document attached
		// earlier stays attached
		c.state = prior
		c.attached = priorAttached
		c.mu.Unlock()
		return nil, &UploadError{Err: err}
	}

	summary.AttachedAt = time.Now().UTC()
	c.state = StateContextAttached
	c.attached = summary
	c.mu.Unlock()

	c.notifyIfStarted(ctx)

	return summary, nil
}

// NotifyContextChanged tells the backend agent the session's context changed
// and appends a system entry on a successful acknowledgment. Safe to call
// more than once for the same attachment; each acknowledged call appends at
// most one benign system entry.
func (c *Coordinator) NotifyContextChanged(ctx context.Context) error {
	if err := c.pipeline.NotifyContextChanged(ctx, c.roomID()); err != nil {
		return &NotifyError{Err: err}
	}

	if err := c.conversation.AppendSystem(ctx, c.announcement()); err != nil {
		return &NotifyError{Err: err}
	}
	return nil
}

// Reset detaches the local context projection. Server-side state is not
// touched. Resetting during an upload is refused.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUploading {
		return ErrUploadInProgress
	}

	c.state = StateNoContext
	c.attached = nil
	return nil
}

// notifyIfStarted fires the context-change notification when the
// conversation already has timeline entries. Failures are logged and
// swallowed: the conversation must continue even if the backend missed the
// signal.
func (c *Coordinator) notifyIfStarted(ctx context.Context) {
	started, err := c.conversation.Started(ctx)
	if err != nil {
		log.Printf("[CONTEXT]: could not inspect timeline for %s: %v", c.roomID(), err)
		return
	}
	if !started {
		return
	}

	if err := c.NotifyContextChanged(ctx); err != nil {
		log.Printf("[CONTEXT]: %v", err)
	}
}

// announcement builds the system entry text for a context update
func (c *Coordinator) announcement() string {
	c.mu.Lock()
	attached := c.attached
	c.mu.Unlock()

	if attached == nil {
		return "Document context updated"
	}
	return fmt.Sprintf("Document context updated (%d pages)", attached.PageCount)
}

// roomID returns the frozen session identifier, or empty string if identity
// resolution has not completed yet (the pipeline client falls back to the
// default room in that case)
func (c *Coordinator) roomID() string {
	return c.resolver.Resolved()
}
