package sdk

import (
	"encoding/json"
	"time"
)

// StatusType labels an API response outcome
type StatusType string

const (
	StatusSuccess StatusType = "success"
	StatusFail    StatusType = "fail"
	StatusError   StatusType = "error"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  StatusType `json:"status"`          // Status message
	Code    int        `json:"code"`            // Status code
	Message string     `json:"message"`         // Human-readable message
	Data    T          `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any        `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a JSON string
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	status := StatusError
	if code < 500 {
		status = StatusFail
	}

	return ApiResponse[any]{
		Status:  status,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Requests */

// CreateSessionRequest represents the request body for creating a new session.
// RoomID is optional; a fresh room identifier is generated when absent.
type CreateSessionRequest struct {
	RoomID string `json:"room_id"`
}

// PostSegmentRequest represents one transcript segment observation
type PostSegmentRequest struct {
	ID            string `json:"id" binding:"required"`
	Speaker       string `json:"speaker" binding:"required"`
	Text          string `json:"text"`
	FirstReceived int64  `json:"first_received"`
}

/** Responses */

// TimelineEntry is one displayable unit in the merged conversation
type TimelineEntry struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Text        string `json:"text"`
	OrderingKey int64  `json:"ordering_key"`
}

// Session represents a conversation session with its merged timeline
type Session struct {
	RoomID    string          `json:"room_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Timeline  []TimelineEntry `json:"timeline"`
}

// ContextStatus reports the document-context state of a session
type ContextStatus struct {
	State      string     `json:"state"`
	Filename   string     `json:"filename,omitempty"`
	PageCount  int        `json:"page_count,omitempty"`
	AttachedAt *time.Time `json:"attached_at,omitempty"`
}

// DocumentMetadata describes a processed document
type DocumentMetadata struct {
	Filename  string `json:"filename"`
	NumPages  int    `json:"num_pages"`
	FileSize  int    `json:"file_size"`
	Truncated bool   `json:"truncated,omitempty"`
}

// UploadResult is the backend pipeline's reply to a document upload
type UploadResult struct {
	Success  bool             `json:"success"`
	Metadata DocumentMetadata `json:"metadata,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// NotifyResult is the backend pipeline's reply to a context-change signal
type NotifyResult struct {
	Success bool   `json:"success"`
	RoomID  string `json:"room_id"`
}
