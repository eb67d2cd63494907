package doccontext

import (
	"errors"
	"fmt"
)

// ErrUploadInProgress is returned when a new document is submitted while an
// earlier upload has not finished
var ErrUploadInProgress = errors.New("a document upload is already in progress")

// ValidationError reports a document rejected by local checks before any
// network call was made. Session state is unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// UploadError reports a failed upload attempt. The coordinator has already
// reverted to the state held before the attempt; retry is caller-initiated.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("document upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NotifyError reports a failed context-change notification. The document
// remains attached; the notification is best-effort.
type NotifyError struct {
	Err error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("context change notification failed: %v", e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}
