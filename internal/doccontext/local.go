package doccontext

import (
	"context"

	"github.com/levra/voicebridge/internal/pdf"
)

// Notifier receives the context-change signal for a room
type Notifier interface {
	NotifyContextChanged(ctx context.Context, roomID string) error
}

// LocalPipeline implements Pipeline against the in-process document
// processor and context store, used when this service hosts the upload
// pipeline itself rather than fronting a remote one.
type LocalPipeline struct {
	processor *pdf.Processor
	contexts  pdf.ContextStore
	notifier  Notifier
}

// NewLocalPipeline creates a pipeline over the given processor and store.
// notifier may be nil, in which case notifications are acknowledged locally.
func NewLocalPipeline(processor *pdf.Processor, contexts pdf.ContextStore, notifier Notifier) *LocalPipeline {
	return &LocalPipeline{
		processor: processor,
		contexts:  contexts,
		notifier:  notifier,
	}
}

// UploadDocument extracts the document and persists its context for the room
func (p *LocalPipeline) UploadDocument(ctx context.Context, roomID string, upload Upload) (*ContextSummary, error) {
	if roomID == "" {
		roomID = DefaultRoomID
	}

	doc, err := p.processor.Extract(upload.Filename, upload.Data)
	if err != nil {
		return nil, err
	}

	if _, err := p.contexts.SaveContext(ctx, roomID, doc); err != nil {
		return nil, err
	}

	return &ContextSummary{
		Filename:  doc.Filename,
		PageCount: doc.NumPages,
	}, nil
}

// NotifyContextChanged forwards the signal to the configured notifier
func (p *LocalPipeline) NotifyContextChanged(ctx context.Context, roomID string) error {
	if p.notifier == nil {
		return nil
	}
	if roomID == "" {
		roomID = DefaultRoomID
	}
	return p.notifier.NotifyContextChanged(ctx, roomID)
}
