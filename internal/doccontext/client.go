package doccontext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultRoomID addresses uploads made before identity resolution completes
const DefaultRoomID = "default"

// PipelineClient talks to the backend upload/notify services over HTTP.
// It implements Pipeline.
type PipelineClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPipelineClient creates a client for the backend pipeline at baseURL
func NewPipelineClient(baseURL string) *PipelineClient {
	return &PipelineClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// uploadResponse is the backend's JSON reply to a document upload
type uploadResponse struct {
	Success  bool `json:"success"`
	Metadata struct {
		NumPages int    `json:"num_pages"`
		Filename string `json:"filename"`
	} `json:"metadata"`
	Error string `json:"error,omitempty"`
}

// UploadDocument submits a document as multipart form data and returns the
// parsed metadata from the backend
func (c *PipelineClient) UploadDocument(ctx context.Context, roomID string, upload Upload) (*ContextSummary, error) {
	if roomID == "" {
		roomID = DefaultRoomID
	}

	// Build the multipart body
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("pdf_file", upload.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, err
	}
	if err := writer.WriteField("room_id", roomID); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-pdf", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload failed: %d: %s", resp.StatusCode, string(b))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	if !out.Success {
		if out.Error != "" {
			return nil, fmt.Errorf("%s", out.Error)
		}
		return nil, fmt.Errorf("upload failed")
	}

	return &ContextSummary{
		Filename:  upload.Filename,
		PageCount: out.Metadata.NumPages,
	}, nil
}

// NotifyContextChanged posts the context-change signal for a room
func (c *PipelineClient) NotifyContextChanged(ctx context.Context, roomID string) error {
	if roomID == "" {
		roomID = DefaultRoomID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notify-pdf-update/"+roomID, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify failed: %d: %s", resp.StatusCode, string(b))
	}

	return nil
}
