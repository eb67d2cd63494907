package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Client wraps calls to the voicebridge backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// On error, read body and return error
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend '%s %s' failed: %d: %s", method, path, resp.StatusCode, string(b))
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

// GetToken fetches a signed room access token for the given participant name
func (c *Client) GetToken(ctx context.Context, name, room string) (string, error) {
	q := url.Values{}
	q.Set("name", name)
	if room != "" {
		q.Set("room", room)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/getToken?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed: %d: %s", resp.StatusCode, string(b))
	}

	return string(b), nil
}

// Create a new session, optionally with a fixed room identifier
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	path := "/api/sessions"

	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}

	if out.Data.RoomID == "" {
		return nil, fmt.Errorf("no room id returned")
	}

	return &out.Data, nil
}

// Get a session and its merged timeline by room identifier
func (c *Client) GetSession(ctx context.Context, roomID string) (*Session, error) {
	path := fmt.Sprintf("/api/sessions/%s", roomID)

	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	// Check for success
	switch out.Status {
	case StatusFail:
		return nil, fmt.Errorf("failed to get session: %s", out.Message)
	case StatusError:
		return nil, fmt.Errorf("error getting session (%s): %v", out.Message, out.Error)
	}

	// On success return data
	return &out.Data, nil
}

// Record a transcript segment, returning the updated merged timeline
func (c *Client) PostSegment(ctx context.Context, roomID string, req *PostSegmentRequest) ([]TimelineEntry, error) {
	path := fmt.Sprintf("/api/sessions/%s/segments", roomID)

	var out ApiResponse[[]TimelineEntry]
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}

	return out.Data, nil
}

// Delete an existing session by room identifier
func (c *Client) DeleteSession(ctx context.Context, roomID string) error {
	path := fmt.Sprintf("/api/sessions/%s", roomID)

	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// GetContextStatus reports the document-context state for a session
func (c *Client) GetContextStatus(ctx context.Context, roomID string) (*ContextStatus, error) {
	path := fmt.Sprintf("/api/sessions/%s/context", roomID)

	var out ApiResponse[ContextStatus]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// SubmitContext uploads a PDF as document context for a session
func (c *Client) SubmitContext(ctx context.Context, roomID, filename string, data []byte) (*ContextStatus, error) {
	path := fmt.Sprintf("/api/sessions/%s/context", roomID)

	body, contentType, err := pdfForm(filename, data, "")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ApiResponse[ContextStatus]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode context response: %w", err)
	}

	if out.Status != StatusSuccess {
		return nil, fmt.Errorf("failed to attach context: %s", out.Message)
	}

	return &out.Data, nil
}

// UploadPDF sends a PDF straight to the pipeline's document endpoint
func (c *Client) UploadPDF(ctx context.Context, roomID, filename string, data []byte) (*UploadResult, error) {
	body, contentType, err := pdfForm(filename, data, roomID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-pdf", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return &out, nil
}

// NotifyPDFUpdate signals the pipeline that a room's document context changed
func (c *Client) NotifyPDFUpdate(ctx context.Context, roomID string) (*NotifyResult, error) {
	path := fmt.Sprintf("/notify-pdf-update/%s", roomID)

	var out NotifyResult
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode notify response: %w", err)
	}

	return &out, nil
}

// pdfForm builds a multipart body holding a PDF upload
func pdfForm(filename string, data []byte, roomID string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("pdf_file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if roomID != "" {
		if err := writer.WriteField("room_id", roomID); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
