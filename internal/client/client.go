// Package client talks to the dashboard's conversation API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
)

// Client calls the conversation endpoints with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type submitResponse struct {
	Success      bool   `json:"success"`
	TranscriptID string `json:"transcript_id"`
	Status       string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Submit uploads the file as multipart field "file".
func (c *Client) Submit(ctx context.Context, upload *conversation.Upload) (*conversation.SubmitResult, error) {
	f, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", upload.Name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/api/conversation", mw.FormDataContentType(), &body, &resp); err != nil {
		return nil, err
	}
	return &conversation.SubmitResult{JobID: resp.TranscriptID, Status: resp.Status}, nil
}

// Status fetches a job's status.
func (c *Client) Status(ctx context.Context, jobID string) (*conversation.StatusResult, error) {
	var resp conversation.StatusResult
	if err := c.do(ctx, http.MethodGet, "/api/conversation/"+url.PathEscape(jobID), "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError rebuilds the server's error from its {error, code} body.
func decodeError(status int, data []byte) error {
	var body errorResponse
	_ = json.Unmarshal(data, &body)

	appErr := &apperr.Error{
		Code:       apperr.Code(body.Code),
		Message:    body.Error,
		HTTPStatus: status,
	}
	if appErr.Message == "" {
		appErr.Message = http.StatusText(status)
	}
	if appErr.Code == "" {
		switch {
		case status == http.StatusUnauthorized:
			appErr.Code = apperr.CodeUnauthenticated
		case status >= 400 && status < 500:
			appErr.Code = apperr.CodeBadRequest
		default:
			appErr.Code = apperr.CodeUpstreamUnavailable
		}
	}
	return appErr
}
