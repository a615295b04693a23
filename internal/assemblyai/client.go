// Package assemblyai is a minimal client for the AssemblyAI v2 REST API: audio upload,
// transcript requests and transcript status lookups.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codebuildervaibhav/skill-dashboard/internal/metrics"
	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

const DefaultBaseURL = "https://api.assemblyai.com"

// TranscriptRequest is the body of a transcript creation request.
type TranscriptRequest struct {
	AudioURL         string `json:"audio_url"`
	SpeakerLabels    bool   `json:"speaker_labels"`
	SpeakersExpected int    `json:"speakers_expected,omitempty"`
}

// Transcript is a transcription job as reported by the provider. Text and Utterances
// are only populated once Status is "completed".
type Transcript struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Text       string            `json:"text"`
	Utterances []types.Utterance `json:"utterances"`
	Error      string            `json:"error,omitempty"`
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// Client talks to the provider's upload and transcript endpoints.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a client. A zero timeout leaves requests bounded only by their context.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		metrics: metrics.DefaultMetrics,
	}
}

// Upload sends raw audio bytes and returns the provider-hosted URL for them.
func (c *Client) Upload(ctx context.Context, audio io.Reader) (string, error) {
	var out uploadResponse
	if err := c.do(ctx, "upload", http.MethodPost, "/v2/upload", "application/octet-stream", audio, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload: empty upload_url in response")
	}
	return out.UploadURL, nil
}

// RequestTranscript starts an asynchronous transcription job.
func (c *Client) RequestTranscript(ctx context.Context, req TranscriptRequest) (*Transcript, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out Transcript
	if err := c.do(ctx, "transcript", http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("transcript: empty id in response")
	}
	return &out, nil
}

// GetTranscript fetches the current state of a transcription job.
func (c *Client) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	var out Transcript
	path := "/v2/transcript/" + url.PathEscape(id)
	if err := c.do(ctx, "status", http.MethodGet, path, "application/json", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveProvider(op, time.Since(start).Seconds(), err)
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("content-type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: api call: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Operation: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", op, err)
	}
	return nil
}

// APIError is returned for non-2xx provider responses. Body is meant for server logs only.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error %d: %s", e.Operation, e.StatusCode, e.Body)
}
