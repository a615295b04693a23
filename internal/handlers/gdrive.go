package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/auth"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
	"github.com/codebuildervaibhav/skill-dashboard/internal/transcription"
)

// DefaultDriveDownloadURL is the public export endpoint for shared Drive files.
const DefaultDriveDownloadURL = "https://drive.google.com/uc"

var (
	driveFilePath = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveIDParam  = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	driveBareID   = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// GDriveHandler submits a publicly shared Google Drive recording
type GDriveHandler struct {
	svc         ConversationService
	downloadURL string
	maxBytes    int64
	client      *http.Client
}

// NewGDriveHandler creates a new Google Drive link handler. maxBytes bounds the download.
func NewGDriveHandler(svc ConversationService, downloadURL string, maxBytes int64) *GDriveHandler {
	if downloadURL == "" {
		downloadURL = DefaultDriveDownloadURL
	}
	return &GDriveHandler{
		svc:         svc,
		downloadURL: downloadURL,
		maxBytes:    maxBytes,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Handle downloads the shared file and submits it like an upload
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return writeError(c, apperr.Unauthenticated())
	}

	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.BadRequest("Invalid request body"))
	}
	if req.URL == "" {
		return writeError(c, apperr.BadRequest("URL is required"))
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return writeError(c, apperr.BadRequest("Invalid Google Drive URL"))
	}

	name := filepath.Base(req.Name)
	if req.Name == "" || name == "." || name == "/" {
		name = "gdrive_file"
	}
	if !transcription.ValidateAudioFormat(name) {
		name += ".mp3"
	}

	path, size, err := h.download(c.UserContext(), fileID)
	if err != nil {
		return writeError(c, err)
	}
	defer os.Remove(path)

	res, err := h.svc.Submit(c.UserContext(), userID, &conversation.Upload{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"transcript_id": res.JobID,
		"status":        res.Status,
	})
}

// download saves the Drive file to a temp file and returns its path and size
func (h *GDriveHandler) download(ctx context.Context, fileID string) (string, int64, error) {
	q := url.Values{"export": {"download"}, "id": {fileID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.downloadURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", 0, apperr.Internal("Failed to download file from Google Drive", err)
	}

	log.Debug().Str("file_id", fileID).Msg("Downloading from Google Drive")
	resp, err := h.client.Do(req)
	if err != nil {
		return "", 0, apperr.UpstreamUnavailable("Failed to download file from Google Drive", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, apperr.BadRequest("File not accessible (may be private or doesn't exist)")
	}

	out, err := os.CreateTemp("", "gdrive-*")
	if err != nil {
		return "", 0, apperr.Internal("Failed to save downloaded file", err)
	}
	defer out.Close()

	body := io.Reader(resp.Body)
	if h.maxBytes > 0 {
		body = io.LimitReader(resp.Body, h.maxBytes+1)
	}
	size, err := io.Copy(out, body)
	if err != nil {
		os.Remove(out.Name())
		return "", 0, apperr.UpstreamUnavailable("Failed to download file from Google Drive", err)
	}
	if h.maxBytes > 0 && size > h.maxBytes {
		os.Remove(out.Name())
		return "", 0, apperr.BadRequest("File too large")
	}

	return out.Name(), size, nil
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(link string) string {
	// https://drive.google.com/file/d/{ID}/view
	if m := driveFilePath.FindStringSubmatch(link); len(m) > 1 {
		return m[1]
	}
	// https://drive.google.com/open?id={ID}
	if m := driveIDParam.FindStringSubmatch(link); len(m) > 1 {
		return m[1]
	}
	if m := driveBareID.FindStringSubmatch(link); len(m) > 1 {
		return m[1]
	}
	return ""
}
