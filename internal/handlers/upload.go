package handlers

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/auth"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
)

// ConversationService is the subset of the conversation service the handlers use.
type ConversationService interface {
	Submit(ctx context.Context, userID string, upload *conversation.Upload) (*conversation.SubmitResult, error)
	GetStatus(ctx context.Context, userID, jobID string) (*conversation.StatusResult, error)
}

// ConversationHandler serves the conversation skill endpoints
type ConversationHandler struct {
	svc ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(svc ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// Submit accepts a multipart upload in field "file" and starts a transcription job
func (h *ConversationHandler) Submit(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return writeError(c, apperr.Unauthenticated())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return writeError(c, apperr.BadRequest("No file provided"))
	}

	upload := &conversation.Upload{
		Name: file.Filename,
		Size: file.Size,
		Open: func() (io.ReadCloser, error) {
			return file.Open()
		},
	}

	res, err := h.svc.Submit(c.UserContext(), userID, upload)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"transcript_id": res.JobID,
		"status":        res.Status,
	})
}

// Status reports a job's status, with the transcript and diarization once completed
func (h *ConversationHandler) Status(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return writeError(c, apperr.Unauthenticated())
	}

	res, err := h.svc.GetStatus(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	if res.Completed() {
		return c.JSON(fiber.Map{
			"status":      res.Status,
			"transcript":  res.Transcript,
			"diarization": res.Diarization,
		})
	}

	body := fiber.Map{"status": res.Status}
	if res.Error != "" {
		body["error"] = res.Error
	}
	return c.JSON(body)
}
