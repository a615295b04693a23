package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/auth"
	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// HistoryLister reads a user's history records.
type HistoryLister interface {
	ListRecords(ctx context.Context, userID string, limit int) ([]types.HistoryRecord, error)
}

// HistoryHandler lists the caller's past skill runs
type HistoryHandler struct {
	store    HistoryLister
	maxLimit int
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store HistoryLister, maxLimit int) *HistoryHandler {
	if maxLimit < 1 {
		maxLimit = 50
	}
	return &HistoryHandler{store: store, maxLimit: maxLimit}
}

// List returns the most recent records, newest first. ?limit= narrows the page.
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return writeError(c, apperr.Unauthenticated())
	}

	limit := c.QueryInt("limit", h.maxLimit)
	if limit < 1 || limit > h.maxLimit {
		limit = h.maxLimit
	}

	records, err := h.store.ListRecords(c.UserContext(), userID, limit)
	if err != nil {
		return writeError(c, apperr.Internal("Failed to load history", err))
	}

	return c.JSON(fiber.Map{"history": records})
}
