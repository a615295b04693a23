package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/auth"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
	"github.com/codebuildervaibhav/skill-dashboard/internal/poller"
)

// WatchHandler streams a job's progress over a websocket. Each connection runs its
// own polling controller against the conversation service.
type WatchHandler struct {
	svc  ConversationService
	opts poller.Options
}

// NewWatchHandler creates a new watch handler
func NewWatchHandler(svc ConversationService, opts poller.Options) *WatchHandler {
	return &WatchHandler{svc: svc, opts: opts}
}

// Upgrade rejects plain HTTP requests to the websocket route
func (h *WatchHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// userSource adapts the service to the controller for one authenticated user.
type userSource struct {
	svc    ConversationService
	userID string
}

func (s userSource) Submit(ctx context.Context, upload *conversation.Upload) (*conversation.SubmitResult, error) {
	return s.svc.Submit(ctx, s.userID, upload)
}

func (s userSource) Status(ctx context.Context, jobID string) (*conversation.StatusResult, error) {
	return s.svc.GetStatus(ctx, s.userID, jobID)
}

// Handle pushes a JSON snapshot on every state change until the job is terminal or
// the client disconnects.
func (h *WatchHandler) Handle(conn *websocket.Conn) {
	defer conn.Close()

	jobID := conn.Params("id")
	userID := auth.UserIDFrom(conn.Locals(auth.IdentityKey))
	logger := log.With().Str("component", "watch").Str("transcript_id", jobID).Logger()

	if userID == "" {
		writeSnapshot(conn, poller.Snapshot{State: poller.StateFailed, Error: "Unauthorized", Code: apperr.CodeUnauthenticated})
		return
	}

	updates := make(chan poller.Snapshot, 16)
	opts := h.opts
	opts.OnChange = func(s poller.Snapshot) {
		select {
		case updates <- s:
		default:
			// Slow reader; the terminal snapshot is sent again below.
		}
	}

	ctrl := poller.New(userSource{svc: h.svc, userID: userID}, opts)
	defer ctrl.Close()

	if err := ctrl.Watch(jobID); err != nil {
		appErr := apperr.As(err)
		writeSnapshot(conn, poller.Snapshot{State: poller.StateFailed, Error: appErr.Message, Code: appErr.Code})
		return
	}

	// Any read error means the client went away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Debug().Msg("Watch started")
	for {
		select {
		case s := <-updates:
			if err := writeSnapshot(conn, s); err != nil {
				logger.Debug().Err(err).Msg("Watch write failed")
				return
			}
		case <-ctrl.Done():
			writeSnapshot(conn, ctrl.Snapshot())
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-gone:
			logger.Debug().Msg("Watch client disconnected")
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, s poller.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
