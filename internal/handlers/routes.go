package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codebuildervaibhav/skill-dashboard/internal/auth"
	"github.com/codebuildervaibhav/skill-dashboard/internal/poller"
	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// HistoryStore is what the routes need from the history database.
type HistoryStore interface {
	ListRecords(ctx context.Context, userID string, limit int) ([]types.HistoryRecord, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Verifier     *auth.Verifier
	Conversation ConversationService
	History      HistoryStore
	HistoryLimit int
	Logs         LogSource
	Integrations Integrations
	Polling      poller.Options

	// MaxUploadBytes bounds Drive downloads; DriveDownloadURL overrides the export endpoint.
	MaxUploadBytes   int64
	DriveDownloadURL string
}

// Register mounts every route on app.
func Register(app *fiber.App, d Deps) {
	app.Get("/health", Health(d.History))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	requireAuth := auth.Middleware(d.Verifier)

	conversation := NewConversationHandler(d.Conversation)
	history := NewHistoryHandler(d.History, d.HistoryLimit)
	watch := NewWatchHandler(d.Conversation, d.Polling)
	gdrive := NewGDriveHandler(d.Conversation, d.DriveDownloadURL, d.MaxUploadBytes)

	api := app.Group("/api", requireAuth)
	api.Post("/conversation", conversation.Submit)
	api.Post("/conversation/gdrive", gdrive.Handle)
	api.Get("/conversation/:id", conversation.Status)
	api.Get("/history", history.List)
	api.Get("/skills", Skills)
	api.Get("/test-env", TestEnv(d.Integrations))

	app.Get("/ws/conversation/:id", requireAuth, watch.Upgrade, websocket.New(watch.Handle))
	app.Get("/logs", requireAuth, Logs(d.Logs))
}
