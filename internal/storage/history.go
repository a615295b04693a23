package storage

import (
	"context"

	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// HistoryStore keeps per-user skill history records.
type HistoryStore interface {
	// CreateRecord inserts a new record for the user and skill.
	CreateRecord(ctx context.Context, userID string, skill types.SkillType, input, output string) error
	// UpdateLatest replaces the output of the user's most recent record for skill.
	// It reports false when the user has no such record.
	UpdateLatest(ctx context.Context, userID string, skill types.SkillType, output string) (bool, error)
	// ListRecords returns the user's records, newest first.
	ListRecords(ctx context.Context, userID string, limit int) ([]types.HistoryRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
