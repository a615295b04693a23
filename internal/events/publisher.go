// Package events publishes transcript completion events to a message broker.
package events

import (
	"context"
	"time"
)

// TranscriptCompleted is emitted once per completed status check.
type TranscriptCompleted struct {
	TranscriptID string    `json:"transcript_id"`
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"`
	Text         string    `json:"text"`
	Diarization  string    `json:"diarization"`
	Speakers     int       `json:"speakers"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Publisher delivers completion events.
type Publisher interface {
	PublishCompleted(ctx context.Context, event TranscriptCompleted) error
	Close() error
}
