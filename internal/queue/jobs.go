package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/skill-dashboard/internal/events"
	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// JobKind identifies what a background job does
type JobKind string

// Job kinds
const (
	KindHistoryCreate    JobKind = "history_create"
	KindHistoryUpdate    JobKind = "history_update"
	KindPublishCompleted JobKind = "publish_completed"
)

// Job represents a best-effort side effect of a request
type Job struct {
	ID        string
	Kind      JobKind
	UserID    string
	Skill     types.SkillType
	Input     string
	Output    string
	Event     *events.TranscriptCompleted
	CreatedAt time.Time
}

// NewHistoryCreateJob inserts a new history row
func NewHistoryCreateJob(userID string, skill types.SkillType, input, output string) *Job {
	return newJob(KindHistoryCreate, &Job{UserID: userID, Skill: skill, Input: input, Output: output})
}

// NewHistoryUpdateJob overwrites the output of the user's latest row for skill
func NewHistoryUpdateJob(userID string, skill types.SkillType, output string) *Job {
	return newJob(KindHistoryUpdate, &Job{UserID: userID, Skill: skill, Output: output})
}

// NewPublishJob publishes a completion event
func NewPublishJob(event events.TranscriptCompleted) *Job {
	return newJob(KindPublishCompleted, &Job{UserID: event.UserID, Event: &event})
}

func newJob(kind JobKind, job *Job) *Job {
	job.ID = uuid.NewString()
	job.Kind = kind
	job.CreatedAt = time.Now()
	return job
}
