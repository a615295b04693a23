package types

import "time"

// Transcript job status values, as reported by the speech-to-text provider
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// SkillType identifies one of the dashboard skills
type SkillType string

// Skill type constants
const (
	SkillConversation SkillType = "conversation"
	SkillImage        SkillType = "image"
	SkillDocument     SkillType = "document"
)

// Skill describes an entry in the skills catalog
type Skill struct {
	ID                SkillType `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	AcceptedFileTypes string    `json:"accepted_file_types"`
	Available         bool      `json:"available"`
}

// Skills is the catalog shown on the dashboard. Only conversation analysis is backed
// by a working pipeline.
var Skills = []Skill{
	{
		ID:                SkillConversation,
		Name:              "Conversation Analysis",
		Description:       "Upload audio files to convert speech to text and identify speakers.",
		AcceptedFileTypes: ".mp3,.wav,.m4a,.ogg",
		Available:         true,
	},
	{
		ID:                SkillImage,
		Name:              "Image Analysis",
		Description:       "Upload images to generate detailed descriptions.",
		AcceptedFileTypes: ".jpg,.jpeg,.png,.webp",
	},
	{
		ID:                SkillDocument,
		Name:              "Document Summarization",
		Description:       "Upload documents or provide URLs to get concise summaries.",
		AcceptedFileTypes: ".pdf,.doc,.docx,.txt",
	},
}

// Utterance is one speaker-attributed segment of a transcript.
// Start and End are millisecond offsets into the source audio.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

// HistoryOutput is the JSON blob stored in a history record once a job completes
type HistoryOutput struct {
	TranscriptID string `json:"transcript_id"`
	Status       string `json:"status"`
	Text         string `json:"text,omitempty"`
}

// HistoryRecord represents one row of a user's skill history
type HistoryRecord struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	SkillType     SkillType `json:"skill_type"`
	InputContent  string    `json:"input_content"`
	OutputContent string    `json:"output_content"`
	CreatedAt     time.Time `json:"created_at"`
}
