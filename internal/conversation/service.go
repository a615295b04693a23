// Package conversation implements the conversation skill: submitting recordings for
// diarized transcription and reporting job status.
package conversation

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/assemblyai"
	"github.com/codebuildervaibhav/skill-dashboard/internal/events"
	"github.com/codebuildervaibhav/skill-dashboard/internal/logging"
	"github.com/codebuildervaibhav/skill-dashboard/internal/metrics"
	"github.com/codebuildervaibhav/skill-dashboard/internal/queue"
	"github.com/codebuildervaibhav/skill-dashboard/internal/storage"
	"github.com/codebuildervaibhav/skill-dashboard/internal/transcription"
	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// Provider is the speech-to-text API.
type Provider interface {
	Upload(ctx context.Context, audio io.Reader) (string, error)
	RequestTranscript(ctx context.Context, req assemblyai.TranscriptRequest) (*assemblyai.Transcript, error)
	GetTranscript(ctx context.Context, id string) (*assemblyai.Transcript, error)
}

// Enqueuer accepts best-effort background jobs.
type Enqueuer interface {
	EnqueueJob(job *queue.Job) bool
}

// Upload is a received audio file. Open may be called more than once.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// SubmitResult is returned once the provider has accepted the job.
type SubmitResult struct {
	JobID  string `json:"transcript_id"`
	Status string `json:"status"`
}

// StatusResult describes a job. Transcript and Diarization are only meaningful when
// Status is completed; Error is only set when Status is error.
type StatusResult struct {
	Status      string `json:"status"`
	Transcript  string `json:"transcript,omitempty"`
	Diarization string `json:"diarization,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Completed reports whether the job finished successfully.
func (r *StatusResult) Completed() bool {
	return r.Status == types.StatusCompleted
}

// Options tune the service.
type Options struct {
	SpeakersExpected int
	CreateOnSubmit   bool
	MaxFileSize      int64
}

// Service wires blob storage, the provider and background history writes.
type Service struct {
	provider Provider
	blobs    storage.BlobStore
	jobs     Enqueuer
	opts     Options
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a conversation service. jobs may be nil, in which case
// history and events are skipped.
func NewService(provider Provider, blobs storage.BlobStore, jobs Enqueuer, opts Options) *Service {
	return &Service{
		provider: provider,
		blobs:    blobs,
		jobs:     jobs,
		opts:     opts,
		metrics:  metrics.DefaultMetrics,
		logger:   logging.WithComponent("conversation"),
		now:      time.Now,
	}
}

// Submit stores the recording, hands it to the provider and requests a diarized
// transcript. No local job state is kept; the provider owns it from here.
func (s *Service) Submit(ctx context.Context, userID string, upload *Upload) (result *SubmitResult, err error) {
	defer func() {
		s.metrics.SubmissionsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if userID == "" {
		return nil, apperr.Unauthenticated()
	}
	if upload == nil || upload.Open == nil || upload.Size == 0 {
		return nil, apperr.BadRequest("No file provided")
	}
	if !transcription.ValidateAudioFormat(upload.Name) {
		return nil, apperr.BadRequest("Unsupported audio format")
	}
	if s.opts.MaxFileSize > 0 && upload.Size > s.opts.MaxFileSize {
		return nil, apperr.BadRequest("File too large")
	}

	log := s.logger.With().Str("user", userID).Str("file", upload.Name).Int64("size", upload.Size).Logger()
	log.Info().Msg("Received audio file")

	key := storage.BlobKey(userID, s.now(), upload.Name)
	location, err := s.putBlob(ctx, key, upload)
	s.metrics.BlobWrites.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Blob write failed")
		return nil, apperr.UpstreamUnavailable("Failed to process audio file", err)
	}
	log.Info().Str("location", location).Msg("Audio stored")

	uploadURL, err := s.uploadToProvider(ctx, upload)
	if err != nil {
		log.Error().Err(err).Msg("Provider upload failed")
		return nil, apperr.UpstreamUnavailable("Failed to upload to speech-to-text service", err)
	}

	transcript, err := s.provider.RequestTranscript(ctx, assemblyai.TranscriptRequest{
		AudioURL:         uploadURL,
		SpeakerLabels:    true,
		SpeakersExpected: s.opts.SpeakersExpected,
	})
	if err != nil {
		log.Error().Err(err).Msg("Transcription request failed")
		return nil, apperr.UpstreamUnavailable("Failed to request transcription", err)
	}
	log.Info().Str("transcript_id", transcript.ID).Str("status", transcript.Status).Msg("Transcription requested")

	if s.opts.CreateOnSubmit {
		s.enqueue(queue.NewHistoryCreateJob(userID, types.SkillConversation, upload.Name,
			historyOutput(transcript.ID, transcript.Status, "")))
	}

	return &SubmitResult{JobID: transcript.ID, Status: transcript.Status}, nil
}

func (s *Service) putBlob(ctx context.Context, key string, upload *Upload) (string, error) {
	r, err := upload.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return s.blobs.Put(ctx, key, r)
}

func (s *Service) uploadToProvider(ctx context.Context, upload *Upload) (string, error) {
	r, err := upload.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return s.provider.Upload(ctx, r)
}

// GetStatus reports a job's status. On completion it formats the diarization and
// queues the history update and completion event; neither affects the response.
func (s *Service) GetStatus(ctx context.Context, userID, jobID string) (*StatusResult, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated()
	}
	if jobID == "" {
		return nil, apperr.BadRequest("Missing transcript id")
	}

	transcript, err := s.provider.GetTranscript(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("transcript_id", jobID).Msg("Status check failed")
		return nil, apperr.UpstreamUnavailable("Failed to get transcription status", err)
	}
	s.metrics.StatusChecksTotal.WithLabelValues(transcript.Status).Inc()
	s.logger.Debug().Str("transcript_id", jobID).Str("status", transcript.Status).Msg("Transcript status")

	switch transcript.Status {
	case types.StatusCompleted:
		diarization := transcription.FormatDiarization(transcript.Utterances)

		s.enqueue(queue.NewHistoryUpdateJob(userID, types.SkillConversation,
			historyOutput(transcript.ID, transcript.Status, transcript.Text)))
		s.enqueue(queue.NewPublishJob(events.TranscriptCompleted{
			TranscriptID: transcript.ID,
			UserID:       userID,
			Status:       transcript.Status,
			Text:         transcript.Text,
			Diarization:  diarization,
			Speakers:     countSpeakers(transcript.Utterances),
			CompletedAt:  s.now().UTC(),
		}))

		return &StatusResult{
			Status:      transcript.Status,
			Transcript:  transcript.Text,
			Diarization: diarization,
		}, nil

	case types.StatusError:
		return &StatusResult{Status: transcript.Status, Error: transcript.Error}, nil
	}

	return &StatusResult{Status: transcript.Status}, nil
}

func (s *Service) enqueue(job *queue.Job) {
	if s.jobs == nil {
		return
	}
	s.jobs.EnqueueJob(job)
}

func historyOutput(id, status, text string) string {
	out, err := json.Marshal(types.HistoryOutput{TranscriptID: id, Status: status, Text: text})
	if err != nil {
		return ""
	}
	return string(out)
}

func countSpeakers(utterances []types.Utterance) int {
	seen := make(map[string]struct{})
	for _, u := range utterances {
		seen[u.Speaker] = struct{}{}
	}
	return len(seen)
}
