package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/assemblyai"
	"github.com/codebuildervaibhav/skill-dashboard/internal/queue"
	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

type fakeProvider struct {
	mu         sync.Mutex
	uploaded   []string
	requests   []assemblyai.TranscriptRequest
	statusCall int

	uploadErr  error
	requestErr error
	statusErr  error
	transcript *assemblyai.Transcript
}

func (f *fakeProvider) Upload(_ context.Context, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _ := io.ReadAll(r)
	f.uploaded = append(f.uploaded, string(data))
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://cdn.example/upload/1", nil
}

func (f *fakeProvider) RequestTranscript(_ context.Context, req assemblyai.TranscriptRequest) (*assemblyai.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &assemblyai.Transcript{ID: "tr_1", Status: types.StatusQueued}, nil
}

func (f *fakeProvider) GetTranscript(_ context.Context, id string) (*assemblyai.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCall++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.transcript, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploaded) + len(f.requests) + f.statusCall
}

type fakeBlobs struct {
	keys []string
	data []string
	err  error
}

func (f *fakeBlobs) Put(_ context.Context, key string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	f.keys = append(f.keys, key)
	f.data = append(f.data, string(b))
	return "mem://" + key, nil
}

type fakeQueue struct {
	jobs []*queue.Job
}

func (f *fakeQueue) EnqueueJob(job *queue.Job) bool {
	f.jobs = append(f.jobs, job)
	return true
}

func (f *fakeQueue) kinds() []queue.JobKind {
	var out []queue.JobKind
	for _, j := range f.jobs {
		out = append(out, j.Kind)
	}
	return out
}

func newUpload(name, content string) *Upload {
	return &Upload{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func newTestService(p *fakeProvider, b *fakeBlobs, q *fakeQueue, opts Options) *Service {
	return NewService(p, b, q, opts)
}

func TestSubmit_Success(t *testing.T) {
	p := &fakeProvider{}
	b := &fakeBlobs{}
	q := &fakeQueue{}
	svc := newTestService(p, b, q, Options{SpeakersExpected: 2, CreateOnSubmit: true})

	res, err := svc.Submit(context.Background(), "user_1", newUpload("call.mp3", "audio-bytes"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.JobID != "tr_1" || res.Status != types.StatusQueued {
		t.Errorf("unexpected result %+v", res)
	}

	if len(b.keys) != 1 || !strings.HasPrefix(b.keys[0], "audio/user_1-") || !strings.HasSuffix(b.keys[0], "-call.mp3") {
		t.Errorf("unexpected blob keys %v", b.keys)
	}
	if b.data[0] != "audio-bytes" {
		t.Errorf("expected blob content, got %q", b.data[0])
	}
	if len(p.uploaded) != 1 || p.uploaded[0] != "audio-bytes" {
		t.Errorf("expected provider to receive the full file, got %v", p.uploaded)
	}

	req := p.requests[0]
	if req.AudioURL != "https://cdn.example/upload/1" || !req.SpeakerLabels || req.SpeakersExpected != 2 {
		t.Errorf("unexpected transcript request %+v", req)
	}

	if len(q.jobs) != 1 || q.jobs[0].Kind != queue.KindHistoryCreate {
		t.Fatalf("expected one history create job, got %v", q.kinds())
	}
	var out types.HistoryOutput
	if err := json.Unmarshal([]byte(q.jobs[0].Output), &out); err != nil {
		t.Fatalf("history output: %v", err)
	}
	if out.TranscriptID != "tr_1" || out.Status != types.StatusQueued {
		t.Errorf("unexpected history output %+v", out)
	}
}

func TestSubmit_InputErrors(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		upload *Upload
		code   apperr.Code
	}{
		{"no user", "", newUpload("a.mp3", "x"), apperr.CodeUnauthenticated},
		{"no file", "user_1", nil, apperr.CodeBadRequest},
		{"empty file", "user_1", newUpload("a.mp3", ""), apperr.CodeBadRequest},
		{"bad format", "user_1", newUpload("notes.txt", "x"), apperr.CodeBadRequest},
		{"too large", "user_1", newUpload("a.mp3", "0123456789"), apperr.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{}
			b := &fakeBlobs{}
			svc := newTestService(p, b, &fakeQueue{}, Options{MaxFileSize: 5})

			_, err := svc.Submit(context.Background(), tt.userID, tt.upload)
			if !apperr.Is(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if p.calls() != 0 {
				t.Errorf("expected no provider calls, got %d", p.calls())
			}
			if len(b.keys) != 0 {
				t.Errorf("expected no blob writes, got %v", b.keys)
			}
		})
	}
}

func TestSubmit_FailuresAbort(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		provider *fakeProvider
		blobs    *fakeBlobs
		message  string
		requests int
	}{
		{"blob write", &fakeProvider{}, &fakeBlobs{err: boom}, "Failed to process audio file", 0},
		{"provider upload", &fakeProvider{uploadErr: boom}, &fakeBlobs{}, "Failed to upload to speech-to-text service", 0},
		{"transcript request", &fakeProvider{requestErr: boom}, &fakeBlobs{}, "Failed to request transcription", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{}
			svc := newTestService(tt.provider, tt.blobs, q, Options{CreateOnSubmit: true})

			_, err := svc.Submit(context.Background(), "user_1", newUpload("a.wav", "x"))
			if !apperr.Is(err, apperr.CodeUpstreamUnavailable) {
				t.Fatalf("expected upstream error, got %v", err)
			}
			if apperr.As(err).Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, apperr.As(err).Message)
			}
			if !errors.Is(err, boom) {
				t.Error("expected cause to be kept")
			}
			if len(tt.provider.requests) != tt.requests {
				t.Errorf("expected %d transcript requests, got %d", tt.requests, len(tt.provider.requests))
			}
			if len(q.jobs) != 0 {
				t.Errorf("expected no history job on failure, got %v", q.kinds())
			}
		})
	}
}

func TestSubmit_NoHistoryWhenDisabled(t *testing.T) {
	q := &fakeQueue{}
	svc := newTestService(&fakeProvider{}, &fakeBlobs{}, q, Options{})

	if _, err := svc.Submit(context.Background(), "user_1", newUpload("a.ogg", "x")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(q.jobs) != 0 {
		t.Errorf("expected no jobs, got %v", q.kinds())
	}
}

func TestGetStatus_NotCompleted(t *testing.T) {
	for _, status := range []string{types.StatusQueued, types.StatusProcessing} {
		t.Run(status, func(t *testing.T) {
			q := &fakeQueue{}
			p := &fakeProvider{transcript: &assemblyai.Transcript{ID: "tr_1", Status: status, Text: "partial"}}
			svc := newTestService(p, &fakeBlobs{}, q, Options{})

			res, err := svc.GetStatus(context.Background(), "user_1", "tr_1")
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if res.Status != status || res.Transcript != "" || res.Diarization != "" {
				t.Errorf("expected status only, got %+v", res)
			}

			body, _ := json.Marshal(res)
			if strings.Contains(string(body), "transcript") || strings.Contains(string(body), "diarization") {
				t.Errorf("expected no transcript fields in %s", body)
			}
			if len(q.jobs) != 0 {
				t.Errorf("expected no side effects, got %v", q.kinds())
			}
		})
	}
}

func TestGetStatus_Completed(t *testing.T) {
	q := &fakeQueue{}
	p := &fakeProvider{transcript: &assemblyai.Transcript{
		ID:     "tr_1",
		Status: types.StatusCompleted,
		Text:   "Hi Hello Bye",
		Utterances: []types.Utterance{
			{Speaker: "A", Text: "Hi"},
			{Speaker: "B", Text: "Hello"},
			{Speaker: "A", Text: "Bye"},
		},
	}}
	svc := newTestService(p, &fakeBlobs{}, q, Options{})

	res, err := svc.GetStatus(context.Background(), "user_1", "tr_1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !res.Completed() {
		t.Errorf("expected completed, got %s", res.Status)
	}
	if res.Transcript != "Hi Hello Bye" {
		t.Errorf("unexpected transcript %q", res.Transcript)
	}
	if want := "Speaker 1: Hi\n\nSpeaker 2: Hello\n\nSpeaker 1: Bye"; res.Diarization != want {
		t.Errorf("expected %q, got %q", want, res.Diarization)
	}

	kinds := q.kinds()
	if len(kinds) != 2 || kinds[0] != queue.KindHistoryUpdate || kinds[1] != queue.KindPublishCompleted {
		t.Fatalf("expected history update then publish, got %v", kinds)
	}
	update := q.jobs[0]
	if update.UserID != "user_1" || update.Skill != types.SkillConversation {
		t.Errorf("unexpected update target %+v", update)
	}
	var out types.HistoryOutput
	if err := json.Unmarshal([]byte(update.Output), &out); err != nil {
		t.Fatalf("history output: %v", err)
	}
	if out != (types.HistoryOutput{TranscriptID: "tr_1", Status: "completed", Text: "Hi Hello Bye"}) {
		t.Errorf("unexpected history output %+v", out)
	}
	if ev := q.jobs[1].Event; ev == nil || ev.Speakers != 2 || ev.TranscriptID != "tr_1" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestGetStatus_CompletedWithoutUtterances(t *testing.T) {
	p := &fakeProvider{transcript: &assemblyai.Transcript{ID: "tr_1", Status: types.StatusCompleted, Text: "hello"}}
	svc := NewService(p, &fakeBlobs{}, nil, Options{})

	res, err := svc.GetStatus(context.Background(), "user_1", "tr_1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if res.Diarization != "" || res.Transcript != "hello" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestGetStatus_ProviderError(t *testing.T) {
	p := &fakeProvider{transcript: &assemblyai.Transcript{ID: "tr_1", Status: types.StatusError, Error: "audio too short"}}
	svc := newTestService(p, &fakeBlobs{}, &fakeQueue{}, Options{})

	res, err := svc.GetStatus(context.Background(), "user_1", "tr_1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if res.Status != types.StatusError || res.Error != "audio too short" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestGetStatus_Errors(t *testing.T) {
	p := &fakeProvider{statusErr: errors.New("503")}
	svc := newTestService(p, &fakeBlobs{}, &fakeQueue{}, Options{})
	ctx := context.Background()

	if _, err := svc.GetStatus(ctx, "", "tr_1"); !apperr.Is(err, apperr.CodeUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
	if _, err := svc.GetStatus(ctx, "user_1", ""); !apperr.Is(err, apperr.CodeBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
	if p.statusCall != 0 {
		t.Errorf("expected no provider call, got %d", p.statusCall)
	}

	_, err := svc.GetStatus(ctx, "user_1", "tr_1")
	if !apperr.Is(err, apperr.CodeUpstreamUnavailable) {
		t.Errorf("expected upstream error, got %v", err)
	}
	if apperr.As(err).Message != "Failed to get transcription status" {
		t.Errorf("unexpected message %q", apperr.As(err).Message)
	}
}
