package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
	"github.com/codebuildervaibhav/skill-dashboard/internal/poller"
)

var _ poller.Source = (*Client)(nil)

func upload(name, content string) *conversation.Upload {
	return &conversation.Upload{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/conversation" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "call.mp3" || string(data) != "audio" {
			t.Errorf("unexpected file %s %q", hdr.Filename, data)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "transcript_id": "tr_1", "status": "queued"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok", 5*time.Second)
	res, err := c.Submit(context.Background(), upload("call.mp3", "audio"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.JobID != "tr_1" || res.Status != "queued" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversation/tr_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"completed","transcript":"Hi","diarization":"Speaker 1: Hi"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "tok", 0).Status(context.Background(), "tr_1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !res.Completed() || res.Diarization != "Speaker 1: Hi" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    apperr.Code
		message string
	}{
		{"server body", 500, `{"error":"Failed to check transcription status","code":"UPSTREAM_UNAVAILABLE"}`, apperr.CodeUpstreamUnavailable, "Failed to check transcription status"},
		{"unauthorized without code", 401, `{"error":"Unauthorized"}`, apperr.CodeUnauthenticated, "Unauthorized"},
		{"not json", 502, `bad gateway`, apperr.CodeUpstreamUnavailable, "Bad Gateway"},
		{"bad request", 400, `{}`, apperr.CodeBadRequest, "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "", 0).Status(context.Background(), "tr_1")
			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected app error, got %v", err)
			}
			if appErr.Code != tt.code || appErr.Message != tt.message || appErr.HTTPStatus != tt.status {
				t.Errorf("unexpected error %+v", appErr)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := New(url, "", time.Second).Status(context.Background(), "tr_1"); err == nil {
		t.Fatal("expected transport error")
	}
}
