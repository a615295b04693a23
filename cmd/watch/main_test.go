package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/codebuildervaibhav/skill-dashboard/internal/poller"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		snap     poller.Snapshot
		code     int
		contains string
	}{
		{
			"diarized",
			poller.Snapshot{State: poller.StateCompleted, JobID: "tr_1", Transcript: "Hi. Hello.", Diarization: "Speaker 1: Hi.\n\nSpeaker 2: Hello."},
			0, "Diarization\n\nSpeaker 1: Hi.",
		},
		{
			"fallback",
			poller.Snapshot{State: poller.StateCompleted, JobID: "tr_1", Transcript: "Hi. Hello."},
			0, "alternating by sentence",
		},
		{
			"timeout",
			poller.Snapshot{State: poller.StateFailed, JobID: "tr_1", Error: "Transcription timed out"},
			1, "Transcription timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := report(&buf, tt.snap); code != tt.code {
				t.Errorf("expected exit %d, got %d", tt.code, code)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("expected output to contain %q, got %q", tt.contains, buf.String())
			}
		})
	}
}
