package transcription

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

const utteranceSeparator = "\n\n"

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// FormatDiarization renders utterances as "Speaker N: text" blocks separated by a blank line.
// Provider speaker labels are renumbered 1, 2, 3... in order of first appearance; the label
// map lives only for the duration of one call.
func FormatDiarization(utterances []types.Utterance) string {
	if len(utterances) == 0 {
		return ""
	}

	speakers := make(map[string]int)
	lines := make([]string, 0, len(utterances))

	for _, u := range utterances {
		n, ok := speakers[u.Speaker]
		if !ok {
			n = len(speakers) + 1
			speakers[u.Speaker] = n
		}
		lines = append(lines, "Speaker "+strconv.Itoa(n)+": "+u.Text)
	}

	return strings.Join(lines, utteranceSeparator)
}

// FormatFallback is a heuristic used only when a transcript has no utterance data.
// It splits the text into sentences and alternates Speaker 1 / Speaker 2 by sentence
// index. It does not detect speakers.
func FormatFallback(transcript string) string {
	sentences := sentencePattern.FindAllString(transcript, -1)
	if len(sentences) == 0 {
		return ""
	}

	lines := make([]string, len(sentences))
	for i, s := range sentences {
		lines[i] = "Speaker " + strconv.Itoa(i%2+1) + ": " + strings.TrimSpace(s)
	}
	return strings.Join(lines, utteranceSeparator)
}
