package transcription

import (
	"path/filepath"
	"strings"
)

var supportedFormats = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac"}

// ValidateAudioFormat checks if the file format is accepted by the conversation skill
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
