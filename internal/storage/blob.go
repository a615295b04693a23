package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore persists raw uploads. Put returns a location (URL or path) for logs and history.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

// BlobKey builds the object key for an upload: audio/<user>-<unix millis>-<short uuid>-<name>.
// The uuid fragment keeps two uploads in the same millisecond apart.
func BlobKey(userID string, at time.Time, filename string) string {
	return fmt.Sprintf("audio/%s-%d-%s-%s",
		sanitizeFilename(userID),
		at.UnixMilli(),
		uuid.New().String()[:8],
		sanitizeFilename(filename))
}

// sanitizeFilename removes path separators and characters that are invalid in
// object names and on common filesystems
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	if result == "" || result == "." || result == ".." {
		result = "upload"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
