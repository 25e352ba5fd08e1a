package media

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// The fixed extension set treated as video; everything else is an image.
var videoExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".avi": {},
	".mkv": {},
}

// IsVideo classifies an uploaded file by its extension, case-insensitively.
func IsVideo(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := videoExtensions[ext]
	return ok
}

// ObjectKey builds a collision-free object store key for an upload, keeping
// the original extension so classification survives the round trip.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return uuid.NewString() + ext
	}
	return prefix + "/" + uuid.NewString() + ext
}
