package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Photo variants stored under separate key prefixes.
const (
	VariantOriginal = "original"
	VariantCropped  = "cropped"
)

// PhotoKey builds a key of the shape
// {userID}/photos/{variant}/{millis}_{uuid}.{ext}. The uuid component keeps
// keys unique even when the same user uploads twice in one millisecond.
func PhotoKey(userID, variant, filename string) string {
	return fmt.Sprintf("%s/photos/%s/%d_%s%s",
		userID, variant, time.Now().UnixMilli(), uuid.New().String(), fileExt(filename))
}

// VideoKey builds a montage video key: {userID}/videos/{boardID}_{millis}.mp4.
func VideoKey(userID, boardID string) string {
	return fmt.Sprintf("%s/videos/%s_%d.mp4", userID, boardID, time.Now().UnixMilli())
}

// MusicKey builds a key for uploaded montage music:
// {userID}/music/{millis}_{uuid}.{ext}.
func MusicKey(userID, filename string) string {
	return fmt.Sprintf("%s/music/%d_%s%s",
		userID, time.Now().UnixMilli(), uuid.New().String(), fileExt(filename))
}

func fileExt(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		return strings.ToLower(filename[i:])
	}
	return ""
}
