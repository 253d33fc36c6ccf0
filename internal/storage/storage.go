package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid key")
)

type Storage interface {
	// Put stores data with the given key and returns the key it was stored under
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data stored under the given key
	Get(ctx context.Context, key string) ([]byte, error)
}

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// ContentKey derives a content-addressed key such as "diff/<sha256>.png".
func ContentKey(prefix string, data []byte) string {
	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		ext = "png"
	}
	return fmt.Sprintf("%s/%x.%s", prefix, sha256.Sum256(data), ext)
}
