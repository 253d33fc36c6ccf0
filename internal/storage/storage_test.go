package storage_test

import (
	"bytes"
	"context"
	"design-diff/internal/storage"
	"errors"
	"image"
	"image/png"
	"regexp"
	"testing"
)

func TestContentKey(t *testing.T) {
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}

	key := storage.ContentKey("diff", buffer.Bytes())
	if !regexp.MustCompile(`^diff/[0-9a-f]{64}\.png$`).MatchString(key) {
		t.Errorf("Unexpected key: %s", key)
	}
	if again := storage.ContentKey("diff", buffer.Bytes()); again != key {
		t.Errorf("Expected stable key, got %s and %s", key, again)
	}
	if other := storage.ContentKey("diff", []byte("other")); other == key {
		t.Errorf("Expected different content to produce a different key")
	}
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		key, err := s.Put(ctx, "baseline/abc.png", []byte("data"))
		if err != nil {
			t.Fatalf("Put() returned error: %v", err)
		}
		if key != "baseline/abc.png" {
			t.Errorf("Expected key to be returned, got %s", key)
		}

		data, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get() returned error: %v", err)
		}
		if string(data) != "data" {
			t.Errorf("Expected data, got %q", data)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := s.Get(ctx, "baseline/missing.png")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Traversal", func(t *testing.T) {
		for _, key := range []string{"../outside.png", "/etc/passwd", "a/../../b", ""} {
			if _, err := s.Get(ctx, key); !errors.Is(err, storage.ErrInvalidKey) {
				t.Errorf("Get(%q): expected ErrInvalidKey, got %v", key, err)
			}
			if _, err := s.Put(ctx, key, []byte("x")); !errors.Is(err, storage.ErrInvalidKey) {
				t.Errorf("Put(%q): expected ErrInvalidKey, got %v", key, err)
			}
		}
	})
}
