package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

type fileStorage struct {
	config FileConfig
}

type FileConfig struct {
	Directory string
}

// NewFileStorage creates a new file storage backend
func NewFileStorage(ctx context.Context, f FileConfig) (Storage, error) {
	if f.Directory == "" {
		f.Directory = "."
	}

	if err := os.MkdirAll(f.Directory, 0755); err != nil {
		return nil, xerrors.Errorf("failed to create storage directory: %w", err)
	}

	return &fileStorage{
		config: f,
	}, nil
}

func (a *fileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	filePath, err := a.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", xerrors.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", xerrors.Errorf("failed to write file: %w", err)
	}

	return key, nil
}

func (a *fileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	filePath, err := a.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, xerrors.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// resolve keeps keys inside the storage directory.
func (a *fileStorage) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", xerrors.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return filepath.Join(a.config.Directory, cleaned), nil
}
