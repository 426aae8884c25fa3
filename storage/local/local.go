// Package local provides a filesystem storage backend.
package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ context.Context, cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.Local.BasePath)
	})
}

// Storage implements storage.Storage using a local directory.
type Storage struct {
	basePath string
}

var (
	_ storage.Storage      = (*Storage)(nil)
	_ storage.PathResolver = (*Storage)(nil)
	_ storage.Pinger       = (*Storage)(nil)
)

// NewStorage creates the base directory if needed.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

// BasePath returns the absolute upload directory.
func (s *Storage) BasePath() string { return s.basePath }

func (s *Storage) path(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, key), nil
}

// Upload writes through a temporary file and renames it into place, so a
// reader never sees a partial blob.
func (s *Storage) Upload(_ context.Context, key string, reader io.Reader) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("storage: rename file: %w", err)
	}
	return nil
}

// Download opens the blob for reading.
func (s *Storage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("audio file", key)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Delete removes the blob. Returns nil if it does not exist.
func (s *Storage) Delete(_ context.Context, key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Exists checks whether the blob file exists.
func (s *Storage) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// Size returns the blob size in bytes.
func (s *Storage) Size(_ context.Context, key string) (int64, error) {
	full, err := s.path(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, apperrors.NotFound("audio file", key)
		}
		return 0, fmt.Errorf("storage: stat file: %w", err)
	}
	return info.Size(), nil
}

// URL returns a file:// URL for the blob.
func (s *Storage) URL(_ context.Context, key string) (string, error) {
	full, err := s.path(key)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: full}).String(), nil
}

// ResolvePath returns the blob's own path; release is a no-op.
func (s *Storage) ResolvePath(ctx context.Context, key string) (string, func(), error) {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, apperrors.NotFound("audio file", key)
	}
	full, _ := s.path(key)
	return full, func() {}, nil
}

// Ping checks that the base directory is still there.
func (s *Storage) Ping(_ context.Context) error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %s is not a directory", s.basePath)
	}
	return nil
}
