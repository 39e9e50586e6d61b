// Package storage keeps meal photos on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a photo reference does not exist.
var ErrNotFound = errors.New("photo not found")

// PhotoStore saves meal photos and hands back an opaque reference.
type PhotoStore interface {
	Save(ctx context.Context, userID string, data []byte, mimeType string) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// FileStore provides file-based storage for meal photos.
type FileStore struct {
	basePath string
	now      func() time.Time
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath, now: time.Now}, nil
}

// Save writes the photo under <user>/<yyyy>/<mm>/ and returns its relative path.
func (s *FileStore) Save(ctx context.Context, userID string, data []byte, mimeType string) (string, error) {
	ref, err := photoKey(userID, mimeType, s.now())
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.basePath, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write photo file: %w", err)
	}
	return ref, nil
}

// Load reads a photo by reference.
func (s *FileStore) Load(ctx context.Context, ref string) ([]byte, error) {
	full, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read photo file: %w", err)
	}
	return data, nil
}

// Delete removes a photo. Deleting a missing photo is not an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove photo file %s: %w", ref, err)
	}
	return nil
}

// resolve rejects references that would escape the base directory.
func (s *FileStore) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)[1:]
	if clean == "" || clean != ref {
		return "", fmt.Errorf("invalid photo reference %q", ref)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

func photoKey(userID, mimeType string, now time.Time) (string, error) {
	ext, err := extension(mimeType)
	if err != nil {
		return "", err
	}
	user := sanitize(userID)
	if user == "" {
		return "", fmt.Errorf("photo owner must not be empty")
	}
	return fmt.Sprintf("%s/%s/%s%s", user, now.UTC().Format("2006/01"), uuid.NewString(), ext), nil
}

func extension(mimeType string) (string, error) {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	case "image/heic":
		return ".heic", nil
	}
	return "", fmt.Errorf("unsupported photo type %q", mimeType)
}

// sanitize keeps ids safe for use as a path segment.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}
