package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// LocalStorage stores files on the local filesystem under a base directory.
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

func (s *LocalStorage) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	ext := filepath.Ext(originalName)
	base := slugify(strings.TrimSuffix(filepath.Base(originalName), ext))
	storedName := fmt.Sprintf("%s-%s%s", base, uuid.New().String(), ext)

	f, err := os.Create(filepath.Join(s.baseDir, storedName))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return storedName, nil
}

func (s *LocalStorage) Open(ctx context.Context, storedName string) (io.ReadCloser, error) {
	// Reject path traversal in stored names.
	if storedName != filepath.Base(storedName) {
		return nil, fmt.Errorf("invalid file name %q", storedName)
	}
	f, err := os.Open(filepath.Join(s.baseDir, storedName))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, storedName string) error {
	if storedName != filepath.Base(storedName) {
		return fmt.Errorf("invalid file name %q", storedName)
	}
	return os.Remove(filepath.Join(s.baseDir, storedName))
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "file"
	}
	return out
}
