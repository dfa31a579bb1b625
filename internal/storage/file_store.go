// Package storage persists uploaded product images on the local
// filesystem, outside the JSON document. The document only keeps the
// relative paths returned by SaveImage.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore saves uploaded images under a base directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// SaveImage writes an uploaded image with a timestamped name so repeated
// uploads of the same filename do not collide. It returns the stored
// file name.
func (f *FileStore) SaveImage(filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().Unix(), safeFilename(filename))
	target := filepath.Join(f.basePath, name)

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "image"
	}
	return name
}
