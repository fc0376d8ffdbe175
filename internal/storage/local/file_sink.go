// Package local persists records as a JSON file on the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/storage"
)

// Config captures the parameters for the file sink.
type Config struct {
	// Path is the JSON file that receives the full record set on every save.
	Path string `mapstructure:"path" yaml:"path"`
}

// FileSink replaces the target file with the encoded records.
type FileSink struct {
	path string
}

// New validates the path and makes sure its directory exists.
func New(cfg Config) (*FileSink, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("output path %s is a directory", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Path returns the file written by Save.
func (s *FileSink) Path() string {
	return s.path
}

// Save writes records to a temp file next to the target and renames it into
// place, so readers never observe a partial file.
func (s *FileSink) Save(_ context.Context, records []crawler.StoreRecord) error {
	data, err := storage.Encode(records)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Load reads a file previously written by Save.
func Load(path string) ([]crawler.StoreRecord, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records, err := storage.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}
