// Package memory keeps the last saved record set in memory, for dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/storage"
)

// Sink holds the encoded form of the most recent Save.
type Sink struct {
	mu   sync.RWMutex
	data []byte
}

// New creates an empty in-memory sink.
func New() *Sink {
	return &Sink{}
}

// Save encodes records exactly as the file sink would and keeps the bytes.
func (s *Sink) Save(_ context.Context, records []crawler.StoreRecord) error {
	data, err := storage.Encode(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Bytes returns a copy of the last encoded record set, or nil before any save.
func (s *Sink) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil
	}
	return append([]byte(nil), s.data...)
}
