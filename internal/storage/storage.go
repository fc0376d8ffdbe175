// Package storage persists collected records. Each backend lives in its own
// subpackage; this package holds the shared encoding and the fan-out sink.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/metrics"
)

// Named pairs a sink with the label used in logs and metrics.
type Named struct {
	Name string
	Sink crawler.RecordSink
}

// MultiSink saves to every configured sink. A failing sink does not stop the
// others; all failures are returned joined.
type MultiSink struct {
	sinks  []Named
	logger *zap.Logger
}

// NewMultiSink builds a fan-out sink. Entries with a nil Sink are ignored.
func NewMultiSink(logger *zap.Logger, sinks ...Named) *MultiSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Named, 0, len(sinks))
	for _, s := range sinks {
		if s.Sink != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept, logger: logger}
}

// Save writes records to every sink in order.
func (m *MultiSink) Save(ctx context.Context, records []crawler.StoreRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Save(ctx, records); err != nil {
			m.logger.Error("sink save failed", zap.String("sink", s.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		metrics.ObserveRecordsPersisted(s.Name, len(records))
		m.logger.Debug("sink saved records", zap.String("sink", s.Name), zap.Int("records", len(records)))
	}
	return errors.Join(errs...)
}

// Encode renders records as an indented JSON array. A nil slice encodes as [].
func Encode(records []crawler.StoreRecord) ([]byte, error) {
	if records == nil {
		records = []crawler.StoreRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a JSON array of records.
func Decode(data []byte) ([]crawler.StoreRecord, error) {
	var records []crawler.StoreRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
