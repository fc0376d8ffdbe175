package geocode

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
)

// EnrichingSink geocodes records before handing them to the next sink. An
// enrichment failure never blocks persistence.
type EnrichingSink struct {
	enricher *Enricher
	next     crawler.RecordSink
	logger   *zap.Logger
}

// NewEnrichingSink wraps next.
func NewEnrichingSink(enricher *Enricher, next crawler.RecordSink, logger *zap.Logger) *EnrichingSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichingSink{enricher: enricher, next: next, logger: logger}
}

// Save enriches records and forwards the result.
func (s *EnrichingSink) Save(ctx context.Context, records []crawler.StoreRecord) error {
	enriched, stats, err := s.enricher.Enrich(ctx, records)
	if err != nil {
		s.logger.Warn("geocoding incomplete", zap.Error(err))
	}
	s.logger.Info("geocoding finished",
		zap.Int("found", stats.Found),
		zap.Int("not_found", stats.NotFound),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped))
	if s.next == nil {
		return errors.New("geocode sink has no target")
	}
	return s.next.Save(ctx, enriched)
}
