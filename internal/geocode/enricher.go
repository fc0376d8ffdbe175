package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/metrics"
)

// Geocoder resolves one address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, bool, error)
}

// Limiter paces outgoing requests.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Stats summarises one enrichment pass.
type Stats struct {
	Skipped  int
	Found    int
	NotFound int
	Failed   int
}

// Enricher fills in missing coordinates on store records.
type Enricher struct {
	geocoder Geocoder
	limiter  Limiter
	logger   *zap.Logger
}

// NewEnricher constructs an Enricher. limiter may be nil.
func NewEnricher(geocoder Geocoder, limiter Limiter, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{geocoder: geocoder, limiter: limiter, logger: logger}
}

// Enrich returns a copy of records with coordinates added where a lookup
// succeeds. Records that already have coordinates or lack an address are left
// alone, and a failed lookup keeps the record unchanged. Cancellation stops
// the pass; the remaining records are returned untouched with the error.
func (e *Enricher) Enrich(ctx context.Context, records []crawler.StoreRecord) ([]crawler.StoreRecord, Stats, error) {
	out := make([]crawler.StoreRecord, len(records))
	copy(out, records)
	var stats Stats

	for i := range out {
		rec := &out[i]
		address := strings.TrimSpace(rec.Address)
		if rec.HasCoordinates() || address == "" {
			stats.Skipped++
			metrics.ObserveGeocode("skipped")
			continue
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx, "geocode"); err != nil {
				return out, stats, fmt.Errorf("geocode stopped: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return out, stats, fmt.Errorf("geocode stopped: %w", err)
		}

		logger := e.logger.With(zap.String("name", rec.Name), zap.String("address", address))
		coords, ok, err := e.geocoder.Geocode(ctx, address)
		switch {
		case err != nil:
			stats.Failed++
			metrics.ObserveGeocode("error")
			logger.Warn("geocode failed", zap.Error(err))
			if errors.Is(err, ErrUnauthorized) {
				return out, stats, err
			}
		case !ok:
			stats.NotFound++
			metrics.ObserveGeocode("not_found")
			logger.Info("no geocode match")
		default:
			lat, lng := coords.Lat, coords.Lng
			rec.Lat, rec.Lng = &lat, &lng
			stats.Found++
			metrics.ObserveGeocode("found")
			logger.Debug("geocoded", zap.Float64("lat", lat), zap.Float64("lng", lng))
		}
	}
	return out, stats, nil
}
