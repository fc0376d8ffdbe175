package crawler

import (
	"context"

	"go.uber.org/zap"
)

// EntryResolver finds the detail frame after a list entry was clicked.
type EntryResolver struct {
	selectors Selectors
	timings   Timings
	clock     Clock
	logger    *zap.Logger
}

// NewEntryResolver constructs an EntryResolver.
func NewEntryResolver(selectors Selectors, timings Timings, clock Clock, logger *zap.Logger) *EntryResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryResolver{selectors: selectors, timings: timings, clock: clock, logger: logger}
}

// ResolveEntryContext waits for the detail panel to render and returns its
// frame. Ads and non-standard panels never produce one; that is reported as
// ok=false, not as an error.
func (r *EntryResolver) ResolveEntryContext(ctx context.Context, session Session) (Frame, bool) {
	if err := r.clock.Sleep(ctx, r.timings.EntrySettle); err != nil {
		return nil, false
	}
	frame, ok := waitForFrame(ctx, r.clock, session, r.timings.EntryWait, r.timings.PollInterval,
		frameByName(r.selectors.EntryFrameName),
		frameByURLFragment(r.selectors.EntryURLFragment),
	)
	if !ok {
		r.logger.Debug("detail frame unavailable", zap.Duration("waited", r.timings.EntryWait))
		return nil, false
	}
	return frame, true
}
