package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Navigator opens a keyword search and finds the results frame.
type Navigator struct {
	baseURL   string
	selectors Selectors
	timings   Timings
	clock     Clock
	retry     navigationRetry
	logger    *zap.Logger
}

// NewNavigator constructs a Navigator.
func NewNavigator(baseURL string, selectors Selectors, timings Timings, clock Clock, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		baseURL:   baseURL,
		selectors: selectors,
		timings:   timings,
		clock:     clock,
		retry:     newNavigationRetry(),
		logger:    logger,
	}
}

// SearchURL builds the keyword-encoded search URL.
func (n *Navigator) SearchURL(keyword string) string {
	base := n.baseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(keyword)
}

// AcquireResultsContext navigates to the keyword's search page and returns the
// results frame. It first waits for the frame by name, then scans frame URLs
// for the results path. Failure yields an *AcquisitionError.
func (n *Navigator) AcquireResultsContext(ctx context.Context, session Session, keyword string) (Frame, error) {
	target := n.SearchURL(keyword)
	n.logger.Info("opening search", zap.String("keyword", keyword), zap.String("url", target))
	if err := n.navigate(ctx, session, target); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}

	if frame, ok := waitForFrame(ctx, n.clock, session, n.timings.ResultsWait, n.timings.PollInterval,
		frameByName(n.selectors.ResultsFrameName)); ok {
		return frame, nil
	}
	n.logger.Debug("results frame not found by name; scanning frame urls",
		zap.String("keyword", keyword),
		zap.String("fragment", n.selectors.ResultsURLFragment))

	resolve := frameByURLFragment(n.selectors.ResultsURLFragment)
	for attempt := 0; attempt < n.timings.ResultsPollAttempts; attempt++ {
		if attempt > 0 {
			if err := n.clock.Sleep(ctx, n.timings.ResultsPollInterval); err != nil {
				return nil, fmt.Errorf("wait for results frame: %w", err)
			}
		}
		frames, err := session.Frames(ctx)
		if err != nil {
			n.logger.Debug("list frames failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		if frame, ok := resolve(frames); ok {
			return frame, nil
		}
	}

	acqErr := &AcquisitionError{
		Keyword:   keyword,
		FrameURLs: frameURLs(ctx, session),
		Err:       ErrAcquisitionTimeout,
	}
	n.logger.Warn("results frame never appeared",
		zap.String("keyword", keyword),
		zap.Strings("frames", acqErr.FrameURLs))
	return nil, acqErr
}

// navigate loads target, retrying transient failures with backoff.
func (n *Navigator) navigate(ctx context.Context, session Session, target string) error {
	for attempt := 1; ; attempt++ {
		err := session.Navigate(ctx, target)
		if err == nil {
			return nil
		}
		if !n.retry.ShouldRetry(err, attempt) {
			return err
		}
		delay := n.retry.Backoff(attempt)
		n.logger.Warn("navigation failed; retrying",
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := n.clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}
