package crawler

import (
	"context"
	"time"
)

// pollUntil calls check until it reports done or timeout elapses on clk. The
// check runs at least once, so a zero timeout is a single check.
func pollUntil(ctx context.Context, clk Clock, timeout, interval time.Duration, check func() bool) bool {
	deadline := clk.Now().Add(timeout)
	for {
		if check() {
			return true
		}
		if ctx.Err() != nil || !clk.Now().Before(deadline) {
			return false
		}
		if err := clk.Sleep(ctx, interval); err != nil {
			return false
		}
	}
}

// waitForSelector polls frame for selector and returns the first match, or
// nil when nothing appeared in time. Query errors count as "not yet".
func waitForSelector(
	ctx context.Context,
	clk Clock,
	frame Frame,
	selector string,
	timeout, interval time.Duration,
) Element {
	var found Element
	pollUntil(ctx, clk, timeout, interval, func() bool {
		el, err := frame.Query(ctx, selector)
		if err != nil || el == nil {
			return false
		}
		found = el
		return true
	})
	return found
}

// frameResolver is one discovery strategy over the currently attached frames.
type frameResolver func(frames []Frame) (Frame, bool)

func frameByName(name string) frameResolver {
	return func(frames []Frame) (Frame, bool) {
		if name == "" {
			return nil, false
		}
		for _, f := range frames {
			if f.Name() == name {
				return f, true
			}
		}
		return nil, false
	}
}

func frameByURLFragment(fragment string) frameResolver {
	return func(frames []Frame) (Frame, bool) {
		if fragment == "" {
			return nil, false
		}
		for _, f := range frames {
			if containsFold(f.URL(), fragment) {
				return f, true
			}
		}
		return nil, false
	}
}

// firstFrame tries resolvers in order against one frame listing.
func firstFrame(frames []Frame, resolvers ...frameResolver) (Frame, bool) {
	for _, resolve := range resolvers {
		if f, ok := resolve(frames); ok {
			return f, true
		}
	}
	return nil, false
}

// waitForFrame polls the session until one of the resolvers finds a frame.
func waitForFrame(
	ctx context.Context,
	clk Clock,
	session Session,
	timeout, interval time.Duration,
	resolvers ...frameResolver,
) (Frame, bool) {
	var found Frame
	ok := pollUntil(ctx, clk, timeout, interval, func() bool {
		frames, err := session.Frames(ctx)
		if err != nil {
			return false
		}
		f, hit := firstFrame(frames, resolvers...)
		if hit {
			found = f
		}
		return hit
	})
	return found, ok
}

func frameURLs(ctx context.Context, session Session) []string {
	frames, err := session.Frames(ctx)
	if err != nil {
		return nil
	}
	urls := make([]string, 0, len(frames))
	for _, f := range frames {
		urls = append(urls, f.URL())
	}
	return urls
}
