// Package headless drives a Chrome tab via chromedp and exposes it as a
// crawler.Session. Frames are reached through per-frame isolated worlds and
// elements are JavaScript object handles, so they go stale exactly like DOM
// nodes do when the page rebuilds a list.
package headless

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
)

const (
	worldName   = "menucrawler"
	objectGroup = "menucrawler"
)

// Config controls the behavior of the headless session.
type Config struct {
	Headless          bool
	UserAgent         string
	WindowWidth       int
	WindowHeight      int
	NavigationTimeout time.Duration
	// ActionTimeout bounds every single CDP round trip.
	ActionTimeout time.Duration
	ExecPath      string
}

// Session implements crawler.Session on top of a single chromedp tab.
type Session struct {
	cfg           Config
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	worlds map[cdp.FrameID]runtime.ExecutionContextID
}

// NewChromedp launches Chrome and opens the tab used for the whole run.
func NewChromedp(cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowWidth < 0 || cfg.WindowHeight < 0 {
		return nil, fmt.Errorf("window size must be >= 0")
	}
	cfg = withDefaults(cfg)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	warmup := []chromedp.Action{
		chromedp.EmulateViewport(int64(cfg.WindowWidth), int64(cfg.WindowHeight)),
	}
	if cfg.UserAgent != "" {
		warmup = append(warmup, emulation.SetUserAgentOverride(cfg.UserAgent))
	}
	if err := chromedp.Run(browserCtx, warmup...); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Session{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		worlds:        make(map[cdp.FrameID]runtime.ExecutionContextID),
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.WindowWidth == 0 {
		cfg.WindowWidth = 1280
	}
	if cfg.WindowHeight == 0 {
		cfg.WindowHeight = 720
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 15 * time.Second
	}
	return cfg
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Close shuts the tab and the browser process down.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.browserCancel()
	s.allocCancel()
}

// Navigate loads url in the tab. Handles from the previous page are released.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.worlds = make(map[cdp.FrameID]runtime.ExecutionContextID)
	s.mu.Unlock()

	release := chromedp.ActionFunc(func(ctx context.Context) error {
		if err := runtime.ReleaseObjectGroup(objectGroup).Do(ctx); err != nil {
			s.logger.Debug("release object group failed", zap.Error(err))
		}
		return nil
	})
	if err := s.run(ctx, s.cfg.NavigationTimeout, release, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// Frames lists every nested frame below the top document.
func (s *Session) Frames(ctx context.Context) ([]crawler.Frame, error) {
	var tree *page.FrameTree
	err := s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get frame tree: %w", err)
	}
	var frames []crawler.Frame
	for _, info := range childFrames(tree) {
		frames = append(frames, &frame{session: s, id: info.ID, name: info.Name, url: info.URL})
	}
	return frames, nil
}

// childFrames flattens the tree below the root, depth first.
func childFrames(tree *page.FrameTree) []*cdp.Frame {
	if tree == nil {
		return nil
	}
	var out []*cdp.Frame
	for _, child := range tree.ChildFrames {
		if child == nil || child.Frame == nil {
			continue
		}
		out = append(out, child.Frame)
		out = append(out, childFrames(child)...)
	}
	return out
}

// run executes actions on the tab with a per-call timeout while still
// honoring cancellation of the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

// world returns the isolated execution context for a frame, creating it on
// first use.
func (s *Session) world(ctx context.Context, id cdp.FrameID) (runtime.ExecutionContextID, error) {
	s.mu.Lock()
	execID, ok := s.worlds[id]
	s.mu.Unlock()
	if ok {
		return execID, nil
	}
	err := s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		execID, err = page.CreateIsolatedWorld(id).WithWorldName(worldName).Do(ctx)
		return err
	}))
	if err != nil {
		return 0, fmt.Errorf("create isolated world: %w", err)
	}
	s.mu.Lock()
	s.worlds[id] = execID
	s.mu.Unlock()
	return execID, nil
}

func (s *Session) forgetWorld(id cdp.FrameID) {
	s.mu.Lock()
	delete(s.worlds, id)
	s.mu.Unlock()
}

// evaluate runs expr inside the frame's isolated world, recreating the world
// once if the frame navigated in the meantime.
func (s *Session) evaluate(ctx context.Context, id cdp.FrameID, expr string) (*runtime.RemoteObject, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		execID, err := s.world(ctx, id)
		if err != nil {
			return nil, err
		}
		var obj *runtime.RemoteObject
		err = s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
			res, exc, err := runtime.Evaluate(expr).
				WithContextID(execID).
				WithObjectGroup(objectGroup).
				Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return fmt.Errorf("script exception: %s", exc.Text)
			}
			obj = res
			return nil
		}))
		if err == nil {
			return obj, nil
		}
		lastErr = err
		if !isMissingContext(err) {
			break
		}
		s.forgetWorld(id)
	}
	return nil, fmt.Errorf("evaluate in frame: %w", lastErr)
}

// callOn invokes fn with `this` bound to the remote object.
func (s *Session) callOn(ctx context.Context, objectID runtime.RemoteObjectID, fn string, byValue bool) (*runtime.RemoteObject, error) {
	var obj *runtime.RemoteObject
	err := s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(objectID).
			WithReturnByValue(byValue).
			WithObjectGroup(objectGroup).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		obj = res
		return nil
	}))
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("%w: %v", crawler.ErrStaleElement, err)
		}
		return nil, err
	}
	return obj, nil
}

// elementsOf expands a remote array of nodes into element handles.
func (s *Session) elementsOf(ctx context.Context, array *runtime.RemoteObject) ([]crawler.Element, error) {
	if isNullObject(array) {
		return nil, nil
	}
	lengthObj, err := s.callOn(ctx, array.ObjectID, "function(){ return this.length; }", true)
	if err != nil {
		return nil, err
	}
	var n int
	if err := decodeValue(lengthObj, &n); err != nil {
		return nil, fmt.Errorf("decode length: %w", err)
	}
	elements := make([]crawler.Element, 0, n)
	for i := 0; i < n; i++ {
		item, err := s.callOn(ctx, array.ObjectID, fmt.Sprintf("function(){ return this[%d]; }", i), false)
		if err != nil {
			return nil, err
		}
		if isNullObject(item) {
			continue
		}
		elements = append(elements, &element{session: s, id: item.ObjectID})
	}
	return elements, nil
}

func isNullObject(obj *runtime.RemoteObject) bool {
	return obj == nil || obj.ObjectID == "" || obj.Subtype == runtime.SubtypeNull
}

func decodeValue(obj *runtime.RemoteObject, dst any) error {
	if obj == nil || len(obj.Value) == 0 {
		return fmt.Errorf("empty value")
	}
	return json.Unmarshal(obj.Value, dst)
}

func isMissingContext(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Cannot find context")
}

func isMissingObject(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Could not find object") || strings.Contains(msg, "Cannot find context")
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
