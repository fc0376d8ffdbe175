package crawler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/metrics"
)

// MenuExtractor opens the detail panel's menu tab and reads its lines.
type MenuExtractor struct {
	selectors Selectors
	timings   Timings
	clock     Clock
	logger    *zap.Logger
}

// menuTier is one extraction strategy. Tiers run in order and the first one
// that yields lines wins; results are never merged across tiers.
type menuTier struct {
	name    string
	extract func(ctx context.Context, frame Frame) ([]string, error)
}

// NewMenuExtractor constructs a MenuExtractor.
func NewMenuExtractor(selectors Selectors, timings Timings, clock Clock, logger *zap.Logger) *MenuExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenuExtractor{selectors: selectors, timings: timings, clock: clock, logger: logger}
}

// ExtractMenu returns the deduplicated menu lines of the detail frame. It
// never fails; any fault degrades to an empty list.
func (e *MenuExtractor) ExtractMenu(ctx context.Context, frame Frame) (lines []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("menu extraction panicked", zap.Any("panic", r))
			lines = []string{}
		}
	}()

	tab, err := e.findMenuTab(ctx, frame)
	if err != nil {
		e.logger.Debug("menu tab lookup failed", zap.Error(err))
		return []string{}
	}
	if tab == nil {
		return []string{}
	}
	if err := tab.Click(ctx); err != nil {
		e.logger.Debug("menu tab click failed", zap.Error(err))
		return []string{}
	}
	if err := e.clock.Sleep(ctx, e.timings.MenuSettle); err != nil {
		return []string{}
	}

	for _, tier := range e.tiers() {
		got, err := tier.extract(ctx, frame)
		if err != nil {
			e.logger.Debug("menu tier failed", zap.String("tier", tier.name), zap.Error(err))
			continue
		}
		if len(got) > 0 {
			metrics.ObserveMenuTier(tier.name)
			return dedupe(got)
		}
	}
	metrics.ObserveMenuTier("none")
	return []string{}
}

func (e *MenuExtractor) tiers() []menuTier {
	return []menuTier{
		{name: "legacy", extract: e.legacyTier},
		{name: "current", extract: e.currentTier},
		{name: "flat", extract: e.flatTier},
	}
}

func (e *MenuExtractor) findMenuTab(ctx context.Context, frame Frame) (Element, error) {
	tabs, err := frame.QueryAll(ctx, e.selectors.Tab)
	if err != nil {
		return nil, fmt.Errorf("query tabs: %w", err)
	}
	for _, tab := range tabs {
		text, err := tab.Text(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(text, e.selectors.MenuTabLabel) {
			return tab, nil
		}
	}
	return nil, nil
}

// legacyTier reads name/price pairs out of the older list containers. A
// container that fails to query is skipped; the tier only fails when every
// query failed and nothing was read.
func (e *MenuExtractor) legacyTier(ctx context.Context, frame Frame) ([]string, error) {
	var (
		lines    []string
		firstErr error
	)
	for _, container := range e.selectors.LegacyItems {
		items, err := frame.QueryAll(ctx, container)
		if err != nil {
			e.logger.Debug("legacy container query failed", zap.String("selector", container), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("query %s: %w", container, err)
			}
			continue
		}
		for _, item := range items {
			name := e.childText(ctx, item, e.selectors.LegacyName)
			if name == "" {
				continue
			}
			lines = append(lines, formatMenuLine(name, e.childText(ctx, item, e.selectors.LegacyPrice)))
		}
	}
	if len(lines) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return lines, nil
}

// currentTier reads names by class pattern and looks up each price inside the
// nearest enclosing container.
func (e *MenuExtractor) currentTier(ctx context.Context, frame Frame) ([]string, error) {
	if e.selectors.CurrentName == "" {
		return nil, nil
	}
	names, err := frame.QueryAll(ctx, e.selectors.CurrentName)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.selectors.CurrentName, err)
	}
	lines := make([]string, 0, len(names))
	for _, el := range names {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		name := stripSpace(text)
		if name == "" {
			continue
		}
		var price string
		if e.selectors.CurrentContainer != "" {
			container, err := el.Closest(ctx, e.selectors.CurrentContainer)
			if err == nil && container != nil {
				price = e.childText(ctx, container, e.selectors.CurrentPrice)
			}
		}
		lines = append(lines, formatMenuLine(name, price))
	}
	return lines, nil
}

// flatTier takes plain text menu rows as-is.
func (e *MenuExtractor) flatTier(ctx context.Context, frame Frame) ([]string, error) {
	if e.selectors.FlatText == "" {
		return nil, nil
	}
	rows, err := frame.QueryAll(ctx, e.selectors.FlatText)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.selectors.FlatText, err)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		text, err := row.Text(ctx)
		if err != nil {
			continue
		}
		if line := stripSpace(text); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// childText returns the whitespace-stripped text of the first match under
// parent, or "" when absent.
func (e *MenuExtractor) childText(ctx context.Context, parent Element, selector string) string {
	if selector == "" {
		return ""
	}
	child, err := parent.Query(ctx, selector)
	if err != nil || child == nil {
		return ""
	}
	text, err := child.Text(ctx)
	if err != nil {
		return ""
	}
	return stripSpace(text)
}

func formatMenuLine(name, price string) string {
	if price == "" {
		return name
	}
	return name + "(" + price + ")"
}
