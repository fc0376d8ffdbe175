package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/metrics"
)

type resultsNavigator interface {
	AcquireResultsContext(ctx context.Context, session Session, keyword string) (Frame, error)
}

type entryFrameResolver interface {
	ResolveEntryContext(ctx context.Context, session Session) (Frame, bool)
}

type fieldReader interface {
	ExtractFields(ctx context.Context, frame Frame) Fields
}

type menuReader interface {
	ExtractMenu(ctx context.Context, frame Frame) []string
}

// SearchController walks one keyword's result pages and evaluates every entry.
type SearchController struct {
	opts      Options
	selectors Selectors
	timings   Timings
	filters   Filters
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger

	navigator resultsNavigator
	entries   entryFrameResolver
	fields    fieldReader
	menu      menuReader
}

// NewSearchController wires the default navigator and extractors.
func NewSearchController(
	opts Options,
	selectors Selectors,
	timings Timings,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *SearchController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchController{
		opts:      opts,
		selectors: selectors,
		timings:   timings,
		filters:   NewFilters(opts.ExcludeTerms, opts.IncludeTerms),
		clock:     clock,
		ids:       ids,
		logger:    logger,
		navigator: NewNavigator(opts.SearchBaseURL, selectors, timings, clock, logger.Named("navigator")),
		entries:   NewEntryResolver(selectors, timings, clock, logger.Named("entry")),
		fields:    NewFieldExtractor(selectors, timings, clock, logger.Named("fields")),
		menu:      NewMenuExtractor(selectors, timings, clock, logger.Named("menu")),
	}
}

// Search evaluates up to MaxPagesPerKeyword result pages for keyword and adds
// accepted records to acc. Only results-frame acquisition failures are
// returned as errors; everything else ends the page or skips the entry.
func (c *SearchController) Search(ctx context.Context, session Session, keyword string, acc *Accumulator) (KeywordStats, error) {
	stats := newKeywordStats(keyword)
	results, err := c.navigator.AcquireResultsContext(ctx, session, keyword)
	if err != nil {
		return stats, err
	}

	for page := 1; page <= c.opts.MaxPagesPerKeyword; page++ {
		logger := c.logger.With(zap.String("keyword", keyword), zap.Int("page", page))
		if waitForSelector(ctx, c.clock, results, c.selectors.ListEntry, c.timings.ListWait, c.timings.PollInterval) == nil {
			logger.Info("result list empty; stopping pagination")
			break
		}
		stats.Pages++
		c.processPage(ctx, session, results, acc, &stats, logger)

		if page == c.opts.MaxPagesPerKeyword {
			break
		}
		if !c.nextPage(ctx, results, page, logger) {
			logger.Info("no further result pages")
			break
		}
	}
	return stats, nil
}

// processPage evaluates entries by index. The entry list is re-queried before
// every index because clicking an entry can rebuild the list.
func (c *SearchController) processPage(
	ctx context.Context,
	session Session,
	results Frame,
	acc *Accumulator,
	stats *KeywordStats,
	logger *zap.Logger,
) {
	for index := 0; ; index++ {
		if c.opts.MaxEntriesPerPage > 0 && index >= c.opts.MaxEntriesPerPage {
			return
		}
		entries, err := results.QueryAll(ctx, c.selectors.ListEntry)
		if err != nil {
			logger.Warn("query result entries failed", zap.Int("index", index), zap.Error(err))
			return
		}
		if index >= len(entries) {
			return
		}
		entryLogger := logger.With(zap.Int("index", index))
		outcome := c.evaluateEntry(ctx, session, entries[index], acc, entryLogger)
		stats.record(outcome)
		metrics.ObserveEntry(string(outcome))
	}
}

func (c *SearchController) evaluateEntry(
	ctx context.Context,
	session Session,
	entry Element,
	acc *Accumulator,
	logger *zap.Logger,
) EntryOutcome {
	if err := c.activate(ctx, entry); err != nil {
		logger.Debug("entry click failed", zap.Error(err))
		return OutcomeClickFailed
	}

	detail, ok := c.entries.ResolveEntryContext(ctx, session)
	if !ok {
		logger.Info("detail panel unavailable; skipping entry")
		return OutcomeNoDetail
	}

	fields := c.fields.ExtractFields(ctx, detail)
	if !fields.HasName {
		logger.Info("detail panel has no name; skipping entry")
		return OutcomeNoName
	}
	logger = logger.With(zap.String("name", fields.Name))

	if c.filters.Excluded(fields.Name) {
		logger.Info("name excluded")
		return OutcomeExcluded
	}
	if acc.Has(fields.Name) {
		logger.Debug("already collected")
		return OutcomeDuplicate
	}

	menu := c.menu.ExtractMenu(ctx, detail)
	if !c.filters.Included(menu) {
		logger.Info("menu has no matching keyword", zap.Int("menu_lines", len(menu)))
		return OutcomeNoKeywordMatch
	}

	rec, err := c.newRecord(fields, menu)
	if err != nil {
		logger.Error("build record failed", zap.Error(err))
		return OutcomeRecordFailed
	}
	acc.Add(rec)
	logger.Info("store accepted", zap.String("id", rec.ID), zap.Strings("menu", rec.MenuInfo))
	return OutcomeAccepted
}

// activate clicks the entry's title link when present, else the entry itself.
func (c *SearchController) activate(ctx context.Context, entry Element) error {
	if c.selectors.EntryLink != "" {
		link, err := entry.Query(ctx, c.selectors.EntryLink)
		if err == nil && link != nil {
			if err := link.Click(ctx); err != nil {
				return fmt.Errorf("click entry link: %w", err)
			}
			return nil
		}
	}
	if err := entry.Click(ctx); err != nil {
		return fmt.Errorf("click entry: %w", err)
	}
	return nil
}

// nextPage clicks the control labelled page+1 and waits for the list to settle.
func (c *SearchController) nextPage(ctx context.Context, results Frame, page int, logger *zap.Logger) bool {
	if c.selectors.PageButton == "" {
		return false
	}
	buttons, err := results.QueryAll(ctx, c.selectors.PageButton)
	if err != nil {
		logger.Debug("query page buttons failed", zap.Error(err))
		return false
	}
	want := strconv.Itoa(page + 1)
	for _, button := range buttons {
		text, err := button.Text(ctx)
		if err != nil || strings.TrimSpace(text) != want {
			continue
		}
		if err := button.Click(ctx); err != nil {
			logger.Debug("page button click failed", zap.String("page", want), zap.Error(err))
			return false
		}
		if err := c.clock.Sleep(ctx, c.timings.PageSettle); err != nil {
			return false
		}
		return true
	}
	return false
}

func (c *SearchController) newRecord(fields Fields, menu []string) (StoreRecord, error) {
	id, err := c.ids.NewID()
	if err != nil {
		return StoreRecord{}, fmt.Errorf("generate record id: %w", err)
	}
	return StoreRecord{
		ID:        id,
		Name:      fields.Name,
		Address:   fields.Address,
		MenuInfo:  cloneLines(menu),
		CrawledAt: c.clock.Now(),
	}, nil
}
