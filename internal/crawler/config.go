package crawler

import (
	"fmt"
	"strings"
	"time"
)

// Selectors names every DOM hook the pipeline relies on. The target markup
// changes between site versions, so all of them are configurable.
type Selectors struct {
	ResultsFrameName   string
	ResultsURLFragment string
	EntryFrameName     string
	EntryURLFragment   string

	ListEntry  string
	EntryLink  string
	PageButton string

	Name    string
	Address string

	Tab          string
	MenuTabLabel string

	LegacyItems      []string
	LegacyName       string
	LegacyPrice      string
	CurrentName      string
	CurrentContainer string
	CurrentPrice     string
	FlatText         string
}

// DefaultSelectors returns the selectors for the current map-search markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultsFrameName:   "searchIframe",
		ResultsURLFragment: "/list",
		EntryFrameName:     "entryIframe",
		EntryURLFragment:   "/home",
		ListEntry:          ".UEzoS",
		EntryLink:          ".place_bluelink",
		PageButton:         "a.mBN2s",
		Name:               ".GHAhO",
		Address:            ".LDgIH",
		Tab:                `a[role="tab"]`,
		MenuTabLabel:       "메뉴",
		LegacyItems:        []string{"li.E2jtL", "li.order_list_item"},
		LegacyName:         ".lPzHi",
		LegacyPrice:        ".GXS1X",
		CurrentName:        `[class*="MenuContent__tit"]`,
		CurrentContainer:   "li, div",
		CurrentPrice:       `[class*="MenuContent__price"]`,
		FlatText:           ".tAvTy",
	}
}

// Validate checks that the selectors required by every component are set.
func (s Selectors) Validate() error {
	required := map[string]string{
		"selectors.results_frame_name": s.ResultsFrameName,
		"selectors.entry_frame_name":   s.EntryFrameName,
		"selectors.list_entry":         s.ListEntry,
		"selectors.name":               s.Name,
		"selectors.tab":                s.Tab,
		"selectors.menu_tab_label":     s.MenuTabLabel,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

// Timings bounds every wait the pipeline performs.
type Timings struct {
	ResultsWait         time.Duration
	ResultsPollAttempts int
	ResultsPollInterval time.Duration
	ListWait            time.Duration
	EntrySettle         time.Duration
	EntryWait           time.Duration
	NameWait            time.Duration
	MenuSettle          time.Duration
	PageSettle          time.Duration
	PollInterval        time.Duration
}

// DefaultTimings mirrors the delays the site needs to settle between steps.
func DefaultTimings() Timings {
	return Timings{
		ResultsWait:         10 * time.Second,
		ResultsPollAttempts: 10,
		ResultsPollInterval: time.Second,
		ListWait:            10 * time.Second,
		EntrySettle:         2 * time.Second,
		EntryWait:           5 * time.Second,
		NameWait:            3 * time.Second,
		MenuSettle:          1500 * time.Millisecond,
		PageSettle:          3 * time.Second,
		PollInterval:        200 * time.Millisecond,
	}
}

// Validate rejects negative waits and a zero poll interval.
func (t Timings) Validate() error {
	if t.PollInterval <= 0 {
		return fmt.Errorf("timing.poll_interval must be > 0")
	}
	if t.ResultsPollAttempts < 0 {
		return fmt.Errorf("timing.results_poll_attempts must be >= 0")
	}
	for key, d := range map[string]time.Duration{
		"timing.results_wait":          t.ResultsWait,
		"timing.results_poll_interval": t.ResultsPollInterval,
		"timing.list_wait":             t.ListWait,
		"timing.entry_settle":          t.EntrySettle,
		"timing.entry_wait":            t.EntryWait,
		"timing.name_wait":             t.NameWait,
		"timing.menu_settle":           t.MenuSettle,
		"timing.page_settle":           t.PageSettle,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}

// Options configures one campaign.
type Options struct {
	SearchBaseURL      string
	Keywords           []string
	ExcludeTerms       []string
	IncludeTerms       []string
	MaxPagesPerKeyword int
	MaxEntriesPerPage  int
}

// Validate checks the campaign options.
func (o Options) Validate() error {
	if strings.TrimSpace(o.SearchBaseURL) == "" {
		return fmt.Errorf("search.base_url must be set")
	}
	if o.MaxPagesPerKeyword <= 0 {
		return fmt.Errorf("search.max_pages_per_keyword must be > 0")
	}
	if o.MaxEntriesPerPage < 0 {
		return fmt.Errorf("search.max_entries_per_page must be >= 0")
	}
	return nil
}

// BuildKeywords merges explicit keywords with region+suffix combinations,
// dropping blanks and duplicates while keeping order.
func BuildKeywords(explicit, regions []string, suffix string) []string {
	combined := append([]string(nil), explicit...)
	suffix = strings.TrimSpace(suffix)
	for _, region := range regions {
		region = strings.TrimSpace(region)
		if region == "" {
			continue
		}
		if suffix == "" {
			combined = append(combined, region)
			continue
		}
		combined = append(combined, region+" "+suffix)
	}
	return normalizeKeywords(combined)
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{})
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
