package crawler

import (
	"strings"
	"unicode"
)

// termMatcher holds the configured substrings for one filter. Matching is
// case-sensitive containment.
type termMatcher struct {
	terms []string
}

func newTermMatcher(patterns []string) *termMatcher {
	matcher := &termMatcher{}
	for _, raw := range patterns {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		matcher.add(value)
	}
	if len(matcher.terms) == 0 {
		return nil
	}
	return matcher
}

func (m *termMatcher) add(term string) {
	for _, existing := range m.terms {
		if existing == term {
			return
		}
	}
	m.terms = append(m.terms, term)
}

// Matches reports whether text contains any term. A nil matcher matches nothing.
func (m *termMatcher) Matches(text string) bool {
	if m == nil || text == "" {
		return false
	}
	for _, term := range m.terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// AnyLineMatches reports whether at least one line contains a term.
func (m *termMatcher) AnyLineMatches(lines []string) bool {
	for _, line := range lines {
		if m.Matches(line) {
			return true
		}
	}
	return false
}

// Filters applies the exclusion list to names and the inclusion list to menus.
type Filters struct {
	exclude *termMatcher
	include *termMatcher
}

// NewFilters builds Filters from raw term lists.
func NewFilters(excludeTerms, includeTerms []string) Filters {
	return Filters{
		exclude: newTermMatcher(excludeTerms),
		include: newTermMatcher(includeTerms),
	}
}

// Excluded reports whether name hits the blocklist.
func (f Filters) Excluded(name string) bool {
	return f.exclude.Matches(name)
}

// Included reports whether the menu satisfies the allowlist. With no
// inclusion terms configured every menu passes.
func (f Filters) Included(menu []string) bool {
	if f.include == nil {
		return true
	}
	return f.include.AnyLineMatches(menu)
}

// stripSpace removes every whitespace rune.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func dedupe(lines []string) []string {
	out := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
