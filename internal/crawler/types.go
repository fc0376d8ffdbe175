package crawler

import (
	"time"
)

// StoreRecord is one accepted business with the menu lines that matched.
// Coordinates are only ever written by the geocoding step.
type StoreRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	MenuInfo  []string  `json:"menuInfo"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	CrawledAt time.Time `json:"crawledAt"`
}

// HasCoordinates reports whether both lat and lng are set.
func (r StoreRecord) HasCoordinates() bool {
	return r.Lat != nil && r.Lng != nil
}

// Fields are the canonical detail-panel values. HasName is false when the
// name element never appeared; Address is empty when unresolved.
type Fields struct {
	Name    string
	HasName bool
	Address string
}

// EntryOutcome labels how a single list entry was resolved.
type EntryOutcome string

// Entry outcomes recorded in KeywordStats and metrics.
const (
	OutcomeAccepted       EntryOutcome = "accepted"
	OutcomeClickFailed    EntryOutcome = "click_failed"
	OutcomeNoDetail       EntryOutcome = "no_detail"
	OutcomeNoName         EntryOutcome = "no_name"
	OutcomeExcluded       EntryOutcome = "excluded"
	OutcomeDuplicate      EntryOutcome = "duplicate"
	OutcomeNoKeywordMatch EntryOutcome = "no_keyword_match"
	OutcomeRecordFailed   EntryOutcome = "record_failed"
)

// KeywordStats summarizes one keyword's search.
type KeywordStats struct {
	Keyword  string               `json:"keyword"`
	Pages    int                  `json:"pages"`
	Entries  int                  `json:"entries"`
	Outcomes map[EntryOutcome]int `json:"outcomes"`
	Err      string               `json:"error,omitempty"`
}

func newKeywordStats(keyword string) KeywordStats {
	return KeywordStats{Keyword: keyword, Outcomes: make(map[EntryOutcome]int)}
}

func (s *KeywordStats) record(outcome EntryOutcome) {
	s.Entries++
	s.Outcomes[outcome]++
}

// CampaignSummary is published once a campaign has persisted its records.
type CampaignSummary struct {
	Keywords   []KeywordStats `json:"keywords"`
	Records    int            `json:"records"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Err        string         `json:"error,omitempty"`
}
