package crawler

import (
	"sync"
	"time"
)

// ProgressSnapshot is a point-in-time view of a campaign.
type ProgressSnapshot struct {
	Running        bool      `json:"running"`
	CurrentKeyword string    `json:"currentKeyword,omitempty"`
	KeywordsDone   int       `json:"keywordsDone"`
	KeywordsTotal  int       `json:"keywordsTotal"`
	Records        int       `json:"records"`
	StartedAt      time.Time `json:"startedAt,omitzero"`
	FinishedAt     time.Time `json:"finishedAt,omitzero"`
}

// Progress tracks a running campaign for readers on other goroutines. A nil
// *Progress ignores updates.
type Progress struct {
	mu   sync.RWMutex
	snap ProgressSnapshot
}

// NewProgress returns an idle tracker.
func NewProgress() *Progress {
	return &Progress{}
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Progress) start(total int, at time.Time) {
	p.update(func(s *ProgressSnapshot) {
		*s = ProgressSnapshot{Running: true, KeywordsTotal: total, StartedAt: at}
	})
}

func (p *Progress) keywordStarted(keyword string) {
	p.update(func(s *ProgressSnapshot) { s.CurrentKeyword = keyword })
}

func (p *Progress) keywordDone(records int) {
	p.update(func(s *ProgressSnapshot) {
		s.KeywordsDone++
		s.CurrentKeyword = ""
		s.Records = records
	})
}

func (p *Progress) finish(records int, at time.Time) {
	p.update(func(s *ProgressSnapshot) {
		s.Running = false
		s.CurrentKeyword = ""
		s.Records = records
		s.FinishedAt = at
	})
}

func (p *Progress) update(fn func(*ProgressSnapshot)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.snap)
}
