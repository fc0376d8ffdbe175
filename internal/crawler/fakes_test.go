package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// fakeClock advances its own time on Sleep so polling loops finish instantly.
type fakeClock struct {
	now    time.Time
	slept  time.Duration
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps++
	c.slept += d
	c.now = c.now.Add(d)
	return nil
}

type sequenceIDs struct {
	n   int
	err error
}

func (s *sequenceIDs) NewID() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.n++
	return "store_" + strconv.Itoa(s.n), nil
}

type fakeElement struct {
	text     string
	textErr  error
	clickErr error
	children map[string][]Element
	closest  map[string]Element
	clicks   int

	// beforeClick can veto a click, e.g. for a handle that went stale.
	beforeClick func() error
	onClick     func()
}

func textEl(text string) *fakeElement {
	return &fakeElement{text: text}
}

func (e *fakeElement) Text(context.Context) (string, error) {
	if e.textErr != nil {
		return "", e.textErr
	}
	return e.text, nil
}

func (e *fakeElement) Click(context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	if e.beforeClick != nil {
		if err := e.beforeClick(); err != nil {
			return err
		}
	}
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Query(_ context.Context, selector string) (Element, error) {
	if list := e.children[selector]; len(list) > 0 {
		return list[0], nil
	}
	return nil, nil
}

func (e *fakeElement) QueryAll(_ context.Context, selector string) ([]Element, error) {
	return e.children[selector], nil
}

func (e *fakeElement) Closest(_ context.Context, selector string) (Element, error) {
	if el, ok := e.closest[selector]; ok {
		return el, nil
	}
	return nil, nil
}

type fakeFrame struct {
	name     string
	url      string
	elements map[string][]Element
	// dynamic, when set, answers before elements.
	dynamic  func(selector string) ([]Element, bool)
	queryErr map[string]error
}

func newFakeFrame(name, url string) *fakeFrame {
	return &fakeFrame{name: name, url: url, elements: make(map[string][]Element)}
}

func (f *fakeFrame) Name() string { return f.name }
func (f *fakeFrame) URL() string  { return f.url }

func (f *fakeFrame) Query(ctx context.Context, selector string) (Element, error) {
	list, err := f.QueryAll(ctx, selector)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (f *fakeFrame) QueryAll(_ context.Context, selector string) ([]Element, error) {
	if err := f.queryErr[selector]; err != nil {
		return nil, err
	}
	if f.dynamic != nil {
		if list, ok := f.dynamic(selector); ok {
			return list, nil
		}
	}
	return f.elements[selector], nil
}

// fakeSession serves a fixed or computed frame list.
type fakeSession struct {
	navigated []string
	navErrs   []error
	frames    func() []Frame
	framesErr error
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	if len(s.navErrs) > 0 {
		err := s.navErrs[0]
		s.navErrs = s.navErrs[1:]
		return err
	}
	return nil
}

func (s *fakeSession) Frames(context.Context) ([]Frame, error) {
	if s.framesErr != nil {
		return nil, s.framesErr
	}
	if s.frames == nil {
		return nil, nil
	}
	return s.frames(), nil
}

// menuItem is a name with an optional price.
type menuItem struct {
	name  string
	price string
}

// storeFixture describes one result entry and the detail panel it opens.
type storeFixture struct {
	name     string
	address  string
	noDetail bool
	noName   bool
	legacy   []menuItem
	current  []menuItem
	flat     []string
	// onOpen runs when the entry is clicked.
	onOpen func()
}

// fakeSite simulates the map-search page: a results frame listing entries
// per page and an entry frame that appears once an entry is clicked.
type fakeSite struct {
	sel       Selectors
	results   *fakeFrame
	detail    Frame
	pages     [][]storeFixture
	page      int
	session   *fakeSession
	menuClick map[string]int
	// entries overrides the rendered list for the current page.
	entries func() []Element
}

func newFakeSite(sel Selectors, pages ...[]storeFixture) *fakeSite {
	site := &fakeSite{sel: sel, pages: pages, menuClick: make(map[string]int)}
	site.results = newFakeFrame(sel.ResultsFrameName, "https://pcmap.example.com/place/list?query=x")
	site.results.dynamic = func(selector string) ([]Element, bool) {
		switch selector {
		case sel.ListEntry:
			if site.entries != nil {
				return site.entries(), true
			}
			return site.renderEntries(), true
		case sel.PageButton:
			return site.renderPageButtons(), true
		}
		return nil, false
	}
	site.session = &fakeSession{frames: func() []Frame {
		frames := []Frame{site.results}
		if site.detail != nil {
			frames = append(frames, site.detail)
		}
		return frames
	}}
	return site
}

func (s *fakeSite) renderEntries() []Element {
	if s.page >= len(s.pages) {
		return nil
	}
	fixtures := s.pages[s.page]
	out := make([]Element, 0, len(fixtures))
	for _, fixture := range fixtures {
		out = append(out, s.entryFor(fixture))
	}
	return out
}

func (s *fakeSite) entryFor(fixture storeFixture) Element {
	return &fakeElement{
		text: fixture.name,
		onClick: func() {
			if fixture.onOpen != nil {
				fixture.onOpen()
			}
			if fixture.noDetail {
				s.detail = nil
				return
			}
			s.detail = s.detailFrame(fixture)
		},
	}
}

func (s *fakeSite) renderPageButtons() []Element {
	buttons := make([]Element, 0, len(s.pages))
	for i := range s.pages {
		target := i
		buttons = append(buttons, &fakeElement{
			text: fmt.Sprintf(" %d ", i+1),
			onClick: func() {
				s.page = target
				s.detail = nil
			},
		})
	}
	return buttons
}

func (s *fakeSite) detailFrame(fixture storeFixture) *fakeFrame {
	sel := s.sel
	frame := newFakeFrame(sel.EntryFrameName, "https://pcmap.example.com/place/123/home")
	if !fixture.noName {
		frame.elements[sel.Name] = []Element{textEl(fixture.name)}
	}
	if fixture.address != "" {
		frame.elements[sel.Address] = []Element{textEl(fixture.address)}
	}
	menuTab := &fakeElement{text: sel.MenuTabLabel, onClick: func() { s.menuClick[fixture.name]++ }}
	frame.elements[sel.Tab] = []Element{textEl("홈"), menuTab, textEl("리뷰")}
	frame.elements[sel.LegacyItems[0]] = legacyItems(sel, fixture.legacy)
	frame.elements[sel.CurrentName] = currentItems(sel, fixture.current)
	flat := make([]Element, 0, len(fixture.flat))
	for _, line := range fixture.flat {
		flat = append(flat, textEl(line))
	}
	frame.elements[sel.FlatText] = flat
	return frame
}

func legacyItems(sel Selectors, items []menuItem) []Element {
	out := make([]Element, 0, len(items))
	for _, item := range items {
		children := map[string][]Element{sel.LegacyName: {textEl(item.name)}}
		if item.price != "" {
			children[sel.LegacyPrice] = []Element{textEl(item.price)}
		}
		out = append(out, &fakeElement{children: children})
	}
	return out
}

func currentItems(sel Selectors, items []menuItem) []Element {
	out := make([]Element, 0, len(items))
	for _, item := range items {
		container := &fakeElement{children: map[string][]Element{}}
		if item.price != "" {
			container.children[sel.CurrentPrice] = []Element{textEl(item.price)}
		}
		out = append(out, &fakeElement{
			text:    item.name,
			closest: map[string]Element{sel.CurrentContainer: container},
		})
	}
	return out
}

var errBoom = errors.New("boom")

func testTimings() Timings {
	return Timings{
		ResultsWait:         time.Second,
		ResultsPollAttempts: 3,
		ResultsPollInterval: 100 * time.Millisecond,
		ListWait:            time.Second,
		EntrySettle:         10 * time.Millisecond,
		EntryWait:           time.Second,
		NameWait:            time.Second,
		MenuSettle:          10 * time.Millisecond,
		PageSettle:          10 * time.Millisecond,
		PollInterval:        100 * time.Millisecond,
	}
}

func testOptions(include ...string) Options {
	return Options{
		SearchBaseURL:      "https://map.example.com/p/search",
		Keywords:           []string{"test region 카페"},
		ExcludeTerms:       []string{"프랜차이즈"},
		IncludeTerms:       include,
		MaxPagesPerKeyword: 3,
	}
}
