package crawler

// Accumulator collects accepted records keyed by name. The first record for a
// name wins; insertion order is kept for stable output. It is owned by one
// campaign and is not safe for concurrent use.
type Accumulator struct {
	order   []string
	records map[string]StoreRecord
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{records: make(map[string]StoreRecord)}
}

// Has reports whether a record with name was already accepted.
func (a *Accumulator) Has(name string) bool {
	_, ok := a.records[name]
	return ok
}

// Add inserts rec unless its name is already present. It reports whether the
// record was inserted.
func (a *Accumulator) Add(rec StoreRecord) bool {
	if rec.Name == "" || a.Has(rec.Name) {
		return false
	}
	rec.MenuInfo = cloneLines(rec.MenuInfo)
	a.records[rec.Name] = rec
	a.order = append(a.order, rec.Name)
	return true
}

// Len returns the number of accepted records.
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Records returns the accepted records in insertion order.
func (a *Accumulator) Records() []StoreRecord {
	out := make([]StoreRecord, 0, len(a.order))
	for _, name := range a.order {
		rec := a.records[name]
		rec.MenuInfo = cloneLines(rec.MenuInfo)
		out = append(out, rec)
	}
	return out
}

// cloneLines copies lines, never returning nil so records encode "[]".
func cloneLines(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
