package pricecache

import (
	"sync"

	"tickerpane/internal/models"
)

// Entry is the cached state for one symbol. Quote and History are nil
// until the first successful fetch; Failed marks a fetch failure in
// the most recent cycle (stale-but-present beats absent, so the old
// data stays).
type Entry struct {
	Quote   *models.Quote
	History *models.HistorySeries
	Failed  bool
}

// Cache is the in-memory store for quotes and history series. The
// refresh loop writes, the render path reads. Each symbol's
// (Quote, History) pair is updated under one lock, so readers never
// observe a torn pair.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// SetQuote replaces the quote for a symbol and clears its failure mark.
func (c *Cache) SetQuote(q models.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(q.Symbol)
	e.Quote = &q
	e.Failed = false
}

// SetHistory replaces the history series for a symbol. A series for a
// different period replaces the old one wholesale; the series length
// is capped at models.MaxHistoryPoints, keeping the most recent tail.
func (c *Cache) SetHistory(h models.HistorySeries) {
	if n := len(h.Points); n > models.MaxHistoryPoints {
		h.Points = append([]models.PricePoint(nil), h.Points[n-models.MaxHistoryPoints:]...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(h.Symbol).History = &h
}

// MarkFailed flags a symbol as having failed its fetch this cycle.
// Cached data is retained unchanged.
func (c *Cache) MarkFailed(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(symbol).Failed = true
}

// Get returns a copy of the entry for a symbol. A symbol never fetched
// returns ok=false; the render model treats that as a loading state,
// not an error.
func (c *Cache) Get(symbol string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok {
		return Entry{}, false
	}
	return copyEntry(e), true
}

// Snapshot returns a consistent copy of the whole cache, keyed by
// symbol. The render model derives rows from one snapshot so a cycle
// landing mid-render cannot mix old and new data.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for sym, e := range c.entries {
		out[sym] = copyEntry(e)
	}
	return out
}

// Drop removes a symbol's entry, e.g. after it leaves the watchlist.
func (c *Cache) Drop(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, symbol)
}

func (c *Cache) entry(symbol string) *Entry {
	e, ok := c.entries[symbol]
	if !ok {
		e = &Entry{}
		c.entries[symbol] = e
	}
	return e
}

func copyEntry(e *Entry) Entry {
	out := Entry{Failed: e.Failed}
	if e.Quote != nil {
		q := *e.Quote
		out.Quote = &q
	}
	if e.History != nil {
		h := *e.History
		h.Points = append([]models.PricePoint(nil), e.History.Points...)
		out.History = &h
	}
	return out
}
