package watchlist

import (
	"fmt"
	"sync"
	"time"

	"tickerpane/internal/config"
	"tickerpane/internal/models"
)

// geometrySaveDelay debounces window move/resize persistence; position
// changes arrive far faster than they are worth flushing to disk.
const geometrySaveDelay = 500 * time.Millisecond

// Manager owns the watchlist and user preferences. All mutations go
// through it and each one persists the config via the store;
// persistence failures are logged and absorbed (the next mutation
// rewrites the whole file, which retries the write implicitly).
type Manager struct {
	mu       sync.Mutex
	store    *config.Store
	cfg      models.Config
	geoTimer *time.Timer
}

// NewManager loads the persisted config and wraps it.
func NewManager(store *config.Store) *Manager {
	return &Manager{
		store: store,
		cfg:   store.Load(),
	}
}

// Config returns a snapshot copy of the current configuration.
func (m *Manager) Config() models.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Clone()
}

// Symbols returns a copy of the watchlist in display order.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cfg.Watchlist...)
}

// AddSymbol appends a symbol to the watchlist. Adding a symbol that is
// already present is idempotent: no duplicate, no reorder. Reports
// whether the list changed.
func (m *Manager) AddSymbol(sym string) bool {
	sym = config.NormalizeSymbol(sym)
	if sym == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.cfg.Watchlist {
		if s == sym {
			return false
		}
	}
	m.cfg.Watchlist = append(m.cfg.Watchlist, sym)
	m.persistLocked()
	return true
}

// RemoveSymbol drops a symbol from the watchlist. Removing an absent
// symbol is a no-op. Remaining entries keep their relative order, so
// display indices stay contiguous.
func (m *Manager) RemoveSymbol(sym string) bool {
	sym = config.NormalizeSymbol(sym)

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.cfg.Watchlist {
		if s == sym {
			m.cfg.Watchlist = append(m.cfg.Watchlist[:i], m.cfg.Watchlist[i+1:]...)
			m.persistLocked()
			return true
		}
	}
	return false
}

// Reorder moves a symbol to newIndex. Out-of-range targets are clamped
// to the valid range rather than rejected. Reports whether the order
// changed.
func (m *Manager) Reorder(sym string, newIndex int) bool {
	sym = config.NormalizeSymbol(sym)

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := -1
	for i, s := range m.cfg.Watchlist {
		if s == sym {
			cur = i
			break
		}
	}
	if cur < 0 {
		return false
	}

	if newIndex < 0 {
		newIndex = 0
	}
	if max := len(m.cfg.Watchlist) - 1; newIndex > max {
		newIndex = max
	}
	if newIndex == cur {
		return false
	}

	list := m.cfg.Watchlist
	list = append(list[:cur], list[cur+1:]...)
	list = append(list, "")
	copy(list[newIndex+1:], list[newIndex:])
	list[newIndex] = sym
	m.cfg.Watchlist = list

	m.persistLocked()
	return true
}

// MoveSymbol shifts a symbol by delta positions (-1 = up, +1 = down).
func (m *Manager) MoveSymbol(sym string, delta int) bool {
	m.mu.Lock()
	cur := -1
	for i, s := range m.cfg.Watchlist {
		if s == config.NormalizeSymbol(sym) {
			cur = i
			break
		}
	}
	m.mu.Unlock()
	if cur < 0 {
		return false
	}
	return m.Reorder(sym, cur+delta)
}

// Interval returns the current refresh interval in seconds.
func (m *Manager) Interval() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.RefreshInterval
}

// SetInterval updates the refresh interval. Only the enumerated
// intervals are accepted; the running scheduler picks the new value up
// on its next tick.
func (m *Manager) SetInterval(seconds int) error {
	if !models.ValidRefreshInterval(seconds) {
		return fmt.Errorf("refresh interval %ds not in allowed set %v", seconds, models.RefreshIntervals)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.RefreshInterval == seconds {
		return nil
	}
	m.cfg.RefreshInterval = seconds
	m.persistLocked()
	return nil
}

// ChartPeriod returns the active chart period.
func (m *Manager) ChartPeriod() models.ChartPeriod {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.ChartPeriod
}

// SetChartPeriod switches the active chart period.
func (m *Manager) SetChartPeriod(p models.ChartPeriod) error {
	if !p.Valid() {
		return fmt.Errorf("unsupported chart period %q", p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.ChartPeriod == p {
		return nil
	}
	m.cfg.ChartPeriod = p
	m.persistLocked()
	return nil
}

// SetWindowGeometry records the popup position and size. Geometry
// changes arrive on every move/resize event, so the save is debounced
// instead of flushed per mutation.
func (m *Manager) SetWindowGeometry(pos, size [2]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.PopupPosition = pos
	m.cfg.PopupSize = size

	if m.geoTimer != nil {
		m.geoTimer.Stop()
	}
	m.geoTimer = time.AfterFunc(geometrySaveDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.persistLocked()
	})
}

// Flush forces any pending debounced save to disk. Called on shutdown.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.geoTimer != nil {
		m.geoTimer.Stop()
		m.geoTimer = nil
	}
	m.persistLocked()
}

func (m *Manager) persistLocked() {
	if err := m.store.Save(m.cfg); err != nil {
		fmt.Printf("[CONFIG] Save failed (will retry on next change): %v\n", err)
	}
}
