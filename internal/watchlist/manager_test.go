package watchlist

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"tickerpane/internal/config"
	"tickerpane/internal/models"
)

func newTestManager(t *testing.T) (*Manager, *config.Store) {
	t.Helper()
	store, err := config.NewStore(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewManager(store), store
}

func TestAddSymbol(t *testing.T) {
	m, _ := newTestManager(t)
	base := len(m.Symbols())

	if !m.AddSymbol("aapl") {
		t.Fatal("expected add to report a change")
	}
	syms := m.Symbols()
	if len(syms) != base+1 || syms[base] != "AAPL" {
		t.Fatalf("expected AAPL appended, got %v", syms)
	}

	// Adding again is idempotent: no duplicate, no reorder.
	if m.AddSymbol("AAPL") {
		t.Fatal("duplicate add should report no change")
	}
	if got := m.Symbols(); !reflect.DeepEqual(got, syms) {
		t.Fatalf("duplicate add changed the list: %v", got)
	}

	if m.AddSymbol("   ") {
		t.Fatal("blank symbol should be rejected")
	}
}

func TestRemoveSymbol(t *testing.T) {
	m, _ := newTestManager(t)
	m.AddSymbol("AAPL")
	m.AddSymbol("MSFT")

	if !m.RemoveSymbol("aapl") {
		t.Fatal("expected remove to report a change")
	}
	for _, s := range m.Symbols() {
		if s == "AAPL" {
			t.Fatal("AAPL still present after remove")
		}
	}

	// Absent symbol is a no-op.
	if m.RemoveSymbol("AAPL") {
		t.Fatal("removing an absent symbol should report no change")
	}
}

func TestRemoveKeepsRelativeOrder(t *testing.T) {
	m, _ := newTestManager(t)
	before := m.Symbols() // defaults: ^DJI ^IXIC ^GSPC ^NYA
	if len(before) < 3 {
		t.Fatalf("unexpected default watchlist %v", before)
	}

	m.RemoveSymbol(before[1])
	after := m.Symbols()
	want := append(append([]string(nil), before[0]), before[2:]...)
	if !reflect.DeepEqual(after, want) {
		t.Fatalf("expected %v, got %v", want, after)
	}
}

func TestReorder(t *testing.T) {
	m, _ := newTestManager(t)
	// ^DJI ^IXIC ^GSPC ^NYA

	if !m.Reorder("^NYA", 0) {
		t.Fatal("expected reorder to report a change")
	}
	if got := m.Symbols(); got[0] != "^NYA" || got[1] != "^DJI" {
		t.Fatalf("unexpected order %v", got)
	}

	// Same position is a no-op.
	if m.Reorder("^NYA", 0) {
		t.Fatal("no-move reorder should report no change")
	}

	// Out-of-range indices clamp instead of failing.
	if !m.Reorder("^NYA", 99) {
		t.Fatal("expected clamped reorder to succeed")
	}
	syms := m.Symbols()
	if syms[len(syms)-1] != "^NYA" {
		t.Fatalf("expected ^NYA clamped to the end, got %v", syms)
	}

	if !m.Reorder("^NYA", -5) {
		t.Fatal("expected negative index clamped to 0")
	}
	if got := m.Symbols(); got[0] != "^NYA" {
		t.Fatalf("expected ^NYA at front, got %v", got)
	}

	if m.Reorder("UNKNOWN", 0) {
		t.Fatal("reordering an absent symbol should report no change")
	}
}

func TestMoveSymbol(t *testing.T) {
	m, _ := newTestManager(t)
	before := m.Symbols()

	if !m.MoveSymbol(before[1], -1) {
		t.Fatal("expected move up to succeed")
	}
	got := m.Symbols()
	if got[0] != before[1] || got[1] != before[0] {
		t.Fatalf("expected swap of first two, got %v", got)
	}

	// Moving the first entry further up clamps and reports no change.
	if m.MoveSymbol(got[0], -1) {
		t.Fatal("moving past the top should report no change")
	}
}

func TestSetInterval(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.SetInterval(300); err != nil {
		t.Fatalf("SetInterval(300): %v", err)
	}
	if m.Interval() != 300 {
		t.Fatalf("expected 300, got %d", m.Interval())
	}

	if err := m.SetInterval(42); err == nil {
		t.Fatal("expected error for off-whitelist interval")
	}
	if m.Interval() != 300 {
		t.Fatal("rejected interval must not change state")
	}
}

func TestSetChartPeriod(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.SetChartPeriod(models.Period1Y); err != nil {
		t.Fatalf("SetChartPeriod: %v", err)
	}
	if m.ChartPeriod() != models.Period1Y {
		t.Fatalf("expected 1y, got %q", m.ChartPeriod())
	}

	if err := m.SetChartPeriod("2mo"); err == nil {
		t.Fatal("expected error for unsupported period")
	}
}

func TestMutationsPersist(t *testing.T) {
	m, store := newTestManager(t)
	m.AddSymbol("AAPL")
	m.SetInterval(600)
	m.SetChartPeriod(models.Period5Y)

	// A fresh manager over the same store sees everything.
	m2 := NewManager(store)
	syms := m2.Symbols()
	if syms[len(syms)-1] != "AAPL" {
		t.Fatalf("watchlist not persisted, got %v", syms)
	}
	if m2.Interval() != 600 {
		t.Fatalf("interval not persisted, got %d", m2.Interval())
	}
	if m2.ChartPeriod() != models.Period5Y {
		t.Fatalf("period not persisted, got %q", m2.ChartPeriod())
	}
}

func TestWindowGeometryDebounce(t *testing.T) {
	m, store := newTestManager(t)

	m.SetWindowGeometry([2]int{10, 20}, [2]int{300, 400})
	m.SetWindowGeometry([2]int{11, 21}, [2]int{300, 400})

	// In memory immediately.
	cfg := m.Config()
	if cfg.PopupPosition != [2]int{11, 21} {
		t.Fatalf("expected latest position, got %v", cfg.PopupPosition)
	}

	// Flush writes the pending geometry without waiting for the timer.
	m.Flush()
	m2 := NewManager(store)
	if got := m2.Config().PopupPosition; got != [2]int{11, 21} {
		t.Fatalf("geometry not persisted after flush, got %v", got)
	}
}

func TestGeometryTimerFires(t *testing.T) {
	m, store := newTestManager(t)
	m.SetWindowGeometry([2]int{5, 6}, [2]int{320, 400})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if NewManager(store).Config().PopupPosition == [2]int{5, 6} {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("debounced geometry save never hit disk")
}
