package scheduler_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tickerpane/internal/models"
	"tickerpane/internal/pricecache"
	"tickerpane/internal/scheduler"
)

// fakeProvider serves canned quotes and counts history fetches.
type fakeProvider struct {
	mu      sync.Mutex
	prices  map[string]float64
	failing map[string]bool

	historyCalls atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		prices:  make(map[string]float64),
		failing: make(map[string]bool),
	}
}

func (f *fakeProvider) setPrice(sym string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[sym] = price
}

func (f *fakeProvider) setFailing(sym string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[sym] = failing
}

func (f *fakeProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[symbol] {
		return nil, fmt.Errorf("%s: upstream down", symbol)
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: unknown symbol", symbol)
	}
	return &models.Quote{
		Symbol:    symbol,
		Name:      symbol + " Inc",
		Price:     price,
		PrevClose: price - 1,
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeProvider) FetchHistory(ctx context.Context, symbol string, period models.ChartPeriod) (*models.HistorySeries, error) {
	f.historyCalls.Add(1)
	return &models.HistorySeries{
		Symbol:    symbol,
		Period:    period,
		FetchedAt: time.Now(),
		Points: []models.PricePoint{
			{Timestamp: time.Now().Add(-time.Hour), Price: 99},
			{Timestamp: time.Now(), Price: 100},
		},
	}, nil
}

// fakeSource is a mutable watchlist for tests.
type fakeSource struct {
	mu       sync.Mutex
	symbols  []string
	period   models.ChartPeriod
	interval int
}

func (f *fakeSource) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.symbols...)
}

func (f *fakeSource) Interval() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.interval == 0 {
		return 600
	}
	return f.interval
}

func (f *fakeSource) setInterval(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = seconds
}

func (f *fakeSource) ChartPeriod() models.ChartPeriod {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.period
}

func (f *fakeSource) setPeriod(p models.ChartPeriod) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.period = p
}

func waitCycle(t *testing.T, ch <-chan scheduler.CycleResult) scheduler.CycleResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("no cycle signal within 5s")
		return scheduler.CycleResult{}
	}
}

func TestScheduler_InitialCycle(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)
	provider.setPrice("MSFT", 200)

	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL", "MSFT"}, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{})
	sched.Start()
	defer sched.Stop()

	res := waitCycle(t, sched.Updates())
	if res.Fetched != 2 {
		t.Fatalf("expected 2 fetched, got %d", res.Fetched)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("expected no failures, got %v", res.Failed)
	}

	entry, ok := cache.Get("AAPL")
	if !ok || entry.Quote == nil || entry.Quote.Price != 100 {
		t.Fatal("cache not populated after initial cycle")
	}
	if entry.History == nil {
		t.Fatal("history not fetched on first cycle")
	}
}

func TestScheduler_FailureRetainsCache(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)

	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL"}, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{})
	sched.Start()
	defer sched.Stop()

	waitCycle(t, sched.Updates())

	provider.setFailing("AAPL", true)
	sched.RefreshNow()
	res := waitCycle(t, sched.Updates())

	if len(res.Failed) != 1 || res.Failed[0] != "AAPL" {
		t.Fatalf("expected AAPL in failed set, got %v", res.Failed)
	}

	entry, ok := cache.Get("AAPL")
	if !ok {
		t.Fatal("entry missing")
	}
	if !entry.Failed {
		t.Fatal("expected failure mark")
	}
	if entry.Quote == nil || entry.Quote.Price != 100 {
		t.Fatal("failed fetch must leave the last good quote in place")
	}
}

func TestScheduler_RefreshNow(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)

	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL"}, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{})
	sched.Start()
	defer sched.Stop()

	waitCycle(t, sched.Updates())

	// Interval is 10 minutes; only a kick can produce another cycle
	// this fast.
	provider.setPrice("AAPL", 111)
	sched.RefreshNow()
	waitCycle(t, sched.Updates())

	entry, _ := cache.Get("AAPL")
	if entry.Quote.Price != 111 {
		t.Fatalf("expected refreshed price, got %f", entry.Quote.Price)
	}
}

func TestScheduler_HistoryRefetchOnPeriodChange(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)

	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL"}, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{})
	sched.Start()
	defer sched.Stop()

	waitCycle(t, sched.Updates())
	if provider.historyCalls.Load() != 1 {
		t.Fatalf("expected 1 history fetch, got %d", provider.historyCalls.Load())
	}

	// Same period within the staleness window: no refetch.
	sched.RefreshNow()
	waitCycle(t, sched.Updates())
	if provider.historyCalls.Load() != 1 {
		t.Fatalf("fresh history refetched, calls=%d", provider.historyCalls.Load())
	}

	// Period change invalidates the cached series.
	source.setPeriod(models.Period1Y)
	sched.RefreshNow()
	waitCycle(t, sched.Updates())
	if provider.historyCalls.Load() != 2 {
		t.Fatalf("expected refetch after period change, calls=%d", provider.historyCalls.Load())
	}

	entry, _ := cache.Get("AAPL")
	if entry.History.Period != models.Period1Y {
		t.Fatalf("cached series still on old period %q", entry.History.Period)
	}
}

func TestScheduler_OnQuotesHook(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)

	var hookQuotes atomic.Int32
	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL"}, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{
		OnQuotes: func(quotes []models.Quote) {
			hookQuotes.Add(int32(len(quotes)))
		},
	})
	sched.Start()
	defer sched.Stop()

	waitCycle(t, sched.Updates())
	if hookQuotes.Load() != 1 {
		t.Fatalf("expected hook to see 1 quote, got %d", hookQuotes.Load())
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)

	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL"}, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{Grace: 500 * time.Millisecond})

	if sched.Running() {
		t.Fatal("not started yet")
	}

	sched.Start()
	if !sched.Running() {
		t.Fatal("expected running after Start")
	}
	// Second Start is a logged no-op.
	sched.Start()

	waitCycle(t, sched.Updates())

	sched.Stop()
	if sched.Running() {
		t.Fatal("expected stopped after Stop")
	}
	if sched.State() != scheduler.StateStopped {
		t.Fatalf("expected stopped state, got %q", sched.State())
	}
	// Second Stop is safe.
	sched.Stop()
}

func TestScheduler_IntervalChangeAppliesNextWait(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)

	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL"}, period: models.Period1Mo, interval: 1}

	sched := scheduler.New(provider, cache, source, scheduler.Config{})
	sched.Start()
	defer sched.Stop()

	waitCycle(t, sched.Updates())

	// Let the loop arm the 1s timer, then widen the interval. The wait
	// in flight finishes on the old timer; only the next one reads the
	// new value.
	time.Sleep(100 * time.Millisecond)
	source.setInterval(600)

	waitCycle(t, sched.Updates())

	select {
	case res := <-sched.Updates():
		t.Fatalf("cycle arrived under the 10 minute interval: %+v", res)
	case <-time.After(3 * time.Second):
	}
}

func TestScheduler_NoRestartAfterStop(t *testing.T) {
	provider := newFakeProvider()
	provider.setPrice("AAPL", 100)

	cache := pricecache.New()
	source := &fakeSource{symbols: []string{"AAPL"}, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{Grace: 500 * time.Millisecond})
	sched.Start()
	waitCycle(t, sched.Updates())
	sched.Stop()

	sched.Start()
	if sched.Running() {
		t.Fatal("stopped scheduler must not restart")
	}
	if sched.State() != scheduler.StateStopped {
		t.Fatalf("expected terminal stopped state, got %q", sched.State())
	}

	sched.RefreshNow()
	select {
	case res := <-sched.Updates():
		t.Fatalf("cycle after stop: %+v", res)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestScheduler_EmptyWatchlist(t *testing.T) {
	provider := newFakeProvider()
	cache := pricecache.New()
	source := &fakeSource{symbols: nil, period: models.Period1Mo}

	sched := scheduler.New(provider, cache, source, scheduler.Config{})
	sched.Start()
	defer sched.Stop()

	res := waitCycle(t, sched.Updates())
	if res.Fetched != 0 || len(res.Failed) != 0 {
		t.Fatalf("empty watchlist cycle should be empty, got %+v", res)
	}
}
