package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tickerpane/internal/models"
	"tickerpane/internal/pricecache"
)

// QuoteProvider is the fetch capability the scheduler runs against.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
	FetchHistory(ctx context.Context, symbol string, period models.ChartPeriod) (*models.HistorySeries, error)
}

// WatchlistSource supplies the symbols and settings for each cycle.
// Values are re-read every cycle, so setting changes apply on the next
// tick without a restart.
type WatchlistSource interface {
	Symbols() []string
	Interval() int
	ChartPeriod() models.ChartPeriod
}

// QuoteRecorder persists fetched quotes, e.g. into the postgres
// archive. Recording is best-effort; failures are logged, never fatal.
type QuoteRecorder interface {
	RecordQuotes(ctx context.Context, quotes []models.Quote) error
}

// CycleResult describes one completed refresh cycle. Exactly one is
// emitted per cycle, after every symbol's fetch attempt has resolved.
type CycleResult struct {
	CompletedAt time.Time
	Fetched     int
	Failed      []string
}

// Scheduler states.
const (
	StateIdle     = "idle"
	StateFetching = "fetching"
	StateStopped  = "stopped"
)

type Config struct {
	FetchTimeout time.Duration        // budget for one whole cycle
	Concurrency  int                  // parallel symbol fetches
	Grace        time.Duration        // shutdown wait for an in-flight cycle
	Recorder     QuoteRecorder        // optional quote archive
	OnQuotes     func([]models.Quote) // optional per-cycle hook (alerts)
}

// Scheduler drives the background refresh pipeline: on every tick it
// snapshots the watchlist, fetches each symbol independently, updates
// the cache, and signals the UI once per cycle.
type Scheduler struct {
	provider QuoteProvider
	cache    *pricecache.Cache
	source   WatchlistSource
	cfg      Config

	mu          sync.Mutex
	running     bool
	state       string
	stopCh      chan struct{}
	cycleCancel context.CancelFunc

	stopped atomic.Bool
	wg      sync.WaitGroup
	kick    chan struct{}
	updates chan CycleResult
}

func New(provider QuoteProvider, cache *pricecache.Cache, source WatchlistSource, cfg Config) *Scheduler {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 45 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 2 * time.Second
	}
	return &Scheduler{
		provider: provider,
		cache:    cache,
		source:   source,
		cfg:      cfg,
		state:    StateIdle,
		kick:     make(chan struct{}, 1),
		updates:  make(chan CycleResult, 1),
	}
}

// Updates delivers one message per completed cycle. The channel has
// capacity 1 and sends are non-blocking: a slow UI sees cycles
// coalesce instead of queueing repaints.
func (s *Scheduler) Updates() <-chan CycleResult {
	return s.updates
}

// Start launches the refresh loop. Stopped is terminal: a scheduler
// that has been stopped refuses to restart, since its late-write guard
// discards all cache updates from that point on.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		fmt.Println("[SCHEDULER] Stopped, ignoring start")
		return
	}
	if s.running {
		s.mu.Unlock()
		fmt.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()

	fmt.Printf("[SCHEDULER] Started (every %s)\n",
		time.Duration(s.source.Interval())*time.Second)
}

// Stop preempts the wait between cycles, then waits up to the grace
// period for an in-flight cycle. Fetches still running after that are
// abandoned; a stopped scheduler discards their results.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	cancel := s.cycleCancel
	s.mu.Unlock()

	s.stopped.Store(true)
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.Grace):
		fmt.Println("[SCHEDULER] Grace period elapsed, abandoning in-flight fetches")
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	fmt.Println("[SCHEDULER] Stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// State returns the current lifecycle state for diagnostics.
func (s *Scheduler) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RefreshNow requests an immediate cycle, e.g. after a watchlist
// mutation. Requests made while a cycle is in flight coalesce into a
// single follow-up cycle.
func (s *Scheduler) RefreshNow() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	// Initial fetch on startup, like a manual refresh.
	s.runCycle()

	for {
		// The interval is re-read for every wait: a change mid-cycle
		// lets the current timer run out and applies to the next one.
		interval := time.Duration(s.source.Interval()) * time.Second
		timer := time.NewTimer(interval)

		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-s.kick:
			timer.Stop()
			s.runCycle()
		case <-timer.C:
			s.runCycle()
		}
	}
}

func (s *Scheduler) runCycle() {
	symbols := s.source.Symbols()
	period := s.source.ChartPeriod()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
	s.mu.Lock()
	s.state = StateFetching
	s.cycleCancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		if s.state == StateFetching {
			s.state = StateIdle
		}
		s.cycleCancel = nil
		s.mu.Unlock()
	}()

	var (
		mu     sync.Mutex
		quotes []models.Quote
		failed []string
		wg     sync.WaitGroup
		sem    = make(chan struct{}, s.cfg.Concurrency)
	)

	for _, sym := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			q, ok := s.fetchSymbol(ctx, sym, period)
			mu.Lock()
			if ok {
				quotes = append(quotes, *q)
			} else {
				failed = append(failed, sym)
			}
			mu.Unlock()
		}(sym)
	}
	wg.Wait()

	if s.stopped.Load() {
		return
	}

	sort.Strings(failed)
	if len(failed) > 0 {
		fmt.Printf("[SCHEDULER] Cycle done: %d fetched, %d failed (%v)\n",
			len(quotes), len(failed), failed)
	}

	if s.cfg.Recorder != nil && len(quotes) > 0 {
		rctx, rcancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.cfg.Recorder.RecordQuotes(rctx, quotes); err != nil {
			fmt.Printf("[ARCHIVE] Record failed: %v\n", err)
		}
		rcancel()
	}

	if s.cfg.OnQuotes != nil && len(quotes) > 0 {
		s.cfg.OnQuotes(quotes)
	}

	// One signal per cycle, never per symbol, so redraw frequency is
	// bounded regardless of watchlist size.
	select {
	case s.updates <- CycleResult{CompletedAt: time.Now(), Fetched: len(quotes), Failed: failed}:
	default:
	}
}

// fetchSymbol fetches one symbol's quote, and its history when the
// cached series is missing, for another period, or past the period's
// staleness window. A failure leaves the last good cached data in
// place and marks the symbol for the UI's stale indicator.
func (s *Scheduler) fetchSymbol(ctx context.Context, sym string, period models.ChartPeriod) (*models.Quote, bool) {
	q, err := s.provider.FetchQuote(ctx, sym)
	if err != nil {
		fmt.Printf("[SCHEDULER] %s: %v\n", sym, err)
		if !s.stopped.Load() {
			s.cache.MarkFailed(sym)
		}
		return nil, false
	}
	if s.stopped.Load() {
		return nil, false
	}
	s.cache.SetQuote(*q)

	if s.historyStale(sym, period) {
		h, err := s.provider.FetchHistory(ctx, sym, period)
		switch {
		case err != nil:
			fmt.Printf("[SCHEDULER] %s: %v\n", sym, err)
			if !s.stopped.Load() {
				s.cache.MarkFailed(sym)
			}
		case !s.stopped.Load():
			s.cache.SetHistory(*h)
		}
	}

	return q, true
}

func (s *Scheduler) historyStale(sym string, period models.ChartPeriod) bool {
	entry, ok := s.cache.Get(sym)
	if !ok || entry.History == nil {
		return true
	}
	if entry.History.Period != period {
		return true
	}
	return time.Since(entry.History.FetchedAt) > period.StalenessWindow()
}
