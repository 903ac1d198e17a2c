package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeStore records persisted signals; optionally fails for one symbol.
type fakeStore struct {
	mu         sync.Mutex
	persisted  []Signal
	failSymbol string
}

func (s *fakeStore) Persist(ctx context.Context, sig Signal) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig.Symbol == s.failSymbol {
		return 0, errors.New("insert failed")
	}
	s.persisted = append(s.persisted, sig)
	return uint(len(s.persisted)), nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persisted)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

type fakeArchiver struct{ calls int32 }

func (a *fakeArchiver) ArchiveScan(ctx context.Context, result *ScanResult) {
	atomic.AddInt32(&a.calls, 1)
}

type coordinatorFixture struct {
	coordinator *UnifiedScanCoordinator
	fetcher     *fakeFetcher
	analyzer    *fakeAnalyzer
	store       *fakeStore
	notifier    *fakeNotifier
	stats       *StatsTracker
}

func newCoordinatorFixture(scanTimeout time.Duration) *coordinatorFixture {
	registry := NewCategoryRegistry([]CategoryProfile{
		{Category: CategoryDayTrading, Symbols: []string{"RELIANCE", "TCS"}},
		{Category: CategoryShortSelling, Symbols: []string{"RELIANCE"}},
	})
	fetcher := &fakeFetcher{}
	analyzer := &fakeAnalyzer{}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	stats := NewStatsTracker()

	cache := NewSymbolDataCache(time.Minute)
	gate := NewConcurrencyGate(4)
	processor := NewSymbolProcessor(cache, gate, fetcher, analyzer, time.Second)
	coordinator := NewUnifiedScanCoordinator(registry, processor, store, notifier, stats, scanTimeout)

	return &coordinatorFixture{
		coordinator: coordinator,
		fetcher:     fetcher,
		analyzer:    analyzer,
		store:       store,
		notifier:    notifier,
		stats:       stats,
	}
}

func TestRunHappyPath(t *testing.T) {
	f := newCoordinatorFixture(time.Minute)
	archiver := &fakeArchiver{}
	f.coordinator.Archiver = archiver

	categories := []Category{CategoryDayTrading, CategoryShortSelling}
	result, err := f.coordinator.Run(context.Background(), categories)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// RELIANCE belongs to both categories, TCS to one: 2 symbols, 3
	// (symbol, category) outcomes, but only 2 fetches.
	if result.SymbolCount != 2 {
		t.Fatalf("SymbolCount = %d, want 2", result.SymbolCount)
	}
	if result.OutcomeCount != 3 {
		t.Fatalf("OutcomeCount = %d, want 3", result.OutcomeCount)
	}
	if got := atomic.LoadInt32(&f.fetcher.dailyCalls); got != 2 {
		t.Fatalf("daily fetches = %d, want 2", got)
	}
	if result.SignalsFound != 3 || result.SignalsPersisted != 3 {
		t.Fatalf("signals found/persisted = %d/%d, want 3/3", result.SignalsFound, result.SignalsPersisted)
	}
	if f.store.count() != 3 {
		t.Fatalf("store holds %d signals, want 3", f.store.count())
	}
	if result.PerCategory[CategoryDayTrading] != 2 || result.PerCategory[CategoryShortSelling] != 1 {
		t.Fatalf("PerCategory = %v", result.PerCategory)
	}

	snap := f.stats.Snapshot()
	for _, c := range categories {
		s := snap[c]
		if s.TotalRuns != 1 || s.SuccessfulRuns != 1 {
			t.Fatalf("stats for %s = %+v", c, s)
		}
	}

	if got := atomic.LoadInt32(&archiver.calls); got != 1 {
		t.Fatalf("archiver called %d times, want 1", got)
	}
	if f.coordinator.LastResult() != result {
		t.Fatal("LastResult does not return the completed scan")
	}
	if messages := f.notifier.all(); len(messages) != 2 {
		t.Fatalf("got %d notifications, want one per category with signals: %v", len(messages), messages)
	}
}

func TestRunRejectsConcurrentScan(t *testing.T) {
	f := newCoordinatorFixture(time.Minute)
	f.analyzer.delay = 100 * time.Millisecond

	errCh := make(chan error, 1)
	go func() {
		_, err := f.coordinator.Run(context.Background(), []Category{CategoryDayTrading})
		errCh <- err
	}()

	deadline := time.After(time.Second)
	for !f.coordinator.Running() {
		select {
		case <-deadline:
			t.Fatal("first scan never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := f.coordinator.Run(context.Background(), []Category{CategoryShortSelling}); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("second Run = %v, want ErrScanInProgress", err)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if f.coordinator.Running() {
		t.Fatal("Running() still true after scan finished")
	}
}

func TestRunFailsClosedWhenNotReady(t *testing.T) {
	f := newCoordinatorFixture(time.Minute)
	f.coordinator.Ready = func() error { return errors.New("no broker session") }

	_, err := f.coordinator.Run(context.Background(), []Category{CategoryDayTrading, CategoryShortSelling})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("Run = %v, want ErrNotReady", err)
	}
	if got := atomic.LoadInt32(&f.fetcher.calls); got != 0 {
		t.Fatalf("fetcher called %d times on a not-ready scan", got)
	}

	snap := f.stats.Snapshot()
	for _, c := range []Category{CategoryDayTrading, CategoryShortSelling} {
		if s := snap[c]; s.FailedRuns != 1 {
			t.Fatalf("stats for %s = %+v, want one failed run", c, s)
		}
	}
}

func TestRunPersistFailureSkipsSignal(t *testing.T) {
	f := newCoordinatorFixture(time.Minute)
	f.store.failSymbol = "TCS"

	result, err := f.coordinator.Run(context.Background(), []Category{CategoryDayTrading})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SignalsFound != 2 || result.SignalsPersisted != 1 {
		t.Fatalf("found/persisted = %d/%d, want 2/1", result.SignalsFound, result.SignalsPersisted)
	}
	if s := f.stats.Snapshot()[CategoryDayTrading]; s.SuccessfulRuns != 1 {
		t.Fatalf("persist failure failed the whole scan: %+v", s)
	}
}

// faultyFetcher fails the daily fetch for the listed symbols and serves
// everything else normally.
type faultyFetcher struct {
	failSymbols map[string]bool
}

func (f *faultyFetcher) FetchCandles(ctx context.Context, symbol string, tf Timeframe, lookback int) ([]Candle, error) {
	if f.failSymbols[symbol] && tf == TimeframeDaily {
		return nil, errors.New("connection reset by peer")
	}
	return dailySeries(lookback)[TimeframeDaily], nil
}

func TestRunIsolatesSymbolFetchFailure(t *testing.T) {
	registry := NewCategoryRegistry([]CategoryProfile{
		{Category: CategoryDayTrading, Symbols: []string{"RELIANCE", "TCS"}},
		{Category: CategoryShortSelling, Symbols: []string{"RELIANCE"}},
	})
	fetcher := &faultyFetcher{failSymbols: map[string]bool{"RELIANCE": true}}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	stats := NewStatsTracker()

	cache := NewSymbolDataCache(time.Minute)
	gate := NewConcurrencyGate(4)
	processor := NewSymbolProcessor(cache, gate, fetcher, &fakeAnalyzer{}, time.Second)
	coordinator := NewUnifiedScanCoordinator(registry, processor, store, notifier, stats, time.Minute)

	categories := []Category{CategoryDayTrading, CategoryShortSelling}
	result, err := coordinator.Run(context.Background(), categories)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// RELIANCE's fetch failed, so only TCS's day_trading outcome survives.
	if result.SymbolCount != 2 {
		t.Fatalf("SymbolCount = %d, want 2", result.SymbolCount)
	}
	if result.OutcomeCount != 1 {
		t.Fatalf("OutcomeCount = %d, want 1", result.OutcomeCount)
	}
	if result.SignalsFound != 1 || result.SignalsPersisted != 1 {
		t.Fatalf("found/persisted = %d/%d, want 1/1", result.SignalsFound, result.SignalsPersisted)
	}
	if store.count() != 1 {
		t.Fatalf("store holds %d signals, want 1", store.count())
	}
	if got := result.PerCategory[CategoryDayTrading]; got != 1 {
		t.Fatalf("PerCategory[day_trading] = %d, want 1", got)
	}
	if _, ok := result.PerCategory[CategoryShortSelling]; ok {
		t.Fatal("short_selling reported signals from a failed symbol")
	}

	// A per-symbol failure never fails the scan's category stats.
	snap := stats.Snapshot()
	for _, c := range categories {
		if s := snap[c]; s.TotalRuns != 1 || s.SuccessfulRuns != 1 {
			t.Fatalf("stats for %s = %+v, want one successful run", c, s)
		}
	}

	messages := notifier.all()
	if len(messages) != 1 || !strings.Contains(messages[0], "TCS") {
		t.Fatalf("notifications = %v, want one for TCS", messages)
	}
}

func TestRunRejectsEmptyCategorySet(t *testing.T) {
	f := newCoordinatorFixture(time.Minute)
	if _, err := f.coordinator.Run(context.Background(), []Category{"bogus"}); err == nil {
		t.Fatal("Run accepted an invalid category set")
	}
}

func TestRunTimesOutFailClosed(t *testing.T) {
	registry := NewCategoryRegistry([]CategoryProfile{
		{Category: CategoryDayTrading, Symbols: []string{"RELIANCE"}},
	})
	stats := NewStatsTracker()
	store := &fakeStore{}

	// The fetch ignores cancellation so the scan deadline fires first.
	fetcher := slowFetcher(300 * time.Millisecond)
	cache := NewSymbolDataCache(time.Minute)
	gate := NewConcurrencyGate(4)
	processor := NewSymbolProcessor(cache, gate, fetcher, &fakeAnalyzer{}, time.Second)
	coordinator := NewUnifiedScanCoordinator(registry, processor, store, nil, stats, 30*time.Millisecond)

	result, err := coordinator.Run(context.Background(), []Category{CategoryDayTrading})
	if err == nil {
		t.Fatal("Run returned nil error on timeout")
	}
	if result == nil || !result.TimedOut {
		t.Fatalf("result = %+v, want TimedOut", result)
	}
	if store.count() != 0 {
		t.Fatalf("timed-out scan persisted %d signals", store.count())
	}
	if s := stats.Snapshot()[CategoryDayTrading]; s.FailedRuns != 1 {
		t.Fatalf("stats after timeout = %+v, want one failed run", s)
	}
}

type slowFetcher time.Duration

func (d slowFetcher) FetchCandles(ctx context.Context, symbol string, tf Timeframe, lookback int) ([]Candle, error) {
	time.Sleep(time.Duration(d))
	return dailySeries(lookback)[TimeframeDaily], nil
}

func TestNotifyMessageShape(t *testing.T) {
	f := newCoordinatorFixture(time.Minute)

	if _, err := f.coordinator.Run(context.Background(), []Category{CategoryShortSelling}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	messages := f.notifier.all()
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	msg := messages[0]
	if !strings.Contains(msg, "short_selling scan: 1 signal(s)") {
		t.Fatalf("message header missing: %q", msg)
	}
	if !strings.Contains(msg, "RELIANCE BUY @ 101.00") {
		t.Fatalf("signal line missing: %q", msg)
	}
}
