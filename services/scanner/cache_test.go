package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func dailySeries(n int) map[Timeframe][]Candle {
	candles := make([]Candle, n)
	base := time.Date(2025, 1, 1, 9, 15, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      100,
			High:      102,
			Low:       99,
			Close:     101,
			Volume:    1000,
		}
	}
	return map[Timeframe][]Candle{TimeframeDaily: candles}
}

func countingFetch(calls *int32, series map[Timeframe][]Candle, err error) FetchFunc {
	return func(ctx context.Context, symbol string) (map[Timeframe][]Candle, error) {
		atomic.AddInt32(calls, 1)
		if err != nil {
			return nil, err
		}
		return series, nil
	}
}

func TestGetOrRefreshFetchesOnce(t *testing.T) {
	cache := NewSymbolDataCache(time.Minute)
	var calls int32
	fetch := countingFetch(&calls, dailySeries(10), nil)

	for i := 0; i < 3; i++ {
		data, err := cache.GetOrRefresh(context.Background(), "reliance", fetch)
		if err != nil {
			t.Fatalf("GetOrRefresh: %v", err)
		}
		if data.Symbol != "RELIANCE" {
			t.Fatalf("symbol not normalized: %q", data.Symbol)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("fetch called %d times, want 1", got)
	}
}

func TestGetOrRefreshExpiry(t *testing.T) {
	cache := NewSymbolDataCache(20 * time.Millisecond)
	var calls int32
	fetch := countingFetch(&calls, dailySeries(10), nil)

	if _, err := cache.GetOrRefresh(context.Background(), "TCS", fetch); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := cache.GetOrRefresh(context.Background(), "TCS", fetch); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("fetch called %d times after expiry, want 2", got)
	}
}

func TestGetOrRefreshFailureLeavesNoEntry(t *testing.T) {
	cache := NewSymbolDataCache(time.Minute)
	boom := errors.New("broker down")
	var failCalls int32

	_, err := cache.GetOrRefresh(context.Background(), "INFY", countingFetch(&failCalls, nil, boom))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if stats := cache.Stats(); stats.Count != 0 {
		t.Fatalf("failed fetch stored an entry: %+v", stats)
	}

	var okCalls int32
	if _, err := cache.GetOrRefresh(context.Background(), "INFY", countingFetch(&okCalls, dailySeries(5), nil)); err != nil {
		t.Fatalf("recovery refresh: %v", err)
	}
	if okCalls != 1 {
		t.Fatalf("recovery fetch called %d times, want 1", okCalls)
	}
}

func TestGetOrRefreshRejectsEmptyPrimary(t *testing.T) {
	cache := NewSymbolDataCache(time.Minute)
	fetch := func(ctx context.Context, symbol string) (map[Timeframe][]Candle, error) {
		return map[Timeframe][]Candle{TimeframeHourly: dailySeries(5)[TimeframeDaily]}, nil
	}

	_, err := cache.GetOrRefresh(context.Background(), "HDFC", fetch)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestConcurrentRefreshSingleFetch(t *testing.T) {
	cache := NewSymbolDataCache(time.Minute)
	var calls int32
	fetch := func(ctx context.Context, symbol string) (map[Timeframe][]Candle, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return dailySeries(10), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrRefresh(context.Background(), "SBIN", fetch); err != nil {
				t.Errorf("GetOrRefresh: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("concurrent callers triggered %d fetches, want 1", got)
	}
}

func TestClearForcesRefetch(t *testing.T) {
	cache := NewSymbolDataCache(time.Minute)
	var calls int32
	fetch := countingFetch(&calls, dailySeries(10), nil)

	for _, symbol := range []string{"RELIANCE", "TCS", "INFY"} {
		if _, err := cache.GetOrRefresh(context.Background(), symbol, fetch); err != nil {
			t.Fatalf("refresh %s: %v", symbol, err)
		}
	}
	if cleared := cache.Clear(); cleared != 3 {
		t.Fatalf("Clear() = %d, want 3", cleared)
	}
	if stats := cache.Stats(); stats.Count != 0 {
		t.Fatalf("entries remain after clear: %+v", stats)
	}

	if _, err := cache.GetOrRefresh(context.Background(), "RELIANCE", fetch); err != nil {
		t.Fatalf("refetch after clear: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("fetch called %d times, want 4", got)
	}
}

func TestStatsCountsValidEntries(t *testing.T) {
	cache := NewSymbolDataCache(25 * time.Millisecond)
	var calls int32
	fetch := countingFetch(&calls, dailySeries(10), nil)

	if _, err := cache.GetOrRefresh(context.Background(), "OLD", fetch); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := cache.GetOrRefresh(context.Background(), "FRESH", fetch); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	stats := cache.Stats()
	if stats.Count != 2 || stats.ValidCount != 1 {
		t.Fatalf("stats = %+v, want count 2 valid 1", stats)
	}
	want := fmt.Sprintf("%v", []string{"FRESH", "OLD"})
	if got := fmt.Sprintf("%v", stats.Symbols); got != want {
		t.Fatalf("symbols = %s, want %s", got, want)
	}
}
