package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched dataset stays valid.
const DefaultCacheTTL = 30 * time.Minute

// CachedSymbolData holds the multi-timeframe candle series fetched for one
// symbol. Entries are replaced wholesale on refresh, never mutated in place.
type CachedSymbolData struct {
	Symbol    string                 `json:"symbol"`
	Series    map[Timeframe][]Candle `json:"series"`
	FetchedAt time.Time              `json:"fetched_at"`
	TTL       time.Duration          `json:"ttl"`
}

// Valid reports whether the entry may be served to an analysis call.
func (d *CachedSymbolData) Valid(now time.Time) bool {
	if d == nil || d.FetchedAt.IsZero() || len(d.Series) == 0 {
		return false
	}
	if len(d.Series[PrimaryTimeframe]) == 0 {
		return false
	}
	return now.Sub(d.FetchedAt) < d.TTL
}

// FetchFunc fetches all required timeframes for one symbol.
type FetchFunc func(ctx context.Context, symbol string) (map[Timeframe][]Candle, error)

// CacheStats is a read-only snapshot of the cache contents.
type CacheStats struct {
	Count      int      `json:"count"`
	ValidCount int      `json:"valid_count"`
	Symbols    []string `json:"symbols"`
}

// SymbolDataCache caches per-symbol candle data with a validity TTL.
// Concurrent refreshes for the same symbol serialize on a per-symbol lock
// so only one fetch happens and the rest observe the refreshed entry.
type SymbolDataCache struct {
	mu      sync.RWMutex
	entries map[string]*CachedSymbolData
	locks   map[string]*sync.Mutex
	ttl     time.Duration
}

// NewSymbolDataCache creates an empty cache with the given TTL.
func NewSymbolDataCache(ttl time.Duration) *SymbolDataCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SymbolDataCache{
		entries: make(map[string]*CachedSymbolData),
		locks:   make(map[string]*sync.Mutex),
		ttl:     ttl,
	}
}

// GetOrRefresh returns the cached entry if still valid, otherwise calls
// fetch and stores the result. A failed fetch leaves the prior entry,
// possibly stale, untouched: no cache poisoning with partial data.
func (c *SymbolDataCache) GetOrRefresh(ctx context.Context, symbol string, fetch FetchFunc) (*CachedSymbolData, error) {
	symbol = strings.ToUpper(symbol)

	if d := c.lookup(symbol); d.Valid(time.Now()) {
		return d, nil
	}

	lock := c.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if d := c.lookup(symbol); d.Valid(time.Now()) {
		return d, nil
	}

	series, err := fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", symbol, err)
	}
	if len(series[PrimaryTimeframe]) == 0 {
		return nil, fmt.Errorf("refresh %s: %w", symbol, ErrNoData)
	}

	// Timestamp at completion so TTL measures data freshness, not
	// request latency.
	entry := &CachedSymbolData{
		Symbol:    symbol,
		Series:    series,
		FetchedAt: time.Now(),
		TTL:       c.ttl,
	}

	c.mu.Lock()
	c.entries[symbol] = entry
	c.mu.Unlock()

	return entry, nil
}

// Stats returns a snapshot of the cache; safe to call concurrently with
// refreshes.
func (c *SymbolDataCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	stats := CacheStats{
		Count:   len(c.entries),
		Symbols: make([]string, 0, len(c.entries)),
	}
	for symbol, entry := range c.entries {
		stats.Symbols = append(stats.Symbols, symbol)
		if entry.Valid(now) {
			stats.ValidCount++
		}
	}
	sort.Strings(stats.Symbols)
	return stats
}

// Clear drops all entries and returns how many were removed.
func (c *SymbolDataCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cleared := len(c.entries)
	c.entries = make(map[string]*CachedSymbolData)
	return cleared
}

func (c *SymbolDataCache) lookup(symbol string) *CachedSymbolData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[symbol]
}

func (c *SymbolDataCache) symbolLock(symbol string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[symbol] = lock
	}
	return lock
}
