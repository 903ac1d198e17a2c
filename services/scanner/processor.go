package scanner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultAnalysisTimeout bounds one analysis call for one category.
const DefaultAnalysisTimeout = 30 * time.Second

// defaultLookbacks is how many candles to request per timeframe.
var defaultLookbacks = map[Timeframe]int{
	TimeframeDaily:  250,
	TimeframeHourly: 120,
	Timeframe15Min:  100,
}

// SymbolProcessor processes one symbol end to end: it ensures cached data
// is fresh (fetch-on-miss), then runs analysis for every category that
// needs the symbol, reusing the single fetch across all of them. That
// reuse turns an O(symbols x categories) external-call cost into
// O(symbols).
type SymbolProcessor struct {
	cache           *SymbolDataCache
	gate            *ConcurrencyGate
	fetcher         CandleFetcher
	analyzer        Analyzer
	analysisTimeout time.Duration
	lookbacks       map[Timeframe]int
}

// NewSymbolProcessor wires a processor over the shared cache and gate.
func NewSymbolProcessor(cache *SymbolDataCache, gate *ConcurrencyGate, fetcher CandleFetcher, analyzer Analyzer, analysisTimeout time.Duration) *SymbolProcessor {
	if analysisTimeout <= 0 {
		analysisTimeout = DefaultAnalysisTimeout
	}
	return &SymbolProcessor{
		cache:           cache,
		gate:            gate,
		fetcher:         fetcher,
		analyzer:        analyzer,
		analysisTimeout: analysisTimeout,
		lookbacks:       defaultLookbacks,
	}
}

// Process returns one outcome per category. A data failure for the symbol
// is logged and yields no outcomes; it never aborts the scan.
func (p *SymbolProcessor) Process(ctx context.Context, symbol string, categories []Category) []AnalysisOutcome {
	if len(categories) == 0 {
		return nil
	}

	if err := p.gate.Acquire(ctx); err != nil {
		log.Printf("scanner: %s skipped, gate acquire: %v", symbol, err)
		return nil
	}
	defer p.gate.Release()

	data, err := p.cache.GetOrRefresh(ctx, symbol, p.fetchSymbolData)
	if err != nil {
		log.Printf("scanner: %s skipped, data refresh failed: %v", symbol, err)
		return nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make([]AnalysisOutcome, 0, len(categories))
	)
	for _, category := range categories {
		wg.Add(1)
		go func(category Category) {
			defer wg.Done()
			outcome := p.analyzeOne(ctx, symbol, category, data)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}(category)
	}
	wg.Wait()

	// Ill-formed outcomes are dropped, never aggregated.
	wellFormed := outcomes[:0]
	for _, o := range outcomes {
		if o.wellFormed() {
			wellFormed = append(wellFormed, o)
		}
	}
	return wellFormed
}

// analyzeOne runs a single category's strategy under the per-call timeout.
// A timeout becomes an errored outcome, never a propagated failure.
func (p *SymbolProcessor) analyzeOne(ctx context.Context, symbol string, category Category, data *CachedSymbolData) AnalysisOutcome {
	start := time.Now()

	actx, cancel := context.WithTimeout(ctx, p.analysisTimeout)
	defer cancel()

	type result struct {
		signals []Signal
		err     error
	}
	done := make(chan result, 1)
	go func() {
		signals, err := p.analyzer.Analyze(actx, symbol, category, data)
		done <- result{signals, err}
	}()

	outcome := AnalysisOutcome{Symbol: data.Symbol, Category: category}
	select {
	case r := <-done:
		outcome.Signals = r.signals
		outcome.Err = r.err
	case <-actx.Done():
		outcome.Err = ErrAnalysisTimeout
		log.Printf("scanner: analysis of %s/%s timed out after %s", symbol, category, p.analysisTimeout)
	}
	outcome.Duration = time.Since(start)
	return outcome
}

// fetchSymbolData fetches every required timeframe in parallel. Secondary
// timeframes may fail individually; the primary one must succeed with at
// least one candle or the whole refresh fails.
func (p *SymbolProcessor) fetchSymbolData(ctx context.Context, symbol string) (map[Timeframe][]Candle, error) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		series = make(map[Timeframe][]Candle, len(p.lookbacks))
		errs   = make(map[Timeframe]error, len(p.lookbacks))
	)
	for tf, lookback := range p.lookbacks {
		wg.Add(1)
		go func(tf Timeframe, lookback int) {
			defer wg.Done()
			candles, err := p.fetcher.FetchCandles(ctx, symbol, tf, lookback)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[tf] = err
				return
			}
			series[tf] = candles
		}(tf, lookback)
	}
	wg.Wait()

	if err, failed := errs[PrimaryTimeframe]; failed {
		return nil, fmt.Errorf("primary timeframe %s: %w", PrimaryTimeframe, err)
	}
	if len(series[PrimaryTimeframe]) == 0 {
		return nil, ErrNoData
	}
	for tf, err := range errs {
		log.Printf("scanner: %s timeframe %s fetch failed, continuing without it: %v", symbol, tf, err)
	}
	return series, nil
}
