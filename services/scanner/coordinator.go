package scanner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultScanTimeout bounds one whole scan across all symbols.
const DefaultScanTimeout = 5 * time.Minute

// ScanResult summarizes one completed (or abandoned) scan.
type ScanResult struct {
	Categories       []Category       `json:"categories"`
	StartedAt        time.Time        `json:"started_at"`
	Duration         time.Duration    `json:"duration"`
	SymbolCount      int              `json:"symbol_count"`
	OutcomeCount     int              `json:"outcome_count"`
	ErrorCount       int              `json:"error_count"`
	SignalsFound     int              `json:"signals_found"`
	SignalsPersisted int              `json:"signals_persisted"`
	PerCategory      map[Category]int `json:"per_category"`
	TimedOut         bool             `json:"timed_out"`
}

// UnifiedScanCoordinator drives a full scan over a category set: it
// resolves the symbol universe, fans out SymbolProcessor tasks bounded by
// the shared gate, aggregates signals per category, persists and notifies,
// and updates execution statistics exactly once per category per scan.
type UnifiedScanCoordinator struct {
	registry  *CategoryRegistry
	processor *SymbolProcessor
	store     SignalStore
	notifier  Notifier
	stats     *StatsTracker

	// Ready, when set, is consulted before launching symbol tasks so a
	// scan against unauthenticated collaborators fails fast instead of
	// failing per symbol. Archiver, when set, receives completed scan
	// summaries best-effort. Both are assigned at composition time,
	// before the scheduler starts.
	Ready    ReadinessCheck
	Archiver ScanArchiver

	scanTimeout time.Duration
	scanning    atomic.Bool

	mu   sync.Mutex
	last *ScanResult
}

// NewUnifiedScanCoordinator wires a coordinator. Stats updates happen only
// in its single aggregation step, so the tracker needs no extra locking
// discipline from callers.
func NewUnifiedScanCoordinator(registry *CategoryRegistry, processor *SymbolProcessor, store SignalStore, notifier Notifier, stats *StatsTracker, scanTimeout time.Duration) *UnifiedScanCoordinator {
	if scanTimeout <= 0 {
		scanTimeout = DefaultScanTimeout
	}
	return &UnifiedScanCoordinator{
		registry:    registry,
		processor:   processor,
		store:       store,
		notifier:    notifier,
		stats:       stats,
		scanTimeout: scanTimeout,
	}
}

// Run executes one scan for the given categories. If a scan is already in
// progress the request is rejected with ErrScanInProgress, never queued.
func (u *UnifiedScanCoordinator) Run(ctx context.Context, categories []Category) (*ScanResult, error) {
	categories = normalizeCategories(categories)
	if len(categories) == 0 {
		return nil, fmt.Errorf("no valid categories requested")
	}

	if !u.scanning.CompareAndSwap(false, true) {
		log.Printf("scanner: scan for %s skipped, another scan is in progress", joinCategories(categories))
		return nil, ErrScanInProgress
	}
	defer u.scanning.Store(false)

	start := time.Now()

	if u.Ready != nil {
		if err := u.Ready(); err != nil {
			err = fmt.Errorf("%w: %v", ErrNotReady, err)
			u.recordAll(categories, time.Since(start), err)
			log.Printf("scanner: scan aborted before launch: %v", err)
			return nil, err
		}
	}

	result := &ScanResult{
		Categories:  categories,
		StartedAt:   start,
		PerCategory: make(map[Category]int, len(categories)),
	}

	symbols := u.registry.SymbolsFor(categories)
	result.SymbolCount = len(symbols)
	log.Printf("scanner: scan started for %s, %d symbols", joinCategories(categories), len(symbols))

	sctx, cancel := context.WithTimeout(ctx, u.scanTimeout)
	defer cancel()

	outcomeCh := make(chan []AnalysisOutcome, len(symbols))
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wanted := intersectCategories(u.registry.CategoriesFor(symbol), categories)
		if len(wanted) == 0 {
			continue
		}
		wg.Add(1)
		go func(symbol string, wanted []Category) {
			defer wg.Done()
			outcomeCh <- u.processor.Process(sctx, symbol, wanted)
		}(symbol, wanted)
	}

	settled := make(chan struct{})
	go func() {
		wg.Wait()
		close(settled)
	}()

	select {
	case <-settled:
	case <-sctx.Done():
		// Fail-closed: partial results are discarded and every
		// requested category is recorded as a failed run.
		result.TimedOut = true
		result.Duration = time.Since(start)
		err := fmt.Errorf("scan timed out after %s", u.scanTimeout)
		u.recordAll(categories, result.Duration, err)
		u.finish(result)
		log.Printf("scanner: %v, %s abandoned", err, joinCategories(categories))
		return result, err
	}

	close(outcomeCh)
	byCategory := make(map[Category][]Signal, len(categories))
	for batch := range outcomeCh {
		for _, outcome := range batch {
			result.OutcomeCount++
			if outcome.Err != nil {
				result.ErrorCount++
				continue
			}
			if len(outcome.Signals) > 0 {
				byCategory[outcome.Category] = append(byCategory[outcome.Category], outcome.Signals...)
			}
		}
	}

	for category, signals := range byCategory {
		result.SignalsFound += len(signals)
		result.PerCategory[category] = len(signals)
		for _, sig := range signals {
			if _, err := u.store.Persist(sctx, sig); err != nil {
				log.Printf("scanner: persist %s/%s signal failed, skipping: %v", sig.Symbol, category, err)
				continue
			}
			result.SignalsPersisted++
		}
		u.notify(category, signals)
	}

	result.Duration = time.Since(start)
	u.recordAll(categories, result.Duration, nil)
	u.finish(result)

	log.Printf("scanner: scan completed in %s: %d symbols, %d outcomes, %d errors, %d signals (%d persisted)",
		result.Duration.Round(time.Millisecond), result.SymbolCount, result.OutcomeCount,
		result.ErrorCount, result.SignalsFound, result.SignalsPersisted)
	return result, nil
}

// TriggerScan starts a scan in the background. It reports rejection
// immediately when a scan is already running; Run re-checks the guard, so
// a racing trigger still cannot start a second concurrent scan.
func (u *UnifiedScanCoordinator) TriggerScan(categories []Category) error {
	if u.scanning.Load() {
		return ErrScanInProgress
	}
	go func() {
		if _, err := u.Run(context.Background(), categories); err != nil {
			log.Printf("scanner: triggered scan failed: %v", err)
		}
	}()
	return nil
}

// Running reports whether a scan is currently in progress.
func (u *UnifiedScanCoordinator) Running() bool {
	return u.scanning.Load()
}

// LastResult returns the most recent scan summary, or nil before the
// first scan.
func (u *UnifiedScanCoordinator) LastResult() *ScanResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

func (u *UnifiedScanCoordinator) finish(result *ScanResult) {
	u.mu.Lock()
	u.last = result
	u.mu.Unlock()

	if u.Archiver != nil {
		u.Archiver.ArchiveScan(context.Background(), result)
	}
}

func (u *UnifiedScanCoordinator) recordAll(categories []Category, duration time.Duration, err error) {
	for _, category := range categories {
		u.stats.Record(category, duration, err)
	}
}

// notify sends one grouped best-effort message per category with signals.
func (u *UnifiedScanCoordinator) notify(category Category, signals []Signal) {
	if u.notifier == nil || len(signals) == 0 {
		return
	}

	const maxLines = 10
	var b strings.Builder
	fmt.Fprintf(&b, "%s scan: %d signal(s)", category, len(signals))
	for i, sig := range signals {
		if i == maxLines {
			fmt.Fprintf(&b, "\n... and %d more", len(signals)-maxLines)
			break
		}
		fmt.Fprintf(&b, "\n%s %s @ %.2f (%s)", sig.Symbol, sig.Type, sig.Price, sig.Reason)
	}
	u.notifier.Notify(b.String())
}

func normalizeCategories(categories []Category) []Category {
	seen := make(map[Category]bool, len(categories))
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func intersectCategories(have, requested []Category) []Category {
	wanted := make([]Category, 0, len(have))
	for _, c := range have {
		for _, r := range requested {
			if c == r {
				wanted = append(wanted, c)
				break
			}
		}
	}
	return wanted
}

func joinCategories(categories []Category) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
