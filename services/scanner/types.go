package scanner

import (
	"context"
	"errors"
	"time"
)

// Timeframe identifies a candle resolution requested from the broker.
type Timeframe string

const (
	TimeframeDaily  Timeframe = "1D"
	TimeframeHourly Timeframe = "1H"
	Timeframe15Min  Timeframe = "15m"
)

// PrimaryTimeframe is the resolution every analysis strategy depends on.
// A refresh that cannot produce it is treated as a failed fetch.
const PrimaryTimeframe = TimeframeDaily

// Candle is one OHLCV bar, ordered ascending by timestamp within a series.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Signal is a trading signal produced by an analysis strategy.
type Signal struct {
	Symbol      string    `json:"symbol"`
	Category    Category  `json:"category"`
	Type        string    `json:"type"` // BUY, SELL, SHORT
	Price       float64   `json:"price"`
	TargetPrice float64   `json:"target_price,omitempty"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
	Strength    int       `json:"strength"` // 0-100
	Reason      string    `json:"reason"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AnalysisOutcome is the result of one (symbol, category) analysis call.
// Immutable after creation; errors become data here, never panics.
type AnalysisOutcome struct {
	Symbol   string        `json:"symbol"`
	Category Category      `json:"category"`
	Signals  []Signal      `json:"signals"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

func (o AnalysisOutcome) wellFormed() bool {
	return o.Symbol != "" && o.Category.Valid()
}

// CandleFetcher fetches one candle series from the broker.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, lookback int) ([]Candle, error)
}

// Analyzer evaluates one category's strategy over already-fetched data.
// Implementations must be pure functions of the dataset: no network I/O,
// or the fetch-once guarantee is lost.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, category Category, data *CachedSymbolData) ([]Signal, error)
}

// SignalStore persists generated signals.
type SignalStore interface {
	Persist(ctx context.Context, sig Signal) (uint, error)
}

// Notifier delivers a message best-effort. Implementations must never
// block the caller; failures are swallowed.
type Notifier interface {
	Notify(message string)
}

// ScanArchiver records a completed scan summary best-effort.
type ScanArchiver interface {
	ArchiveScan(ctx context.Context, result *ScanResult)
}

// ReadinessCheck reports whether collaborators are ready to serve a scan.
type ReadinessCheck func() error

var (
	// ErrScanInProgress is returned when a scan is requested while
	// another one is still running.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrNotReady is returned when collaborators are not initialized,
	// e.g. the broker session is not authenticated.
	ErrNotReady = errors.New("scanner not ready")

	// ErrNoData marks a refresh that returned nothing for the primary
	// timeframe.
	ErrNoData = errors.New("no candle data for primary timeframe")

	// ErrAnalysisTimeout marks an analysis call that exceeded its
	// per-call deadline.
	ErrAnalysisTimeout = errors.New("analysis timeout")
)
