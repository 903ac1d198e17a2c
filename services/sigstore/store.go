package sigstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/kmoganti/stock-trading-system-sub001/models"
	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store persists signals and scan runs to the relational database. It
// implements scanner.SignalStore and scanner.ScanArchiver.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over an initialized gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Persist stores one signal and returns its id.
func (s *Store) Persist(ctx context.Context, sig scanner.Signal) (uint, error) {
	rec := models.Signal{
		Symbol:      sig.Symbol,
		Category:    string(sig.Category),
		Type:        sig.Type,
		Price:       decimal.NewFromFloat(sig.Price),
		TargetPrice: decimal.NewFromFloat(sig.TargetPrice),
		StopLoss:    decimal.NewFromFloat(sig.StopLoss),
		Strength:    sig.Strength,
		Reason:      sig.Reason,
		GeneratedAt: sig.GeneratedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("persist signal %s/%s: %w", sig.Symbol, sig.Category, err)
	}
	return rec.ID, nil
}

// RecentSignals returns the latest signals, optionally filtered by
// category.
func (s *Store) RecentSignals(ctx context.Context, category string, limit int) ([]models.Signal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Signal{}).Order("generated_at DESC").Limit(limit)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var signals []models.Signal
	if err := query.Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}

// ArchiveScan records a completed scan summary. Failures are logged by
// gorm and otherwise swallowed; archiving never affects a scan outcome.
func (s *Store) ArchiveScan(ctx context.Context, result *scanner.ScanResult) {
	run := models.ScanRun{
		Categories:       joinCategories(result.Categories),
		StartedAt:        result.StartedAt,
		DurationMs:       result.Duration.Milliseconds(),
		SymbolCount:      result.SymbolCount,
		OutcomeCount:     result.OutcomeCount,
		ErrorCount:       result.ErrorCount,
		SignalsFound:     result.SignalsFound,
		SignalsPersisted: result.SignalsPersisted,
		TimedOut:         result.TimedOut,
	}
	s.db.WithContext(ctx).Create(&run)
}

// RecentScanRuns returns the latest scan run records.
func (s *Store) RecentScanRuns(ctx context.Context, limit int) ([]models.ScanRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	var runs []models.ScanRun
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

func joinCategories(categories []scanner.Category) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
