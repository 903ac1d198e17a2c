package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Signal is a persisted trading signal produced by a scan.
type Signal struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Symbol      string          `gorm:"index:idx_symbol_category;not null" json:"symbol"`
	Category    string          `gorm:"index:idx_symbol_category;not null" json:"category"`
	Type        string          `json:"type"` // BUY, SELL, SHORT
	Price       decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	TargetPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"target_price"`
	StopLoss    decimal.Decimal `gorm:"type:decimal(15,2)" json:"stop_loss"`
	Strength    int             `json:"strength"` // 0-100
	Reason      string          `json:"reason"`
	GeneratedAt time.Time       `gorm:"index" json:"generated_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ScanRun records one completed scan for auditing and the dashboard's
// history view.
type ScanRun struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Categories       string    `json:"categories"` // comma-separated
	StartedAt        time.Time `gorm:"index" json:"started_at"`
	DurationMs       int64     `json:"duration_ms"`
	SymbolCount      int       `json:"symbol_count"`
	OutcomeCount     int       `json:"outcome_count"`
	ErrorCount       int       `json:"error_count"`
	SignalsFound     int       `json:"signals_found"`
	SignalsPersisted int       `json:"signals_persisted"`
	TimedOut         bool      `json:"timed_out"`
	CreatedAt        time.Time `json:"created_at"`
}

// MigrateScannerModels runs database migrations for scanner-related models.
func MigrateScannerModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Signal{},
		&ScanRun{},
	)
}
