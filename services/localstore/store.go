package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/models"
	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store is a file-backed SQLite signal store used when no Postgres
// database is configured. It implements scanner.SignalStore and
// scanner.ScanArchiver.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or reuses) the SQLite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping local store: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		category TEXT NOT NULL,
		type TEXT,
		price REAL,
		target_price REAL,
		stop_loss REAL,
		strength INTEGER,
		reason TEXT,
		generated_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_category ON signals(symbol, category);

	CREATE TABLE IF NOT EXISTS scan_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		categories TEXT,
		started_at TIMESTAMP,
		duration_ms INTEGER,
		symbol_count INTEGER,
		outcome_count INTEGER,
		error_count INTEGER,
		signals_found INTEGER,
		signals_persisted INTEGER,
		timed_out INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create local store tables: %w", err)
	}
	return nil
}

// Persist stores one signal and returns its id.
func (s *Store) Persist(ctx context.Context, sig scanner.Signal) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (symbol, category, type, price, target_price, stop_loss, strength, reason, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Symbol, string(sig.Category), sig.Type, sig.Price, sig.TargetPrice,
		sig.StopLoss, sig.Strength, sig.Reason, sig.GeneratedAt)
	if err != nil {
		return 0, fmt.Errorf("persist signal %s/%s: %w", sig.Symbol, sig.Category, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// RecentSignals returns the latest signals, optionally filtered by
// category.
func (s *Store) RecentSignals(ctx context.Context, category string, limit int) ([]models.Signal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT id, symbol, category, type, price, target_price, stop_loss, strength, reason, generated_at
		  FROM signals`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY generated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		var (
			rec                 models.Signal
			price, target, stop float64
			generatedAt         time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Category, &rec.Type,
			&price, &target, &stop, &rec.Strength, &rec.Reason, &generatedAt); err != nil {
			return nil, err
		}
		rec.Price = decimal.NewFromFloat(price)
		rec.TargetPrice = decimal.NewFromFloat(target)
		rec.StopLoss = decimal.NewFromFloat(stop)
		rec.GeneratedAt = generatedAt
		signals = append(signals, rec)
	}
	return signals, rows.Err()
}

// ArchiveScan records a completed scan summary best-effort.
func (s *Store) ArchiveScan(ctx context.Context, result *scanner.ScanResult) {
	parts := make([]string, len(result.Categories))
	for i, c := range result.Categories {
		parts[i] = string(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_runs (categories, started_at, duration_ms, symbol_count, outcome_count, error_count, signals_found, signals_persisted, timed_out)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.Join(parts, ","), result.StartedAt, result.Duration.Milliseconds(),
		result.SymbolCount, result.OutcomeCount, result.ErrorCount,
		result.SignalsFound, result.SignalsPersisted, result.TimedOut)
	if err != nil {
		log.Printf("localstore: archive scan run failed: %v", err)
	}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
