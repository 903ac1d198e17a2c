package archive

import (
	"context"
	"log"
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDatabase      = "stock_scanner"
	scanRunsCollection = "scan_runs"
	connectTimeout     = 10 * time.Second
	writeTimeout       = 10 * time.Second
)

// MongoArchive mirrors scan run summaries to MongoDB. It is optional
// plumbing: when the URI is unset or the connection fails, the scanner
// simply runs without it.
type MongoArchive struct {
	client   *mongo.Client
	database *mongo.Database
}

// scanRunDocument is the archived form of one scan.
type scanRunDocument struct {
	Categories       []string  `bson:"categories"`
	StartedAt        time.Time `bson:"started_at"`
	DurationMs       int64     `bson:"duration_ms"`
	SymbolCount      int       `bson:"symbol_count"`
	OutcomeCount     int       `bson:"outcome_count"`
	ErrorCount       int       `bson:"error_count"`
	SignalsFound     int       `bson:"signals_found"`
	SignalsPersisted int       `bson:"signals_persisted"`
	TimedOut         bool      `bson:"timed_out"`
	ArchivedAt       time.Time `bson:"archived_at"`
}

// NewMongoArchive connects to MongoDB and verifies the connection.
func NewMongoArchive(uri string) (*MongoArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &MongoArchive{
		client:   client,
		database: client.Database(mongoDatabase),
	}, nil
}

// ArchiveScan inserts the scan summary in the background; failures are
// logged and swallowed.
func (m *MongoArchive) ArchiveScan(_ context.Context, result *scanner.ScanResult) {
	doc := scanRunDocument{
		Categories:       make([]string, len(result.Categories)),
		StartedAt:        result.StartedAt,
		DurationMs:       result.Duration.Milliseconds(),
		SymbolCount:      result.SymbolCount,
		OutcomeCount:     result.OutcomeCount,
		ErrorCount:       result.ErrorCount,
		SignalsFound:     result.SignalsFound,
		SignalsPersisted: result.SignalsPersisted,
		TimedOut:         result.TimedOut,
		ArchivedAt:       time.Now(),
	}
	for i, c := range result.Categories {
		doc.Categories[i] = string(c)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if _, err := m.database.Collection(scanRunsCollection).InsertOne(ctx, doc); err != nil {
			log.Printf("archive: mongo insert failed: %v", err)
		}
	}()
}

// Close disconnects from MongoDB.
func (m *MongoArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
