package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rickgao/listing-watch/internal/model"
)

// DetectionRecord is a detection row.
type DetectionRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	Source     string `gorm:"index"`
	Title      string
	Href       string
	Symbols    string    // Comma separated
	DetectedAt time.Time `gorm:"index"`
}

func (DetectionRecord) TableName() string { return "detections" }

// OutcomeRecord is a dispatch outcome row.
type OutcomeRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Kind        string `gorm:"index"`
	Symbol      string `gorm:"index"`
	Reason      string
	OrderID     string
	Market      string
	QuoteSpent  string
	ExecutedQty string
	OrderStatus string
	RecordedAt  time.Time
}

func (OutcomeRecord) TableName() string { return "outcomes" }

// SQLite writes journal rows synchronously through gorm.
type SQLite struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := InitTables(db); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db, logger: logger.With("journal", "sqlite", "path", path)}, nil
}

// InitTables migrates the journal tables.
func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&DetectionRecord{}, &OutcomeRecord{})
}

// RecordDetection inserts d, ignoring a repeated ID.
func (s *SQLite) RecordDetection(ctx context.Context, d model.Detection) error {
	rec := DetectionRecord{
		ID:         d.ID.String(),
		Source:     d.Source,
		Title:      d.Title,
		Href:       d.Href,
		Symbols:    strings.Join(d.Symbols, ","),
		DetectedAt: d.DetectedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// RecordOutcome inserts o.
func (s *SQLite) RecordOutcome(ctx context.Context, o model.Outcome) error {
	rec := OutcomeRecord{
		Kind:       string(o.Kind),
		Symbol:     o.Symbol,
		Reason:     o.Reason,
		RecordedAt: time.Now().UTC(),
	}
	if o.Order != nil {
		rec.OrderID = o.Order.OrderID
		rec.Market = o.Order.Market
		rec.QuoteSpent = o.Order.QuoteSpent.String()
		rec.ExecutedQty = o.Order.ExecutedQty.String()
		rec.OrderStatus = o.Order.Status
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Detections returns the newest detections first. limit <= 0 returns all.
func (s *SQLite) Detections(ctx context.Context, limit int) ([]DetectionRecord, error) {
	var recs []DetectionRecord
	q := s.db.WithContext(ctx).Order("detected_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Outcomes returns outcomes for symbol in insertion order. An empty symbol
// returns every outcome.
func (s *SQLite) Outcomes(ctx context.Context, symbol string) ([]OutcomeRecord, error) {
	var recs []OutcomeRecord
	q := s.db.WithContext(ctx).Order("id")
	if symbol != "" {
		q = q.Where("symbol = ?", strings.ToUpper(symbol))
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
