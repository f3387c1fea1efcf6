package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/listing-watch/internal/config"
	"github.com/rickgao/listing-watch/internal/database"
	"github.com/rickgao/listing-watch/internal/model"
)

// Journal records detections and outcomes.
type Journal interface {
	RecordDetection(ctx context.Context, d model.Detection) error
	RecordOutcome(ctx context.Context, o model.Outcome) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDetection(context.Context, model.Detection) error { return nil }
func (Nop) RecordOutcome(context.Context, model.Outcome) error     { return nil }
func (Nop) Close() error                                           { return nil }

// Open builds the journal for cfg.Driver. A postgres journal is migrated and
// its writer started; it runs until Close.
func Open(ctx context.Context, cfg config.JournalConfig, logger *slog.Logger) (Journal, error) {
	switch cfg.Driver {
	case "", "none":
		return Nop{}, nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect journal database: %w", err)
		}
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
		p := NewPostgres(PostgresConfig{
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
			BufferSize:    cfg.BufferSize,
		}, pool, logger)
		p.onClose = pool.Close
		if err := p.Start(context.WithoutCancel(ctx)); err != nil {
			pool.Close()
			return nil, err
		}
		return p, nil

	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, logger)

	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
