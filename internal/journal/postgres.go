package journal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/listing-watch/internal/model"
)

// ErrClosed is returned when recording into a stopped journal.
var ErrClosed = errors.New("journal closed")

// Schema creates the journal tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS detections (
		id          UUID PRIMARY KEY,
		source      TEXT NOT NULL,
		title       TEXT NOT NULL,
		href        TEXT NOT NULL,
		symbols     TEXT[] NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		id           BIGSERIAL PRIMARY KEY,
		kind         TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		reason       TEXT NOT NULL DEFAULT '',
		order_id     TEXT,
		market       TEXT,
		quote_spent  TEXT,
		executed_qty TEXT,
		order_status TEXT,
		recorded_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS outcomes_symbol_idx ON outcomes (symbol)`,
}

const (
	insertDetection = `
		INSERT INTO detections (id, source, title, href, symbols, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	insertOutcome = `
		INSERT INTO outcomes (kind, symbol, reason, order_id, market, quote_spent, executed_qty, order_status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

// finalFlushTimeout bounds the flush performed on shutdown.
const finalFlushTimeout = 5 * time.Second

// batchSender is the subset of *pgxpool.Pool the writer needs.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// execer is the subset of *pgxpool.Pool Migrate needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrate creates the journal tables if they do not exist.
func Migrate(ctx context.Context, db execer) error {
	for _, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// PostgresConfig contains batching settings.
type PostgresConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial queue capacity. The queue grows as needed.
	BufferSize int
}

// DefaultPostgresConfig returns sensible defaults.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		BufferSize:    64,
	}
}

// WriterStats holds batch writer counters.
type WriterStats struct {
	Inserts   int64      `json:"inserts"`
	Conflicts int64      `json:"conflicts"`
	Errors    int64      `json:"errors"`
	Flushes   int64      `json:"flushes"`
	Queue     QueueStats `json:"queue"`
}

type row struct {
	sql  string
	args []any
}

// Postgres queues journal rows and writes them with pgx.Batch.
type Postgres struct {
	cfg    PostgresConfig
	db     batchSender
	logger *slog.Logger

	queue *queue[row]
	kick  chan struct{}

	// Lifecycle
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	onClose func()

	mu    sync.Mutex
	stats WriterStats
}

// NewPostgres creates a Postgres journal writing through db.
func NewPostgres(cfg PostgresConfig, db batchSender, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultPostgresConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &Postgres{
		cfg:    cfg,
		db:     db,
		logger: logger.With("journal", "postgres"),
		queue:  newQueue[row](cfg.BufferSize),
		kick:   make(chan struct{}, 1),
	}
}

// Start begins the flush loop.
func (p *Postgres) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.flushLoop(ctx)

	p.logger.Info("journal writer started",
		"batch_size", p.cfg.BatchSize,
		"flush_interval", p.cfg.FlushInterval,
	)
	return nil
}

// Stop rejects new rows, flushes what is queued and waits for the loop.
func (p *Postgres) Stop(ctx context.Context) error {
	p.queue.Close()
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("journal writer stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("journal writer stop timed out", "queued", p.queue.Len())
		return ctx.Err()
	}
}

// Close stops the writer and releases the pool.
func (p *Postgres) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout+time.Second)
	defer cancel()

	err := p.Stop(ctx)
	if p.onClose != nil {
		p.onClose()
	}
	return err
}

// RecordDetection queues d.
func (p *Postgres) RecordDetection(_ context.Context, d model.Detection) error {
	return p.enqueue(row{
		sql:  insertDetection,
		args: []any{d.ID.String(), d.Source, d.Title, d.Href, d.Symbols, d.DetectedAt},
	})
}

// RecordOutcome queues o.
func (p *Postgres) RecordOutcome(_ context.Context, o model.Outcome) error {
	args := []any{string(o.Kind), o.Symbol, o.Reason, nil, nil, nil, nil, nil, time.Now().UTC()}
	if o.Order != nil {
		args[3] = o.Order.OrderID
		args[4] = o.Order.Market
		args[5] = o.Order.QuoteSpent.String()
		args[6] = o.Order.ExecutedQty.String()
		args[7] = o.Order.Status
	}
	return p.enqueue(row{sql: insertOutcome, args: args})
}

// Stats returns writer counters.
func (p *Postgres) Stats() WriterStats {
	p.mu.Lock()
	s := p.stats
	p.mu.Unlock()
	s.Queue = p.queue.Stats()
	return s
}

func (p *Postgres) enqueue(r row) error {
	if !p.queue.Push(r) {
		return ErrClosed
	}
	if p.queue.Len() >= p.cfg.BatchSize {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

func (p *Postgres) flushLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
			p.flushAll(final)
			cancel()
			return
		case <-ticker.C:
			p.flushAll(ctx)
		case <-p.kick:
			p.flushAll(ctx)
		}
	}
}

func (p *Postgres) flushAll(ctx context.Context) {
	for {
		rows := p.queue.Drain(p.cfg.BatchSize)
		if len(rows) == 0 {
			return
		}
		p.flush(ctx, rows)
	}
}

// flush writes rows in one batch. A failed batch is logged and dropped.
func (p *Postgres) flush(ctx context.Context, rows []row) {
	start := time.Now()

	conflicts, err := p.batchInsert(ctx, rows)
	if err != nil {
		p.logger.Error("batch insert failed", "error", err, "count", len(rows))
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	p.stats.Inserts += int64(len(rows) - conflicts)
	p.stats.Conflicts += int64(conflicts)
	p.stats.Flushes++
	p.mu.Unlock()

	p.logger.Debug("flushed journal rows",
		"count", len(rows),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (p *Postgres) batchInsert(ctx context.Context, rows []row) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(strings.TrimSpace(r.sql), r.args...)
	}

	results := p.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}
