// Package journal records detections and dispatch outcomes.
//
// Drivers:
//   - none: records nothing
//   - postgres: queues rows and writes them in batches with pgx
//   - sqlite: writes synchronously through gorm
//
// Journals are append-only. Decimal amounts are stored as text so they keep
// the exchange's precision.
package journal
