// Package model defines shared data types used across the listing watcher.
//
// Conventions:
//   - Symbols: uppercase asset tickers without the quote asset ("ABC", not "ABCUSDT")
//   - Fingerprints: trimmed, case-folded announcement text (see Normalize)
//   - Amounts: decimal.Decimal in units of the quote asset
//   - IDs: uuid.UUID for detections, exchange-native strings for orders
package model
