// Package ledger implements the Dedup Ledger shared by pollers and listeners.
//
// The Ledger:
//   - Holds one Stream per logical source (fingerprint set + last-seen pointer)
//   - Guards each Stream with its own mutex, so unrelated sources never contend
//   - Provides atomic check-then-insert (Claim, ClaimAll) so two ingestion paths
//     racing on the same announcement cannot both proceed
//   - Lives in memory for the process lifetime; nothing is persisted
package ledger
