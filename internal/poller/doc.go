// Package poller implements the Source Poller component.
//
// The Source Poller:
//   - Fetches a snapshot of one source's announcements on a fixed interval
//   - Seeds the source's ledger stream on the first successful poll without
//     dispatching anything
//   - Replays announcements newer than the last-seen pointer oldest first
//   - Claims each announcement's fingerprint before acting on it, so an
//     event listener sharing the stream never duplicates the work
//   - Logs and skips failed fetches; one slow source never stalls another
package poller
