// Package sync implements the offline-first synchronization engine.
//
// The engine keeps the local store usable while disconnected and
// reconciles it with the remote system-of-record whenever connectivity
// allows. Each entity type follows the same two-phase algorithm: upload
// locally dirty records first, then fetch the authoritative set in pages
// and merge.
//
// Lifecycles differ per entity:
//
//   - Contacts and orders are replace-wholesale caches: every successful
//     fetch clears and repopulates the table.
//   - Interactions and tickets are append/merge: server-confirmed records
//     are added without clearing locally-pending ones.
//
// The engine never treats an error as fatal. Transient network failures
// leave records dirty for a later pass; malformed server payloads fall
// back to an empty result and leave local data untouched; a missing
// identity or endpoint makes every operation a silent no-op. The engine
// degrades to local-only operation indefinitely.
//
// Overlapping sync passes (periodic timer vs. online-transition trigger)
// are serialized by a single in-flight guard: a trigger that arrives
// while a pass is running is dropped with ErrSyncInFlight and picked up
// by the next tick.
package sync
