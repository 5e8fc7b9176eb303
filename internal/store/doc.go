// Package store provides persistent storage for notetaker-gateway using SQLite.
//
// # Data Models
//
//   - Meeting: Calendar meeting produced by calendar sync; this service only
//     advances its completion status
//   - Bot: Recording bot assigned to a meeting (at most one per meeting,
//     enforced by a unique index on meeting_id)
//   - Artifact: Downloadable recording output, unique per (bot, kind)
//   - Preference: Per-user lead-time and notetaker settings
//   - Job: Durable work item for the downstream AI-processing worker
//
// # Concurrency
//
// Bot status transitions go through UpdateBotStatus, a conditional write
// keyed on the previously observed status. Concurrent reconciliations of the
// same bot therefore resolve to exactly one winner; losers receive
// ErrStaleStatus and skip their side effects. Artifact writes use a
// unique-constraint-backed upsert so re-entered captures never duplicate rows.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Tests use the :memory: database.
package store
