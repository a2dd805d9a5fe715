// Package repositories implements SQLite persistence for the import history.
//
// Key Implementations:
//   - [RunRepository] : One row per import run with song counters and status
//   - [OutcomeRepository] : Terminal state of each song within a run
//   - [HistoryAdapter] : Implements tasks.RunRecorder on top of both
//
// Sequence numbers provide stable, human-readable run references (e.g. `history show 3`) independent of UUIDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
//
// History is informational: the import pipeline never reads it back to skip or resume songs.
package repositories
