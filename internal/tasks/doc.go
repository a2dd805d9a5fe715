// Package tasks imports a song catalog into the cloud locker with real-time progress reporting.
//
// # Pipeline
//
// [Pipeline.Run] performs one import run:
//
//  1. Load the catalog through a [CatalogLoader]
//  2. [DetailResolver.Resolve] : batched detail lookups
//     - Splits ids into batches of at most 900 (one lookup per batch)
//     - Drops ids the platform suppresses from cloud storage
//     - Merges name, first artist and album into the catalog descriptor
//     - Deduplicates by id; a failed batch is logged and skipped
//  3. [ImportDriver.ImportAll] : sequential imports with bounded retries
//     - Rate-limit responses wait and retry without using an attempt
//     - "already exists" failures skip the song immediately
//     - Other failures wait and retry until the attempt budget runs out
//
// Songs that are skipped or exhausted are written once to a [FailureRecorder].
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Import History
//
// The optional [RunRecorder] interface stores each run and per-song outcome.
//
// Recorder errors are logged and ignored so that history never interrupts an import.
package tasks
