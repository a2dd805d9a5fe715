// Package models defines domain entities and persistence interfaces for cloudx.
//
// The package contains two categories of types:
//
// 1. Pipeline values: immutable data flowing through an import
//   - [SongDescriptor] : a local file's identity as read from the catalog
//   - [ResolvedSong] : a descriptor enriched with canonical name, artist and album
//   - [ImportOutcome] : the interpreted result of one import call
//   - [ImportResult] : the terminal state of one song after retries
//
// 2. Persistent entities: database-backed history
//   - [ImportRun] : one invocation of the import pipeline with its counters
//   - [OutcomeRecord] : one song's terminal state within a run
//
// [ImportRun] implements the [Model] interface; the [Repository] interface defines standard CRUD operations for database access.
package models
