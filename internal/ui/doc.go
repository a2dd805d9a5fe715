// Package ui implements the interactive terminal pieces of the CLI using bubbletea's Elm architecture.
//
// Prompts:
//   - [PromptModel] : single-line text input (catalog path, session cookie)
//   - [ChooseModel] : pick one option from a short list (login method, retry or abort)
//   - [TerminalPrompter] : runs either prompt inline on the given streams
//
// The import view ([Model]) runs the pipeline in the background and renders progress:
//  1. [ImportingView] : spinner, current song, recently finished songs, rate-limit waits
//  2. [ResultView] : summary table and the songs that did not import
//
// Progress updates flow through a channel from the pipeline, so rendering never blocks the import.
// ctrl+c cancels the run through its context; the song in flight is abandoned.
//
// [IsInteractive] reports whether stdin is a terminal, so callers can fail fast instead of prompting.
package ui
