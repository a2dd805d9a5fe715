package models

import "fmt"

// SongDescriptor identifies a local music file by the fields the cloud import endpoint needs.
type SongDescriptor struct {
	ID      int64  `json:"id"`
	Size    int64  `json:"size"`
	Ext     string `json:"ext"`
	Bitrate int64  `json:"bitrate"`
	MD5     string `json:"md5"`
}

// ResolvedSong is a [SongDescriptor] merged with the platform's canonical metadata.
type ResolvedSong struct {
	SongDescriptor
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

func (s ResolvedSong) String() string {
	if s.Artist == "" {
		return fmt.Sprintf("%s (ID: %d)", s.Name, s.ID)
	}
	return fmt.Sprintf("%s - %s (ID: %d)", s.Artist, s.Name, s.ID)
}

// OutcomeKind tags the interpretation of a single import response.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeAlreadyExists
	OutcomeOtherFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeOtherFailure:
		return "other_failure"
	default:
		return ""
	}
}

// ImportOutcome is the result of one import attempt. Detail carries the raw failure for OutcomeOtherFailure.
type ImportOutcome struct {
	Kind   OutcomeKind
	Detail string
}

// ImportState is a song's position in the import state machine.
type ImportState string

const (
	StatePending          ImportState = "pending"
	StateAttempting       ImportState = "attempting"
	StateSucceeded        ImportState = "succeeded"
	StateSkippedExisting  ImportState = "skipped_existing"
	StateExhaustedRetries ImportState = "exhausted_retries"
)

// Terminal reports whether no further transitions are possible from s.
func (s ImportState) Terminal() bool {
	switch s {
	case StateSucceeded, StateSkippedExisting, StateExhaustedRetries:
		return true
	default:
		return false
	}
}

// Recorded reports whether a song ending in s belongs in the failure log.
func (s ImportState) Recorded() bool {
	return s == StateSkippedExisting || s == StateExhaustedRetries
}

// ImportResult is the terminal state of one song after the retry loop.
type ImportResult struct {
	Song        ResolvedSong
	State       ImportState
	Attempts    int    // Counted attempts, excluding rate-limited calls
	RateLimited int    // Calls answered with the rate-limit code
	Detail      string // Last failure detail, empty on success
}
