// Package diarize defines the Diarizer interface for speaker diarization
// backends.
//
// A diarizer splits an audio window into speaker turns. The labels it
// returns are ephemeral: they are only stable within one call, so the
// session layer maps them onto persistent session-scoped speaker labels
// before exposing them to any consumer.
//
// Implementations must be safe for concurrent use across sessions.
package diarize

import (
	"context"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
)

// Turn is one speaker-attributed time range within a diarized window, in
// seconds relative to the start of the window. Invariant: Start < End.
type Turn struct {
	Start float64

	End float64

	// Label is the backend-assigned speaker tag, valid only within the call
	// that produced it.
	Label string
}

// Diarizer is the abstraction over any speaker diarization backend.
type Diarizer interface {
	// Diarize splits chunk into speaker turns, in chronological order.
	// An empty slice means no speakers were found. Implementations must not
	// retain chunk after returning.
	Diarize(ctx context.Context, chunk audio.Chunk) ([]Turn, error)
}
