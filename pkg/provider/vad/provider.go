// Package vad defines the Detector interface for voice activity detection
// backends.
//
// A detector analyses a finished audio chunk and returns the time intervals
// that contain speech. An empty interval list means no speech was found and
// the caller should skip downstream transcription entirely.
//
// Implementations must be safe for concurrent use: the detector instance is
// a process-wide singleton shared by every session's pipeline workers.
package vad

import (
	"context"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
)

// Interval is a speech region within an analysed chunk, in seconds relative
// to the start of the chunk. Invariant: Start < End.
type Interval struct {
	Start float64
	End   float64
}

// Detector is the abstraction over any voice activity detection backend.
type Detector interface {
	// Detect analyses chunk and returns the speech intervals found, in
	// chronological order. An empty slice with a nil error means the chunk
	// is silence. Implementations must not retain chunk after returning.
	Detect(ctx context.Context, chunk audio.Chunk) ([]Interval, error)
}
