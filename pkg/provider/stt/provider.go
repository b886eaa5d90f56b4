// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber takes a finished audio chunk and returns the recognised text
// together with the language it detected. The meeting pipeline calls it in
// two places: on every fast-cadence drain for low-latency preliminary
// transcripts, and per diarization segment when the slow path has to
// synthesise fragments for a window with no prior transcript.
//
// Implementations must be safe for concurrent use: a single transcriber
// instance is shared by every session's pipeline workers.
package stt

import (
	"context"
	"errors"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
)

// ErrNoSpeech is returned when the backend produced no usable text for the
// supplied audio. Callers treat it as an empty result, not a failure.
var ErrNoSpeech = errors.New("stt: no speech recognised")

// Result is a finished transcription.
type Result struct {
	// Text is the recognised speech content.
	Text string

	// Language is the ISO 639-1 code of the detected language (e.g. "en").
	// Backends that cannot detect a language report their configured default.
	Language string
}

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe recognises the speech in chunk. Returns [ErrNoSpeech] when
	// the audio contains nothing recognisable. Implementations must not
	// retain chunk after returning.
	Transcribe(ctx context.Context, chunk audio.Chunk) (Result, error)
}
