// Package mock provides a test double for the diarize package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize"
)

// DiarizeCall records a single invocation of Diarizer.Diarize.
type DiarizeCall struct {
	// Chunk is the chunk passed to Diarize.
	Chunk audio.Chunk
}

// Diarizer is a mock implementation of diarize.Diarizer.
type Diarizer struct {
	mu sync.Mutex

	// Turns is returned by every Diarize call unless TurnsPerCall is set.
	Turns []diarize.Turn

	// TurnsPerCall, when non-empty, is consumed one entry per call (the last
	// entry repeats once exhausted).
	TurnsPerCall [][]diarize.Turn

	// DiarizeErr, if non-nil, is returned by every Diarize call.
	DiarizeErr error

	// DiarizeCalls records every call to Diarize in order.
	DiarizeCalls []DiarizeCall
}

// Diarize records the call and returns the configured turns.
func (d *Diarizer) Diarize(_ context.Context, chunk audio.Chunk) ([]diarize.Turn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := len(d.DiarizeCalls)
	d.DiarizeCalls = append(d.DiarizeCalls, DiarizeCall{Chunk: chunk})
	if d.DiarizeErr != nil {
		return nil, d.DiarizeErr
	}
	if len(d.TurnsPerCall) > 0 {
		if idx >= len(d.TurnsPerCall) {
			idx = len(d.TurnsPerCall) - 1
		}
		return d.TurnsPerCall[idx], nil
	}
	return d.Turns, nil
}

// CallCount returns the number of Diarize invocations so far. Thread-safe.
func (d *Diarizer) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.DiarizeCalls)
}

// ResetCalls clears all recorded call history. Thread-safe.
func (d *Diarizer) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DiarizeCalls = nil
}

// Ensure Diarizer implements diarize.Diarizer at compile time.
var _ diarize.Diarizer = (*Diarizer)(nil)
