// Package mock provides a test double for the vad package interfaces.
//
// Use Detector to inject interval responses and inspect the chunks that were
// submitted for analysis.
package mock

import (
	"context"
	"sync"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad"
)

// DetectCall records a single invocation of Detector.Detect.
type DetectCall struct {
	// Chunk is the chunk passed to Detect.
	Chunk audio.Chunk
}

// Detector is a mock implementation of vad.Detector.
type Detector struct {
	mu sync.Mutex

	// Intervals is returned by every Detect call.
	Intervals []vad.Interval

	// DetectErr, if non-nil, is returned by every Detect call.
	DetectErr error

	// DetectCalls records every call to Detect in order.
	DetectCalls []DetectCall
}

// Detect records the call and returns Intervals, DetectErr.
func (d *Detector) Detect(_ context.Context, chunk audio.Chunk) ([]vad.Interval, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DetectCalls = append(d.DetectCalls, DetectCall{Chunk: chunk})
	if d.DetectErr != nil {
		return nil, d.DetectErr
	}
	return d.Intervals, nil
}

// ResetCalls clears all recorded call history. Thread-safe.
func (d *Detector) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DetectCalls = nil
}

// Ensure Detector implements vad.Detector at compile time.
var _ vad.Detector = (*Detector)(nil)
