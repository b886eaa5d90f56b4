// Package mock provides a test double for the stt package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Chunk is the chunk passed to Transcribe.
	Chunk audio.Chunk
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call unless Results is set.
	Result stt.Result

	// Results, when non-empty, is consumed one entry per call (the last
	// entry repeats once exhausted). Useful for per-segment tests.
	Results []stt.Result

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the configured result.
func (t *Transcriber) Transcribe(_ context.Context, chunk audio.Chunk) (stt.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := len(t.TranscribeCalls)
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Chunk: chunk})
	if t.TranscribeErr != nil {
		return stt.Result{}, t.TranscribeErr
	}
	if len(t.Results) > 0 {
		if idx >= len(t.Results) {
			idx = len(t.Results) - 1
		}
		return t.Results[idx], nil
	}
	return t.Result, nil
}

// CallCount returns the number of Transcribe invocations so far. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.TranscribeCalls)
}

// ResetCalls clears all recorded call history. Thread-safe.
func (t *Transcriber) ResetCalls() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranscribeCalls = nil
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
