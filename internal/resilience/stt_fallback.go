package resilience

import (
	"context"
	"errors"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple speech-to-text backends. Each backend has its own circuit breaker.
//
// [stt.ErrNoSpeech] is treated as a successful call that happened to contain
// no speech: it neither trips the backend's breaker nor triggers failover,
// since a second engine hearing the same silence would only add latency.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe recognises chunk using the first healthy backend. A backend
// answering [stt.ErrNoSpeech] ends the attempt chain and the sentinel is
// returned to the caller.
func (f *STTFallback) Transcribe(ctx context.Context, chunk audio.Chunk) (stt.Result, error) {
	var noSpeech bool
	res, err := ExecuteWithResult(f.group, func(t stt.Transcriber) (stt.Result, error) {
		r, err := t.Transcribe(ctx, chunk)
		if errors.Is(err, stt.ErrNoSpeech) {
			noSpeech = true
			return stt.Result{}, nil
		}
		noSpeech = false
		return r, err
	})
	if err == nil && noSpeech {
		return stt.Result{}, stt.ErrNoSpeech
	}
	return res, err
}
