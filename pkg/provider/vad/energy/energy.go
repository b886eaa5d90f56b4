// Package energy implements vad.Detector with a frame-level RMS energy
// gate. It is model-free and fully local, which makes it the default
// detector: speech/no-speech gating only has to be good enough to avoid
// wasting transcription calls on silent windows.
package energy

import (
	"context"
	"fmt"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad"
)

// Compile-time check that *Detector satisfies [vad.Detector].
var _ vad.Detector = (*Detector)(nil)

const (
	defaultFrameMs      = 30
	defaultRMSThreshold = 0.01
	defaultHangoverMs   = 300
)

// Detector is an RMS-based voice activity detector. Safe for concurrent use;
// it holds no per-call state.
type Detector struct {
	frameMs      int
	rmsThreshold float64
	hangoverMs   int
}

// Option configures a [Detector] during construction.
type Option func(*Detector)

// WithFrameMs sets the analysis frame length in milliseconds. Default 30.
func WithFrameMs(ms int) Option {
	return func(d *Detector) { d.frameMs = ms }
}

// WithRMSThreshold sets the RMS amplitude above which a frame counts as
// speech. Default 0.01 for normalised float32 PCM.
func WithRMSThreshold(t float64) Option {
	return func(d *Detector) { d.rmsThreshold = t }
}

// WithHangoverMs sets how much trailing silence is tolerated before a speech
// interval is closed. Default 300 ms.
func WithHangoverMs(ms int) Option {
	return func(d *Detector) { d.hangoverMs = ms }
}

// New creates an energy Detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{
		frameMs:      defaultFrameMs,
		rmsThreshold: defaultRMSThreshold,
		hangoverMs:   defaultHangoverMs,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect implements [vad.Detector]. It walks the chunk in fixed frames,
// classifies each by RMS amplitude, and merges speech frames separated by
// less than the hangover into one interval.
func (d *Detector) Detect(ctx context.Context, chunk audio.Chunk) ([]vad.Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	if chunk.Empty() {
		return nil, nil
	}
	if chunk.SampleRate <= 0 {
		return nil, fmt.Errorf("vad: invalid sample rate %d", chunk.SampleRate)
	}

	frameLen := chunk.SampleRate * d.frameMs / 1000
	if frameLen <= 0 {
		frameLen = 1
	}
	frameSec := float64(frameLen) / float64(chunk.SampleRate)
	hangoverFrames := d.hangoverMs / d.frameMs

	var (
		intervals []vad.Interval
		inSpeech  bool
		start     float64
		silentRun int
	)

	for i := 0; i < len(chunk.Samples); i += frameLen {
		end := i + frameLen
		if end > len(chunk.Samples) {
			end = len(chunk.Samples)
		}
		speech := audio.RMS(chunk.Samples[i:end]) >= d.rmsThreshold
		at := float64(i) / float64(chunk.SampleRate)

		switch {
		case speech && !inSpeech:
			inSpeech = true
			start = at
			silentRun = 0
		case speech:
			silentRun = 0
		case inSpeech:
			silentRun++
			if silentRun > hangoverFrames {
				intervals = append(intervals, vad.Interval{Start: start, End: at - float64(silentRun-1)*frameSec})
				inSpeech = false
			}
		}
	}
	if inSpeech {
		intervals = append(intervals, vad.Interval{Start: start, End: chunk.Seconds()})
	}
	return intervals, nil
}
