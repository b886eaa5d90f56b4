// Package audio provides PCM primitives for the meeting pipeline: decoding
// the little-endian float32 frames delivered by the browser, concatenating
// buffered chunks, and slicing chunks by time range for per-segment
// transcription.
//
// All chunks are mono float32 samples at a fixed sample rate (16 kHz by
// default). Chunks are treated as immutable after construction; functions in
// this package always allocate fresh backing arrays rather than aliasing
// their inputs.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// DefaultSampleRate is the sample rate expected from the transport layer.
const DefaultSampleRate = 16000

// Chunk is an immutable sequence of mono float32 PCM samples.
type Chunk struct {
	// Samples holds the PCM data. Must not be mutated after construction.
	Samples []float32

	// SampleRate is the sample rate in Hz.
	SampleRate int
}

// Empty reports whether the chunk contains no samples.
func (c Chunk) Empty() bool { return len(c.Samples) == 0 }

// Duration returns the play time of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Seconds returns the play time of the chunk in seconds.
func (c Chunk) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Slice returns the sub-chunk covering [start, end) in seconds. The bounds
// are clamped to the chunk; an inverted or out-of-range window yields an
// empty chunk. The returned samples are a fresh copy.
func (c Chunk) Slice(start, end float64) Chunk {
	lo := int(start * float64(c.SampleRate))
	hi := int(end * float64(c.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(c.Samples) {
		hi = len(c.Samples)
	}
	if lo >= hi {
		return Chunk{SampleRate: c.SampleRate}
	}
	out := make([]float32, hi-lo)
	copy(out, c.Samples[lo:hi])
	return Chunk{Samples: out, SampleRate: c.SampleRate}
}

// DecodeFloat32LE converts raw little-endian float32 PCM bytes into a Chunk.
// Returns an error if the byte count is not a multiple of four or if the
// payload is empty.
func DecodeFloat32LE(data []byte, sampleRate int) (Chunk, error) {
	if len(data) == 0 {
		return Chunk{}, fmt.Errorf("audio: empty PCM payload")
	}
	if len(data)%4 != 0 {
		return Chunk{}, fmt.Errorf("audio: PCM payload length %d is not a multiple of 4", len(data))
	}
	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return Chunk{Samples: samples, SampleRate: sampleRate}, nil
}

// Concat joins chunks in order into one chunk. Empty chunks are skipped.
// All non-empty chunks must share a sample rate; mismatches return an error.
func Concat(chunks []Chunk) (Chunk, error) {
	total := 0
	rate := 0
	for _, c := range chunks {
		if c.Empty() {
			continue
		}
		if rate == 0 {
			rate = c.SampleRate
		} else if c.SampleRate != rate {
			return Chunk{}, fmt.Errorf("audio: sample rate mismatch: %d vs %d", rate, c.SampleRate)
		}
		total += len(c.Samples)
	}
	if total == 0 {
		return Chunk{SampleRate: rate}, nil
	}
	out := make([]float32, 0, total)
	for _, c := range chunks {
		out = append(out, c.Samples...)
	}
	return Chunk{Samples: out, SampleRate: rate}, nil
}

// RMS computes the root-mean-square amplitude of the samples. Used by the
// energy-based voice activity detector.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
