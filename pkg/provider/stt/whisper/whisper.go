// Package whisper implements stt.Transcriber with the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at startup and shared across all sessions; each
// Transcribe call creates its own whisper context, which is the unit of
// thread confinement in whisper.cpp.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
)

// Compile-time check that *Transcriber satisfies [stt.Transcriber].
var _ stt.Transcriber = (*Transcriber)(nil)

const defaultLanguage = "auto"

// Transcriber recognises speech using a locally loaded whisper.cpp model.
type Transcriber struct {
	model    whisperlib.Model
	language string
	fallback string
}

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage pins recognition to a fixed ISO 639-1 language code instead
// of per-call auto-detection.
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithFallbackLanguage sets the language code reported when detection fails.
// Defaults to "en".
func WithFallbackLanguage(lang string) Option {
	return func(t *Transcriber) { t.fallback = lang }
}

// New creates a Transcriber that loads the whisper.cpp model from the given
// file path. The caller must call Close when the transcriber is no longer
// needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
		fallback: "en",
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe implements [stt.Transcriber]. Each call runs on a fresh
// whisper.cpp context; contexts are not thread-safe but the model can be
// shared across goroutines.
func (t *Transcriber) Transcribe(ctx context.Context, chunk audio.Chunk) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: %w", err)
	}
	if chunk.Empty() {
		return stt.Result{}, stt.ErrNoSpeech
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", t.language, "error", err)
	}

	if err := wctx.Process(chunk.Samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return stt.Result{}, stt.ErrNoSpeech
	}

	return stt.Result{
		Text:     strings.Join(parts, " "),
		Language: t.detectedLanguage(wctx),
	}, nil
}

// detectedLanguage resolves the language to report for a finished context.
// A pinned language wins; otherwise the context's detection result is used,
// with the configured fallback covering detection failures.
func (t *Transcriber) detectedLanguage(wctx whisperlib.Context) string {
	if t.language != defaultLanguage && t.language != "" {
		return t.language
	}
	if lang := wctx.DetectedLanguage(); lang != "" {
		return lang
	}
	return t.fallback
}
