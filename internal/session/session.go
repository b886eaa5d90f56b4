// Package session implements the per-connection enrichment orchestrator.
//
// A session owns two rolling audio buffers drained on different cadences.
// The fast cadence feeds low-latency transcription only and emits
// preliminary fragments within seconds. The slow cadence accumulates the
// fast windows into a larger one and runs the full pipeline over it:
// diarization, speaker reconciliation, translation, insight extraction.
// At most one run per cadence is ever in flight; the two cadences may
// overlap each other but never themselves.
//
// Every inference collaborator is optional and every call is bounded and
// failure-isolated: a dead diarizer costs speaker turns, not the session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weihan0529/global-meeting-scribe/internal/insight"
	"github.com/weihan0529/global-meeting-scribe/internal/language"
	"github.com/weihan0529/global-meeting-scribe/internal/transcript"
	"github.com/weihan0529/global-meeting-scribe/internal/translate"
	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad"
)

// ErrBusy is returned when a full-pipeline trigger arrives while the
// previous run is still in flight. The input is dropped, not queued.
var ErrBusy = errors.New("session: enrichment already in flight")

// ErrClosed is returned for operations on a session that has shut down.
var ErrClosed = errors.New("session: closed")

// Mode selects how a session's full pipeline is triggered. The mode is
// fixed at construction for the session's lifetime.
type Mode int

const (
	// ModeContinuous runs the dual-cadence streaming pipeline: timers
	// drain the buffers on a fixed schedule.
	ModeContinuous Mode = iota

	// ModeSingleShot disables the fast cadence; one complete recording is
	// drained exactly once when Finalize is called.
	ModeSingleShot
)

// Defaults for Config.
const (
	DefaultFastInterval = 2 * time.Second
	DefaultSlowInterval = 12 * time.Second
	DefaultStageTimeout = 60 * time.Second
)

// Config carries the construction-time knobs of a session.
type Config struct {
	Mode Mode

	// FastInterval is the fast cadence period. Zero means DefaultFastInterval.
	FastInterval time.Duration

	// SlowInterval is the slow cadence period. Zero means DefaultSlowInterval.
	SlowInterval time.Duration

	// TargetLanguage is the initial translation target, an ISO 639-1 code.
	// Empty means English.
	TargetLanguage string

	// StageTimeout bounds each collaborator call so a stalled backend
	// cannot wedge the single-flight gate. Zero means DefaultStageTimeout.
	StageTimeout time.Duration

	// Logger receives session diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Collaborators is the set of inference backends a session may call.
// Any field may be nil; the corresponding stage then degrades to an empty
// result instead of failing the pipeline. The backends are shared across
// sessions and must be safe for concurrent use.
type Collaborators struct {
	VAD         vad.Detector
	Transcriber stt.Transcriber
	Diarizer    diarize.Diarizer
	Translator  *translate.Router
	Insights    insight.Extractor

	// Corrector fixes recurring mis-hearings of meeting-specific terms in
	// transcribed text. Optional.
	Corrector *transcript.GlossaryCorrector
}

// Session is one connection's enrichment orchestrator.
// All exported methods are safe for concurrent use.
type Session struct {
	cfg Config
	col Collaborators
	log *slog.Logger

	fastBuf  *CadenceBuffer
	slowBuf  *CadenceBuffer
	registry *SpeakerRegistry

	mu           sync.Mutex
	fastInFlight bool
	slowInFlight bool
	pending      []Fragment
	windowGen    int
	target       string
	closing      bool

	events chan Event
	closed chan struct{}
	wg     sync.WaitGroup
}

// New creates a session. Call Run to start its cadence drivers.
func New(cfg Config, col Collaborators) *Session {
	if cfg.FastInterval <= 0 {
		cfg.FastInterval = DefaultFastInterval
	}
	if cfg.SlowInterval <= 0 {
		cfg.SlowInterval = DefaultSlowInterval
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = language.Fallback
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		cfg:      cfg,
		col:      col,
		log:      cfg.Logger,
		fastBuf:  NewCadenceBuffer(),
		slowBuf:  NewCadenceBuffer(),
		registry: NewSpeakerRegistry(),
		target:   cfg.TargetLanguage,
		events:   make(chan Event, 32),
		closed:   make(chan struct{}),
	}
}

// Events returns the channel carrying the session's output events. The
// channel is closed after Run returns and all in-flight pipeline runs have
// finished.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Run drives the session until ctx is cancelled. In continuous mode it
// starts both cadence timers; in single-shot mode it only waits for
// Finalize triggers. Cancellation is silent: Run returns nil, no further
// events are sent, and no new pipeline run starts after it returns. An
// in-flight run is allowed to complete but its result is discarded.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		close(s.closed)
		s.wg.Wait()
		close(s.events)
	}()

	if s.cfg.Mode == ModeContinuous {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			s.cadenceLoop(gctx, s.cfg.FastInterval, s.triggerFast)
			return nil
		})
		g.Go(func() error {
			s.cadenceLoop(gctx, s.cfg.SlowInterval, func() { s.triggerSlow() })
			return nil
		})
		g.Wait() //nolint:errcheck // loops only return on cancellation
		return nil
	}

	<-ctx.Done()
	return nil
}

func (s *Session) cadenceLoop(ctx context.Context, interval time.Duration, fire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}

// AppendAudio buffers one chunk of raw session audio. It never blocks on
// pipeline work, so the transport read loop keeps draining the socket
// while enrichment is in flight.
func (s *Session) AppendAudio(chunk audio.Chunk) {
	if s.cfg.Mode == ModeContinuous {
		s.fastBuf.Append(chunk)
		return
	}
	s.slowBuf.Append(chunk)
}

// TargetLanguage returns the current translation target code.
func (s *Session) TargetLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetTargetLanguage resolves name (a language name or code, possibly
// misspelled) and switches the translation target. The resolved code is
// returned and confirmed to the client with a language_changed event.
func (s *Session) SetTargetLanguage(name string) string {
	code := language.Code(name)
	s.mu.Lock()
	s.target = code
	s.mu.Unlock()
	s.emit(LanguageChangedEvent{Target: code})
	return code
}

// Finalize triggers the full pipeline over everything buffered so far.
// Single-shot sessions call this on the end-of-utterance signal. Returns
// ErrBusy when a run is already in flight; the trigger is dropped, not
// queued, and a busy error event is sent to the client.
func (s *Session) Finalize() error {
	started, err := s.startSlow(nil, "", true)
	switch {
	case errors.Is(err, ErrBusy):
		s.emit(ErrorEvent{Message: "processing already in progress", Details: "wait for the current run to finish"})
		return err
	case err != nil:
		return err
	case !started:
		s.emit(ErrorEvent{Message: "no audio to process"})
	}
	return nil
}

// Retranslate re-runs the full pipeline over a previously stored recording
// with a different target language. The speaker registry is the session's
// own, so ephemeral labels already seen keep their persistent labels
// instead of being allocated twice.
func (s *Session) Retranslate(recording audio.Chunk, targetName string) error {
	if recording.Empty() {
		return errors.New("session: retranslate: empty recording")
	}
	target := language.Code(targetName)
	_, err := s.startSlow(&recording, target, true)
	if errors.Is(err, ErrBusy) {
		s.emit(ErrorEvent{Message: "processing already in progress", Details: "retranslation dropped"})
	}
	return err
}

// triggerFast drains the fast buffer and runs VAD plus transcription over
// the window. Skipped entirely while the previous fast run is in flight.
func (s *Session) triggerFast() {
	s.mu.Lock()
	if s.closing || s.fastInFlight {
		s.mu.Unlock()
		return
	}
	chunk, err := s.fastBuf.Drain()
	if err != nil {
		s.mu.Unlock()
		s.log.Error("fast buffer drain failed, skipping window", "error", err)
		return
	}
	if chunk.Empty() {
		s.mu.Unlock()
		return
	}
	// Forward into the slow window before transcribing so diarization
	// always sees this audio, whatever the fast path makes of it. The
	// offset anchors the fragment inside the current slow window.
	offset := s.slowBuf.Seconds()
	s.slowBuf.Append(chunk)
	gen := s.windowGen
	s.fastInFlight = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.fastInFlight = false
			s.mu.Unlock()
		}()
		s.runFast(chunk, offset, gen)
	}()
}

func (s *Session) runFast(chunk audio.Chunk, offset float64, gen int) {
	if s.col.VAD != nil {
		ctx, cancel := s.stageCtx()
		intervals, err := s.col.VAD.Detect(ctx, chunk)
		cancel()
		if err != nil {
			s.log.Warn("voice activity detection failed, skipping window", "error", err)
			return
		}
		if len(intervals) == 0 {
			return
		}
	}

	if s.col.Transcriber == nil {
		return
	}
	ctx, cancel := s.stageCtx()
	res, err := s.col.Transcriber.Transcribe(ctx, chunk)
	cancel()
	if err != nil {
		if !errors.Is(err, stt.ErrNoSpeech) {
			s.log.Warn("fast transcription failed, skipping window", "error", err)
		}
		return
	}
	if strings.TrimSpace(res.Text) == "" {
		return
	}

	frag := Fragment{
		Start:    offset,
		End:      offset + chunk.Seconds(),
		Speaker:  ProvisionalSpeaker,
		Text:     s.correct(res.Text),
		Language: res.Language,
	}

	s.mu.Lock()
	// The slow window may have rotated while we were transcribing; a late
	// fragment belongs to a window that was already enriched, so it is
	// only emitted as preliminary, never queued.
	if s.windowGen == gen {
		s.pending = append(s.pending, frag)
	}
	s.mu.Unlock()

	s.emit(PreliminaryTranscriptEvent{Fragment: frag})
}

// triggerSlow fires the slow cadence. Unlike single-shot triggers a timer
// tick is not a client request, so a busy gate or empty window is simply
// skipped without an error event.
func (s *Session) triggerSlow() {
	if _, err := s.startSlow(nil, "", false); err != nil && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrClosed) {
		s.log.Error("slow pipeline start failed", "error", err)
	}
}

// startSlow atomically claims the slow single-flight gate, drains the slow
// window, and dispatches the run. override replaces the drained audio for
// retranslation; targetOverride replaces the session target; announce
// acknowledges an explicit client trigger with a processing_started event
// before any pipeline output.
func (s *Session) startSlow(override *audio.Chunk, targetOverride string, announce bool) (bool, error) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if s.slowInFlight {
		s.mu.Unlock()
		return false, ErrBusy
	}

	var (
		chunk audio.Chunk
		frags []Fragment
	)
	if override != nil {
		chunk = *override
	} else {
		var err error
		chunk, err = s.slowBuf.Drain()
		if err != nil {
			// The window is lost; reset the fragment batch too so the next
			// cadence starts clean instead of enriching orphaned fragments.
			s.pending = nil
			s.windowGen++
			s.mu.Unlock()
			return false, err
		}
		frags = s.pending
		s.pending = nil
		s.windowGen++
	}
	target := s.target
	if targetOverride != "" {
		target = targetOverride
	}
	if chunk.Empty() && len(frags) == 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.slowInFlight = true
	s.mu.Unlock()

	if announce {
		s.emit(ProcessingStartedEvent{})
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.slowInFlight = false
			s.mu.Unlock()
		}()
		s.runSlow(chunk, frags, target)
	}()
	return true, nil
}

// runSlow is the full enrichment pipeline: diarize, resolve persistent
// speakers, reconcile or synthesize fragments, translate, extract
// insights, emit one event. Every stage failure degrades that stage only.
func (s *Session) runSlow(chunk audio.Chunk, frags []Fragment, target string) {
	var segments []Segment
	if s.col.Diarizer != nil && !chunk.Empty() {
		ctx, cancel := s.stageCtx()
		turns, err := s.col.Diarizer.Diarize(ctx, chunk)
		cancel()
		if err != nil {
			s.log.Warn("diarization failed, continuing without speaker turns", "error", err)
		}
		for _, turn := range turns {
			segments = append(segments, Segment{
				Start:     turn.Start,
				End:       turn.End,
				Ephemeral: turn.Label,
				Speaker:   s.registry.Resolve(turn.Label),
			})
		}
	}

	if len(frags) == 0 {
		frags = s.synthesizeFragments(chunk, segments)
	} else {
		AssignSpeakers(frags, segments)
	}

	if s.col.Translator != nil {
		for i := range frags {
			s.translateFragment(&frags[i], target)
		}
	}

	var insights []insight.Insight
	if s.col.Insights != nil {
		if text := batchText(frags); text != "" {
			ctx, cancel := s.stageCtx()
			out, err := s.col.Insights.Extract(ctx, text)
			cancel()
			if err != nil {
				s.log.Warn("insight extraction failed, continuing without insights", "error", err)
			} else {
				insights = out
			}
		}
	}

	if len(frags) == 0 && len(segments) == 0 {
		return
	}
	s.emit(EnrichedTranscriptsEvent{
		Fragments: frags,
		Segments:  segments,
		Insights:  insights,
	})
}

// synthesizeFragments builds one fragment per diarized turn by
// transcribing that turn's audio sub-range. Used when no fast-path
// fragments exist for the window (single-shot mode, retranslation).
func (s *Session) synthesizeFragments(chunk audio.Chunk, segments []Segment) []Fragment {
	frags := make([]Fragment, 0, len(segments))
	for _, seg := range segments {
		frag := Fragment{
			Start:    seg.Start,
			End:      seg.End,
			Speaker:  seg.Speaker,
			Language: language.Fallback,
		}
		if s.col.Transcriber != nil {
			ctx, cancel := s.stageCtx()
			res, err := s.col.Transcriber.Transcribe(ctx, chunk.Slice(seg.Start, seg.End))
			cancel()
			switch {
			case err == nil:
				frag.Text = s.correct(res.Text)
				frag.Language = res.Language
			case errors.Is(err, stt.ErrNoSpeech):
				// Keep the empty fragment: the turn still carries speaker
				// and timing information.
			default:
				s.log.Warn("segment transcription failed, keeping empty fragment",
					"start", seg.Start, "end", seg.End, "error", err)
			}
		}
		frags = append(frags, frag)
	}
	return frags
}

func (s *Session) translateFragment(frag *Fragment, target string) {
	if strings.TrimSpace(frag.Text) == "" {
		return
	}
	src := frag.Language
	if src == "" {
		src = language.Fallback
	}
	ctx, cancel := s.stageCtx()
	res := s.col.Translator.Translate(ctx, frag.Text, src, target)
	cancel()
	frag.Translation = res.Text
	frag.TranslationLanguage = res.Language
	frag.TranslationDegraded = res.Degraded
	if res.Degraded {
		s.log.Warn("translation degraded",
			"source", src, "target", target, "produced", res.Language)
	}
}

func batchText(frags []Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

// correct runs transcribed text through the glossary corrector when one is
// configured.
func (s *Session) correct(text string) string {
	if s.col.Corrector == nil {
		return text
	}
	fixed, corrections := s.col.Corrector.Correct(text)
	if len(corrections) > 0 {
		s.log.Debug("glossary corrections applied", "count", len(corrections))
	}
	return fixed
}

// stageCtx bounds one collaborator call. Pipeline runs deliberately do not
// inherit the transport context: an in-flight run finishes on disconnect
// and emit drops its result instead.
func (s *Session) stageCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.StageTimeout)
}

// emit delivers an event to the transport, dropping it silently when the
// session has closed.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.closed:
	}
}
