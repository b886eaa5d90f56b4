package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/weihan0529/global-meeting-scribe/internal/insight"
	"github.com/weihan0529/global-meeting-scribe/internal/translate"
	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize"
	diarmock "github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize/mock"
	mtmock "github.com/weihan0529/global-meeting-scribe/pkg/provider/mt/mock"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
	sttmock "github.com/weihan0529/global-meeting-scribe/pkg/provider/stt/mock"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad"
	vadmock "github.com/weihan0529/global-meeting-scribe/pkg/provider/vad/mock"
)

func secsChunk(sec float64) audio.Chunk {
	return audio.Chunk{
		Samples:    make([]float32, int(sec*float64(audio.DefaultSampleRate))),
		SampleRate: audio.DefaultSampleRate,
	}
}

func waitEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, s *Session, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event: %#v", ev)
	case <-time.After(wait):
	}
}

// stubExtractor is an in-package insight.Extractor double.
type stubExtractor struct {
	mu          sync.Mutex
	insights    []insight.Insight
	err         error
	transcripts []string
}

func (e *stubExtractor) Extract(_ context.Context, transcript string) ([]insight.Insight, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transcripts = append(e.transcripts, transcript)
	return e.insights, e.err
}

func (e *stubExtractor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.transcripts)
}

// blockingDiarizer parks every Diarize call until release is closed.
type blockingDiarizer struct {
	release chan struct{}
	turns   []diarize.Turn
	calls   atomic.Int32
}

func (d *blockingDiarizer) Diarize(ctx context.Context, _ audio.Chunk) ([]diarize.Turn, error) {
	d.calls.Add(1)
	select {
	case <-d.release:
		return d.turns, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fixtures struct {
	vad      *vadmock.Detector
	stt      *sttmock.Transcriber
	diarizer *diarmock.Diarizer
	mt       *mtmock.Translator
	insights *stubExtractor
}

func newFixtures() (Collaborators, *fixtures) {
	f := &fixtures{
		vad:      &vadmock.Detector{Intervals: []vad.Interval{{Start: 0, End: 1}}},
		stt:      &sttmock.Transcriber{},
		diarizer: &diarmock.Diarizer{},
		mt:       &mtmock.Translator{},
		insights: &stubExtractor{},
	}
	col := Collaborators{
		VAD:         f.vad,
		Transcriber: f.stt,
		Diarizer:    f.diarizer,
		Translator:  translate.NewRouter(f.mt, translate.DefaultPairTable(), slog.New(slog.DiscardHandler)),
		Insights:    f.insights,
	}
	return col, f
}

func testConfig(mode Mode) Config {
	return Config{
		Mode:   mode,
		Logger: slog.New(slog.DiscardHandler),
	}
}

func TestSingleShotFullPipeline(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.diarizer.Turns = []diarize.Turn{
		{Start: 0, End: 2, Label: "A"},
		{Start: 2, End: 4, Label: "B"},
	}
	f.stt.Results = []stt.Result{
		{Text: "hello world", Language: "en"},
		{Text: "how are you", Language: "en"},
	}
	f.insights.insights = []insight.Insight{{Kind: insight.KindKeyPoint, Text: "greetings exchanged"}}

	cfg := testConfig(ModeSingleShot)
	cfg.TargetLanguage = "es"
	s := New(cfg, col)

	s.AppendAudio(secsChunk(4))
	if err := s.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := waitEvent(t, s).(ProcessingStartedEvent); !ok {
		t.Fatal("want processing_started first")
	}
	ev, ok := waitEvent(t, s).(EnrichedTranscriptsEvent)
	if !ok {
		t.Fatal("want enriched_transcripts second")
	}

	if len(ev.Fragments) != 2 {
		t.Fatalf("want 2 fragments, got %d", len(ev.Fragments))
	}
	if ev.Fragments[0].Speaker != "SPEAKER_1" || ev.Fragments[1].Speaker != "SPEAKER_2" {
		t.Errorf("speakers = %q, %q", ev.Fragments[0].Speaker, ev.Fragments[1].Speaker)
	}
	if ev.Fragments[0].Text != "hello world" || ev.Fragments[1].Text != "how are you" {
		t.Errorf("texts = %q, %q", ev.Fragments[0].Text, ev.Fragments[1].Text)
	}
	if ev.Fragments[0].Translation != "[en-es] hello world" {
		t.Errorf("translation = %q", ev.Fragments[0].Translation)
	}
	if ev.Fragments[0].TranslationLanguage != "es" || ev.Fragments[0].TranslationDegraded {
		t.Errorf("translation meta: %+v", ev.Fragments[0])
	}
	if len(ev.Segments) != 2 {
		t.Errorf("want 2 segments, got %d", len(ev.Segments))
	}
	if len(ev.Insights) != 1 || ev.Insights[0].Kind != insight.KindKeyPoint {
		t.Errorf("insights = %+v", ev.Insights)
	}
	if f.insights.calls() != 1 {
		t.Errorf("want 1 extractor call, got %d", f.insights.calls())
	}
}

func TestSingleShotBusyRejection(t *testing.T) {
	t.Parallel()

	col, _ := newFixtures()
	blocker := &blockingDiarizer{
		release: make(chan struct{}),
		turns:   []diarize.Turn{{Start: 0, End: 2, Label: "A"}},
	}
	col.Diarizer = blocker
	s := New(testConfig(ModeSingleShot), col)

	s.AppendAudio(secsChunk(2))
	if err := s.Finalize(); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, ok := waitEvent(t, s).(ProcessingStartedEvent); !ok {
		t.Fatal("want processing_started")
	}

	s.AppendAudio(secsChunk(2))
	if err := s.Finalize(); !errors.Is(err, ErrBusy) {
		t.Fatalf("second finalize: want ErrBusy, got %v", err)
	}
	if _, ok := waitEvent(t, s).(ErrorEvent); !ok {
		t.Fatal("want busy error event")
	}
	if got := blocker.calls.Load(); got != 1 {
		t.Fatalf("want exactly 1 pipeline run, got %d", got)
	}

	close(blocker.release)
	if _, ok := waitEvent(t, s).(EnrichedTranscriptsEvent); !ok {
		t.Fatal("want enriched_transcripts after release")
	}
}

func TestFastPathEmitsPreliminary(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.stt.Result = stt.Result{Text: "hola amigos", Language: "es"}
	s := New(testConfig(ModeContinuous), col)

	s.AppendAudio(secsChunk(2))
	s.triggerFast()

	ev, ok := waitEvent(t, s).(PreliminaryTranscriptEvent)
	if !ok {
		t.Fatal("want preliminary_transcript")
	}
	frag := ev.Fragment
	if frag.Speaker != ProvisionalSpeaker {
		t.Errorf("speaker = %q, want provisional", frag.Speaker)
	}
	if frag.Text != "hola amigos" || frag.Language != "es" {
		t.Errorf("fragment = %+v", frag)
	}
	if frag.Start != 0 || frag.End != 2 {
		t.Errorf("bounds = [%v, %v), want [0, 2)", frag.Start, frag.End)
	}
	if got := s.slowBuf.Seconds(); got != 2 {
		t.Errorf("slow buffer seconds = %v, want 2 (fast audio forwarded)", got)
	}
}

func TestSlowPathReconcilesFastFragments(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.stt.Result = stt.Result{Text: "hola amigos", Language: "es"}
	f.diarizer.Turns = []diarize.Turn{{Start: 0, End: 2, Label: "X"}}
	s := New(testConfig(ModeContinuous), col)

	s.AppendAudio(secsChunk(2))
	s.triggerFast()
	if _, ok := waitEvent(t, s).(PreliminaryTranscriptEvent); !ok {
		t.Fatal("want preliminary first")
	}

	s.triggerSlow()
	ev, ok := waitEvent(t, s).(EnrichedTranscriptsEvent)
	if !ok {
		t.Fatal("want enriched_transcripts")
	}
	if len(ev.Fragments) != 1 {
		t.Fatalf("want 1 fragment, got %d", len(ev.Fragments))
	}
	frag := ev.Fragments[0]
	if frag.Speaker != "SPEAKER_1" {
		t.Errorf("speaker = %q, want reconciled SPEAKER_1", frag.Speaker)
	}
	if frag.Translation != "[es-en] hola amigos" || frag.TranslationLanguage != "en" {
		t.Errorf("translation: %+v", frag)
	}
	// The STT ran once on the fast path; reconciliation must not
	// re-transcribe.
	if f.stt.CallCount() != 1 {
		t.Errorf("want 1 transcription, got %d", f.stt.CallCount())
	}

	// The window was consumed: another tick has nothing to do.
	s.triggerSlow()
	assertNoEvent(t, s, 100*time.Millisecond)
	if f.diarizer.CallCount() != 1 {
		t.Errorf("want 1 diarizer call, got %d", f.diarizer.CallCount())
	}
}

func TestVADGatesFastPath(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.vad.Intervals = nil
	s := New(testConfig(ModeContinuous), col)

	s.AppendAudio(secsChunk(2))
	s.triggerFast()

	assertNoEvent(t, s, 100*time.Millisecond)
	if f.stt.CallCount() != 0 {
		t.Errorf("want no transcription on silence, got %d", f.stt.CallCount())
	}
	// Silent audio still reaches the slow window for diarization context.
	if got := s.slowBuf.Seconds(); got != 2 {
		t.Errorf("slow buffer seconds = %v, want 2", got)
	}
}

func TestFastFailureDoesNotBlockSlowPath(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.stt.TranscribeErr = errors.New("model crashed")
	f.diarizer.Turns = []diarize.Turn{{Start: 0, End: 2, Label: "A"}}
	s := New(testConfig(ModeContinuous), col)

	s.AppendAudio(secsChunk(2))
	s.triggerFast()
	assertNoEvent(t, s, 100*time.Millisecond)

	s.triggerSlow()
	ev, ok := waitEvent(t, s).(EnrichedTranscriptsEvent)
	if !ok {
		t.Fatal("want enriched_transcripts despite fast-path failure")
	}
	if len(ev.Segments) != 1 {
		t.Fatalf("want 1 segment, got %d", len(ev.Segments))
	}
	if len(ev.Fragments) != 1 {
		t.Fatalf("want 1 synthesized fragment, got %d", len(ev.Fragments))
	}
	frag := ev.Fragments[0]
	if frag.Speaker != "SPEAKER_1" || frag.Text != "" {
		t.Errorf("fragment = %+v", frag)
	}
}

func TestDegradedDiarizerStillEmits(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.stt.Result = stt.Result{Text: "hola amigos", Language: "es"}
	f.diarizer.DiarizeErr = errors.New("sidecar down")
	s := New(testConfig(ModeContinuous), col)

	s.AppendAudio(secsChunk(2))
	s.triggerFast()
	if _, ok := waitEvent(t, s).(PreliminaryTranscriptEvent); !ok {
		t.Fatal("want preliminary first")
	}

	s.triggerSlow()
	ev, ok := waitEvent(t, s).(EnrichedTranscriptsEvent)
	if !ok {
		t.Fatal("want enriched_transcripts despite diarizer failure")
	}
	if len(ev.Segments) != 0 {
		t.Errorf("want no segments, got %d", len(ev.Segments))
	}
	if len(ev.Fragments) != 1 {
		t.Fatalf("want 1 fragment, got %d", len(ev.Fragments))
	}
	frag := ev.Fragments[0]
	if frag.Speaker != ProvisionalSpeaker {
		t.Errorf("speaker = %q, want provisional retained", frag.Speaker)
	}
	if frag.Translation == "" {
		t.Error("translation missing on degraded diarization")
	}
	if f.insights.calls() != 1 {
		t.Errorf("want insights extracted, got %d calls", f.insights.calls())
	}
}

func TestFailingTranslatorDegradesFragments(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.stt.Result = stt.Result{Text: "hola amigos", Language: "es"}
	f.diarizer.Turns = []diarize.Turn{{Start: 0, End: 2, Label: "A"}}
	f.mt.TranslateErr = errors.New("sidecar down")

	cfg := testConfig(ModeSingleShot)
	cfg.TargetLanguage = "fr"
	s := New(cfg, col)

	s.AppendAudio(secsChunk(2))
	if err := s.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, ok := waitEvent(t, s).(ProcessingStartedEvent); !ok {
		t.Fatal("want processing_started")
	}
	ev, ok := waitEvent(t, s).(EnrichedTranscriptsEvent)
	if !ok {
		t.Fatal("want enriched_transcripts despite translator failure")
	}
	frag := ev.Fragments[0]
	if frag.Translation != "hola amigos" || frag.TranslationLanguage != "es" {
		t.Errorf("fragment carries %q in %q, want the original text and language", frag.Translation, frag.TranslationLanguage)
	}
	if !frag.TranslationDegraded {
		t.Error("fragment not flagged degraded after a failed translation")
	}
}

func TestRetranslateReusesRegistry(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	f.stt.Result = stt.Result{Text: "bonjour", Language: "fr"}
	f.diarizer.Turns = []diarize.Turn{{Start: 0, End: 2, Label: "A"}}
	s := New(testConfig(ModeSingleShot), col)

	s.AppendAudio(secsChunk(2))
	if err := s.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, ok := waitEvent(t, s).(ProcessingStartedEvent); !ok {
		t.Fatal("want processing_started")
	}
	first, ok := waitEvent(t, s).(EnrichedTranscriptsEvent)
	if !ok {
		t.Fatal("want enriched_transcripts")
	}
	if first.Fragments[0].Speaker != "SPEAKER_1" {
		t.Fatalf("first speaker = %q", first.Fragments[0].Speaker)
	}
	if first.Fragments[0].Translation != "[fr-en] bonjour" {
		t.Errorf("first translation = %q", first.Fragments[0].Translation)
	}

	if err := s.Retranslate(secsChunk(2), "Spanish"); err != nil {
		t.Fatalf("retranslate: %v", err)
	}
	if _, ok := waitEvent(t, s).(ProcessingStartedEvent); !ok {
		t.Fatal("want processing_started for retranslation")
	}
	second, ok := waitEvent(t, s).(EnrichedTranscriptsEvent)
	if !ok {
		t.Fatal("want enriched_transcripts for retranslation")
	}
	if second.Fragments[0].Speaker != "SPEAKER_1" {
		t.Errorf("retranslation speaker = %q, want same SPEAKER_1", second.Fragments[0].Speaker)
	}
	// fr->es has no direct model: pivot through English.
	if second.Fragments[0].Translation != "[en-es] [fr-en] bonjour" {
		t.Errorf("retranslation = %q", second.Fragments[0].Translation)
	}
	if s.registry.Len() != 1 {
		t.Errorf("registry size = %d, want 1", s.registry.Len())
	}
}

func TestFinalizeEmptyBufferReportsError(t *testing.T) {
	t.Parallel()

	col, f := newFixtures()
	s := New(testConfig(ModeSingleShot), col)

	if err := s.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := waitEvent(t, s).(ErrorEvent); !ok {
		t.Fatal("want error event for empty finalize")
	}
	if f.diarizer.CallCount() != 0 {
		t.Errorf("want no pipeline run, got %d diarizer calls", f.diarizer.CallCount())
	}
}

func TestSetTargetLanguage(t *testing.T) {
	t.Parallel()

	col, _ := newFixtures()
	s := New(testConfig(ModeContinuous), col)

	if got := s.SetTargetLanguage("Frnech"); got != "fr" {
		t.Errorf("SetTargetLanguage = %q, want fr", got)
	}
	ev, ok := waitEvent(t, s).(LanguageChangedEvent)
	if !ok {
		t.Fatal("want language_changed event")
	}
	if ev.Target != "fr" {
		t.Errorf("event target = %q", ev.Target)
	}
	if s.TargetLanguage() != "fr" {
		t.Errorf("TargetLanguage() = %q", s.TargetLanguage())
	}
}

func TestRunCancellationClosesEvents(t *testing.T) {
	t.Parallel()

	col, _ := newFixtures()
	cfg := testConfig(ModeContinuous)
	cfg.FastInterval = 10 * time.Millisecond
	cfg.SlowInterval = 20 * time.Millisecond
	s := New(cfg, col)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// The events channel must close once in-flight work is done.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-s.Events():
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("events channel never closed")
		}
	}
}

func TestFinalizeAfterCloseReturnsErrClosed(t *testing.T) {
	t.Parallel()

	col, _ := newFixtures()
	s := New(testConfig(ModeSingleShot), col)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	<-done

	s.AppendAudio(secsChunk(2))
	if err := s.Finalize(); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
}
