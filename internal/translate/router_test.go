package translate

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
	mtmock "github.com/weihan0529/global-meeting-scribe/pkg/provider/mt/mock"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTranslateSameLanguagePassesThrough(t *testing.T) {
	t.Parallel()

	tr := &mtmock.Translator{}
	r := NewRouter(tr, DefaultPairTable(), discard())

	res := r.Translate(context.Background(), "hello there", "en", "en")
	if res.Text != "hello there" || res.Language != "en" || res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
	if tr.CallCount() != 0 {
		t.Errorf("want no backend calls, got %d", tr.CallCount())
	}
}

func TestTranslateDirectPair(t *testing.T) {
	t.Parallel()

	tr := &mtmock.Translator{}
	r := NewRouter(tr, DefaultPairTable(), discard())

	res := r.Translate(context.Background(), "buenos dias", "es", "en")
	if res.Text != "[es-en] buenos dias" || res.Language != "en" || res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
	if tr.CallCount() != 1 {
		t.Errorf("want 1 backend call, got %d", tr.CallCount())
	}
}

func TestTranslatePivotsThroughEnglish(t *testing.T) {
	t.Parallel()

	tr := &mtmock.Translator{}
	r := NewRouter(tr, DefaultPairTable(), discard())

	// es->fr is not in the default table, so the route is es->en->fr.
	res := r.Translate(context.Background(), "buenos dias", "es", "fr")
	if res.Text != "[en-fr] [es-en] buenos dias" || res.Language != "fr" || res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
	calls := tr.TranslateCalls
	if len(calls) != 2 {
		t.Fatalf("want 2 backend calls, got %d", len(calls))
	}
	if calls[0].Pair != (mt.Pair{Source: "es", Target: "en"}) {
		t.Errorf("first leg pair = %v", calls[0].Pair)
	}
	if calls[1].Pair != (mt.Pair{Source: "en", Target: "fr"}) {
		t.Errorf("second leg pair = %v", calls[1].Pair)
	}
}

func TestTranslateDegradesToIntermediate(t *testing.T) {
	t.Parallel()

	// Only es->en is served; the en->fr leg is missing.
	table := NewPairTable([]mt.Pair{{Source: "es", Target: "en"}})
	tr := &mtmock.Translator{}
	r := NewRouter(tr, table, discard())

	res := r.Translate(context.Background(), "buenos dias", "es", "fr")
	if res.Text != "[es-en] buenos dias" || res.Language != "en" || !res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestTranslateDegradesToOriginal(t *testing.T) {
	t.Parallel()

	// Nothing routes out of Chinese.
	table := NewPairTable([]mt.Pair{{Source: "en", Target: "fr"}})
	tr := &mtmock.Translator{}
	r := NewRouter(tr, table, discard())

	res := r.Translate(context.Background(), "zao shang hao", "zh", "fr")
	if res.Text != "zao shang hao" || res.Language != "zh" || !res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
	if tr.CallCount() != 0 {
		t.Errorf("want no backend calls, got %d", tr.CallCount())
	}
}

func TestTranslateStalePairFallsBackToPivot(t *testing.T) {
	t.Parallel()

	// Table claims es->fr works but the backend dropped the model; the
	// pivot legs still exist.
	table := NewPairTable([]mt.Pair{
		{Source: "es", Target: "fr"},
		{Source: "es", Target: "en"},
		{Source: "en", Target: "fr"},
	})
	tr := &mtmock.Translator{Known: map[mt.Pair]bool{
		{Source: "es", Target: "en"}: true,
		{Source: "en", Target: "fr"}: true,
	}}
	r := NewRouter(tr, table, discard())

	res := r.Translate(context.Background(), "buenos dias", "es", "fr")
	if res.Text != "[en-fr] [es-en] buenos dias" || res.Language != "fr" || res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestTranslateBackendErrorDegrades(t *testing.T) {
	t.Parallel()

	// Every call blows up. The router must still hand back the original
	// text flagged as degraded, never an abort.
	tr := &mtmock.Translator{TranslateErr: errors.New("sidecar down")}
	r := NewRouter(tr, DefaultPairTable(), discard())

	res := r.Translate(context.Background(), "hola", "es", "fr")
	if res.Text != "hola" || res.Language != "es" || !res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestTranslateFailedDirectHopStillPivots(t *testing.T) {
	t.Parallel()

	// The direct es->fr call faults mid-request; the pivot legs answer.
	tr := &mtmock.Translator{}
	table := NewPairTable([]mt.Pair{
		{Source: "es", Target: "fr"},
		{Source: "es", Target: "en"},
		{Source: "en", Target: "fr"},
	})
	faulty := &faultyFirstCall{inner: tr}
	r := NewRouter(faulty, table, discard())

	res := r.Translate(context.Background(), "buenos dias", "es", "fr")
	if res.Text != "[en-fr] [es-en] buenos dias" || res.Language != "fr" || res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
	if faulty.calls != 3 {
		t.Errorf("backend calls = %d, want failed direct plus two pivot legs", faulty.calls)
	}
}

func TestTranslateFailedTargetLegReturnsIntermediate(t *testing.T) {
	t.Parallel()

	// es->en answers, en->fr faults. The English intermediate comes back
	// marked degraded.
	tr := &mtmock.Translator{Known: map[mt.Pair]bool{
		{Source: "es", Target: "en"}: true,
	}}
	table := NewPairTable([]mt.Pair{
		{Source: "es", Target: "en"},
		{Source: "en", Target: "fr"},
	})
	r := NewRouter(tr, table, discard())

	res := r.Translate(context.Background(), "buenos dias", "es", "fr")
	if res.Text != "[es-en] buenos dias" || res.Language != "en" || !res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestTranslatePivotTargetEnglish(t *testing.T) {
	t.Parallel()

	// Target is the pivot itself, so one leg suffices.
	table := NewPairTable([]mt.Pair{{Source: "zh", Target: "en"}})
	tr := &mtmock.Translator{}
	r := NewRouter(tr, table, discard())

	res := r.Translate(context.Background(), "ni hao", "zh", "en")
	if res.Text != "[zh-en] ni hao" || res.Language != "en" || res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
	if tr.CallCount() != 1 {
		t.Errorf("want 1 backend call, got %d", tr.CallCount())
	}
}

// faultyFirstCall errors the first Translate call and delegates the rest.
type faultyFirstCall struct {
	inner mt.Translator
	calls int
}

func (f *faultyFirstCall) Translate(ctx context.Context, pair mt.Pair, text string) (string, error) {
	f.calls++
	if f.calls == 1 {
		return "", errors.New("connection reset")
	}
	return f.inner.Translate(ctx, pair, text)
}

func (f *faultyFirstCall) Pairs(ctx context.Context) ([]mt.Pair, error) {
	return f.inner.Pairs(ctx)
}

func TestDefaultPairTable(t *testing.T) {
	t.Parallel()

	table := DefaultPairTable()
	if table.Len() != 6 {
		t.Fatalf("want 6 pairs, got %d", table.Len())
	}
	for _, other := range []string{"es", "fr", "zh"} {
		if !table.Has("en", other) || !table.Has(other, "en") {
			t.Errorf("missing en<->%s", other)
		}
	}
	if table.Has("es", "fr") {
		t.Error("unexpected direct es->fr")
	}
}
