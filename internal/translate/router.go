// Package translate routes text through a machine translation backend.
//
// Routing has three shapes. When source and target match, the text passes
// through untouched. When the backend serves the pair directly, a single
// request does the job. Otherwise the router pivots through English:
// source to English, then English to the target. Each hop degrades
// independently when its model is missing or its call fails, so the caller
// always receives usable text in the best language the backend could reach.
package translate

import (
	"context"
	"log/slog"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
)

// pivotLanguage is the intermediate language for indirect routes.
const pivotLanguage = "en"

// Result is the outcome of one routing decision.
type Result struct {
	// Text is the best translation the router could produce.
	Text string

	// Language is the ISO 639-1 code Text is actually in. Equal to the
	// requested target unless the route degraded.
	Language string

	// Degraded is true when a missing model forced the router to stop
	// short of the requested target.
	Degraded bool
}

// Router decides how to move text between languages using one backend.
// Safe for concurrent use.
type Router struct {
	translator mt.Translator
	table      *PairTable
	logger     *slog.Logger
}

// NewRouter creates a Router over the given backend and pair table.
// A nil logger falls back to slog.Default().
func NewRouter(translator mt.Translator, table *PairTable, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		translator: translator,
		table:      table,
		logger:     logger,
	}
}

// Translate moves text from source into target, both ISO 639-1 codes.
//
// Translate never fails. A hop that errors at call time counts the same as
// a hop whose model is missing: the router tries the next route and, when
// none is left, hands back the best text it reached with Degraded set and
// Language reporting what that text is actually in:
//
//   - pivot succeeded but the English-to-target leg is gone:
//     English text, Degraded true
//   - the source-to-English leg is gone: original text, Degraded true
func (r *Router) Translate(ctx context.Context, text, source, target string) Result {
	if source == target {
		return Result{Text: text, Language: target}
	}

	// Direct route. Any failure here, a stale table entry or a backend
	// fault, sends the request down the pivot route instead.
	if r.table.Has(source, target) {
		out, err := r.translator.Translate(ctx, mt.Pair{Source: source, Target: target}, text)
		if err == nil {
			return Result{Text: out, Language: target}
		}
		r.logger.Warn("direct translation failed, pivoting",
			"source", source, "target", target, "error", err)
	}

	return r.pivot(ctx, text, source, target)
}

// pivot routes source->en->target with per-leg degradation.
func (r *Router) pivot(ctx context.Context, text, source, target string) Result {
	intermediate := text
	if source != pivotLanguage {
		if !r.table.Has(source, pivotLanguage) {
			r.logger.Warn("no route to pivot language, passing original through",
				"source", source, "target", target)
			return Result{Text: text, Language: source, Degraded: true}
		}
		out, err := r.translator.Translate(ctx, mt.Pair{Source: source, Target: pivotLanguage}, text)
		if err != nil {
			r.logger.Warn("pivot leg failed, passing original through",
				"source", source, "target", target, "error", err)
			return Result{Text: text, Language: source, Degraded: true}
		}
		intermediate = out
	}

	if target == pivotLanguage {
		return Result{Text: intermediate, Language: pivotLanguage}
	}

	if !r.table.Has(pivotLanguage, target) {
		r.logger.Warn("no model from pivot language to target, returning intermediate",
			"source", source, "target", target)
		return Result{Text: intermediate, Language: pivotLanguage, Degraded: true}
	}
	out, err := r.translator.Translate(ctx, mt.Pair{Source: pivotLanguage, Target: target}, intermediate)
	if err != nil {
		r.logger.Warn("target leg failed, returning intermediate",
			"source", source, "target", target, "error", err)
		return Result{Text: intermediate, Language: pivotLanguage, Degraded: true}
	}
	return Result{Text: out, Language: target}
}
