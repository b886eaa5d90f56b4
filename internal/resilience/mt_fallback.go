package resilience

import (
	"context"
	"errors"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
)

// MTFallback implements [mt.Translator] with automatic failover across
// multiple translation backends. Each backend has its own circuit breaker.
//
// [mt.ErrPairUnavailable] does not count as a backend failure for breaker
// accounting — a missing model pair says nothing about the backend's health —
// but it does move the attempt to the next entry, since fallback engines may
// carry models the primary lacks. When every backend misses the pair the
// sentinel stays visible through the returned error so routing logic can
// fall back to pivoting.
type MTFallback struct {
	group *FallbackGroup[mt.Translator]
}

// Compile-time interface assertion.
var _ mt.Translator = (*MTFallback)(nil)

// NewMTFallback creates an [MTFallback] with primary as the preferred backend.
func NewMTFallback(primary mt.Translator, primaryName string, cfg FallbackConfig) *MTFallback {
	if cfg.CircuitBreaker.IsFailure == nil {
		cfg.CircuitBreaker.IsFailure = func(err error) bool {
			return !errors.Is(err, mt.ErrPairUnavailable)
		}
	}
	return &MTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional translator as a fallback.
func (f *MTFallback) AddFallback(name string, tr mt.Translator) {
	f.group.AddFallback(name, tr)
}

// Translate translates text using the first backend that serves the pair.
func (f *MTFallback) Translate(ctx context.Context, pair mt.Pair, text string) (string, error) {
	return ExecuteWithResult(f.group, func(tr mt.Translator) (string, error) {
		return tr.Translate(ctx, pair, text)
	})
}

// Pairs returns the union of language pairs across all backends, so that a
// pair served only by a fallback engine is still advertised as routable.
// Backend errors are tolerated as long as at least one backend answers.
func (f *MTFallback) Pairs(ctx context.Context) ([]mt.Pair, error) {
	seen := make(map[mt.Pair]bool)
	var union []mt.Pair
	var lastErr error
	answered := false

	for i := range f.group.entries {
		entry := &f.group.entries[i]
		var pairs []mt.Pair
		err := entry.breaker.Execute(func() error {
			var innerErr error
			pairs, innerErr = entry.value.Pairs(ctx)
			return innerErr
		})
		if err != nil {
			lastErr = err
			continue
		}
		answered = true
		for _, p := range pairs {
			if !seen[p] {
				seen[p] = true
				union = append(union, p)
			}
		}
	}
	if !answered {
		return nil, errors.Join(ErrAllFailed, lastErr)
	}
	return union, nil
}
