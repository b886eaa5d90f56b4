package resilience

import (
	"errors"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or
// sits behind an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-entry circuit breaker created for each
// provider in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// fallbackEntry pairs a provider value with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// attempt runs fn through the entry's breaker and logs why the group is
// moving on when it fails.
func (e *fallbackEntry[T]) attempt(fn func(T) error) error {
	err := e.breaker.Execute(func() error { return fn(e.value) })
	switch {
	case err == nil:
	case errors.Is(err, ErrCircuitOpen):
		slog.Debug("skipping provider (circuit open)", "provider", e.name)
	default:
		slog.Warn("provider failed, trying next", "provider", e.name, "error", err)
	}
	return err
}

// FallbackGroup holds a primary and zero or more fallback instances of one
// provider type, each behind its own circuit breaker. Calls go to the first
// entry that is healthy and succeeds, in registration order.
//
// FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as the first entry. Register
// more with [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a provider tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, v T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   v,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute tries fn against each entry in order until one succeeds.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry until one succeeds and
// returns its result. A package-level function because Go methods cannot add
// type parameters. When every entry fails, the last error is joined with
// [ErrAllFailed] so sentinel errors from the final backend stay visible to
// errors.Is.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		result  R
		lastErr error
	)
	for i := range fg.entries {
		err := fg.entries[i].attempt(func(v T) error {
			var callErr error
			result, callErr = fn(v)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	var zero R
	return zero, errors.Join(ErrAllFailed, lastErr)
}
