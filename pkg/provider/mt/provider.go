// Package mt defines the Translator interface for machine translation
// backends.
//
// Backends are modeled as a set of directed language pairs: a model that
// translates Spanish to English is a different resource than one that
// translates English to Spanish. The routing layer decides which pairs to
// use (and whether to pivot through an intermediate language); this package
// only exposes what a single backend can do.
//
// Implementations must be safe for concurrent use across sessions.
package mt

import (
	"context"
	"errors"
)

// ErrPairUnavailable is returned by Translate when the backend has no model
// for the requested language pair.
var ErrPairUnavailable = errors.New("mt: language pair unavailable")

// Pair is a directed translation pair of ISO 639-1 language codes.
type Pair struct {
	Source string
	Target string
}

// Translator is the abstraction over any machine translation backend.
type Translator interface {
	// Translate translates text from pair.Source into pair.Target.
	// It returns ErrPairUnavailable (possibly wrapped) when the backend has
	// no model for the pair.
	Translate(ctx context.Context, pair Pair, text string) (string, error)

	// Pairs reports the directed pairs this backend can serve.
	Pairs(ctx context.Context) ([]Pair, error)
}
