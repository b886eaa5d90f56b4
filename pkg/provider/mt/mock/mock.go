// Package mock provides a test double for the mt package interfaces.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
)

// TranslateCall records a single invocation of Translator.Translate.
type TranslateCall struct {
	Pair mt.Pair
	Text string
}

// Translator is a mock implementation of mt.Translator.
//
// By default every known pair translates by tagging the text, e.g.
// "hola" with pair es-en becomes "[es-en] hola", which lets tests assert
// on routing decisions without configuring per-input outputs.
type Translator struct {
	mu sync.Mutex

	// Known is the set of pairs the mock serves. Translate returns
	// mt.ErrPairUnavailable for any pair not listed. A nil map serves
	// every pair.
	Known map[mt.Pair]bool

	// Translations, when set, maps input text to output for matching
	// calls; unmatched inputs fall back to the tagging scheme.
	Translations map[string]string

	// TranslateErr, if non-nil, is returned by every Translate call.
	TranslateErr error

	// PairsErr, if non-nil, is returned by Pairs.
	PairsErr error

	// TranslateCalls records every call to Translate in order.
	TranslateCalls []TranslateCall
}

// Translate records the call and returns the configured translation.
func (t *Translator) Translate(_ context.Context, pair mt.Pair, text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranslateCalls = append(t.TranslateCalls, TranslateCall{Pair: pair, Text: text})
	if t.TranslateErr != nil {
		return "", t.TranslateErr
	}
	if t.Known != nil && !t.Known[pair] {
		return "", fmt.Errorf("mock: %s->%s: %w", pair.Source, pair.Target, mt.ErrPairUnavailable)
	}
	if out, ok := t.Translations[text]; ok {
		return out, nil
	}
	return fmt.Sprintf("[%s-%s] %s", pair.Source, pair.Target, text), nil
}

// Pairs returns the configured pair set in unspecified order.
func (t *Translator) Pairs(_ context.Context) ([]mt.Pair, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.PairsErr != nil {
		return nil, t.PairsErr
	}
	pairs := make([]mt.Pair, 0, len(t.Known))
	for p, ok := range t.Known {
		if ok {
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}

// CallCount returns the number of Translate invocations so far. Thread-safe.
func (t *Translator) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.TranslateCalls)
}

// ResetCalls clears all recorded call history. Thread-safe.
func (t *Translator) ResetCalls() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranslateCalls = nil
}

// Ensure Translator implements mt.Translator at compile time.
var _ mt.Translator = (*Translator)(nil)
