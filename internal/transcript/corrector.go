// Package transcript corrects recurring speech-recognition mis-hearings of
// meeting-specific vocabulary: participant names, product names, project
// codenames. Generic STT models reliably mangle these, and they are exactly
// the words a meeting transcript cannot afford to get wrong.
package transcript

import (
	"strings"

	"github.com/weihan0529/global-meeting-scribe/internal/transcript/phonetic"
)

// Correction records one glossary substitution applied to a transcript.
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
}

// Option is a functional option for configuring a [GlossaryCorrector].
type Option func(*GlossaryCorrector)

// WithMatcher replaces the default phonetic matcher.
func WithMatcher(m *phonetic.Matcher) Option {
	return func(c *GlossaryCorrector) {
		c.matcher = m
	}
}

// GlossaryCorrector rewrites transcribed text so that words phonetically
// close to a glossary term are replaced by the term itself. It is read-only
// after construction and safe for concurrent use.
type GlossaryCorrector struct {
	matcher  *phonetic.Matcher
	terms    []string
	maxWords int
}

// NewGlossaryCorrector builds a corrector over the given glossary. Empty
// and whitespace-only terms are dropped.
func NewGlossaryCorrector(terms []string, opts ...Option) *GlossaryCorrector {
	c := &GlossaryCorrector{matcher: phonetic.New()}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		c.terms = append(c.terms, t)
		if n := len(strings.Fields(t)); n > c.maxWords {
			c.maxWords = n
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Terms returns the glossary the corrector was built with.
func (c *GlossaryCorrector) Terms() []string {
	out := make([]string, len(c.terms))
	copy(out, c.terms)
	return out
}

// Correct rewrites text and reports the substitutions made. When nothing
// matches, text is returned unchanged with no corrections.
//
// The text is tokenised into whitespace-separated words and scanned left to
// right. At each position n-gram windows are tried from the longest
// glossary term down to a single word, so multi-word terms take precedence
// over partial single-word matches. The window advances past each match.
func (c *GlossaryCorrector) Correct(text string) (string, []Correction) {
	if len(c.terms) == 0 {
		return text, nil
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var output []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := c.maxWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			term, conf, ok := c.matcher.Match(window, c.terms)
			if !ok || strings.EqualFold(window, term) {
				continue
			}

			output = append(output, strings.Fields(term)...)
			corrections = append(corrections, Correction{
				Original:   window,
				Corrected:  term,
				Confidence: conf,
			})
			i += n
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	if len(corrections) == 0 {
		return text, nil
	}
	return strings.Join(output, " "), corrections
}
