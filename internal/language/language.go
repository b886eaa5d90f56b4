// Package language maps human language names onto ISO 639-1 codes.
//
// Clients and models are sloppy about language identifiers: a target may
// arrive as "English", "english", "en", or a close misspelling such as
// "Englsh". Everything downstream (translation routing, transcription
// hints) works on ISO codes only, so this package normalizes the input
// once at the edge.
package language

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Fallback is the code returned when a name cannot be resolved.
const Fallback = "en"

// fuzzyMaxDistance is the largest edit distance accepted when matching a
// misspelled language name.
const fuzzyMaxDistance = 2

// names maps canonical lowercase language names to ISO 639-1 codes.
var names = map[string]string{
	"english": "en",
	"spanish": "es",
	"chinese": "zh",
	"french":  "fr",
}

// displayNames maps codes back to display names.
var displayNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"zh": "Chinese",
	"fr": "French",
}

// Code resolves a language name or code to an ISO 639-1 code.
//
// Resolution is case-insensitive and tolerant of small misspellings.
// Unresolvable input falls back to [Fallback] rather than erroring, so a
// garbled target language degrades to English output instead of killing
// the session.
func Code(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return Fallback
	}
	if _, ok := displayNames[s]; ok {
		return s
	}
	if code, ok := names[s]; ok {
		return code
	}

	// Fuzzy pass for misspellings. Ties resolve to the first candidate in
	// canonical order so results are deterministic.
	best, bestDist := "", fuzzyMaxDistance+1
	for _, canonical := range canonicalOrder {
		dist := matchr.DamerauLevenshtein(s, canonical)
		if dist < bestDist {
			best, bestDist = names[canonical], dist
		}
	}
	if best != "" {
		return best
	}
	return Fallback
}

// canonicalOrder fixes iteration order for the fuzzy pass.
var canonicalOrder = []string{"english", "spanish", "chinese", "french"}

// Name returns the display name for an ISO 639-1 code, or the code itself
// when unknown.
func Name(code string) string {
	if n, ok := displayNames[strings.ToLower(code)]; ok {
		return n
	}
	return code
}

// Supported reports whether code is one of the languages the service
// ships translation and transcription support for.
func Supported(code string) bool {
	_, ok := displayNames[strings.ToLower(code)]
	return ok
}
