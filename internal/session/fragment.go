package session

// ProvisionalSpeaker marks a fragment that has not been through
// diarization yet. Fast-path fragments carry it until the next slow-path
// run reconciles them against real speaker turns.
const ProvisionalSpeaker = "SPEAKER_PENDING"

// Fragment is one speaker-attributed piece of transcript. Times are in
// seconds relative to the start of the enrichment window it belongs to.
//
// A fragment is mutated at most twice after creation: once when a slow-path
// run corrects its speaker label, once when a translation is attached.
// After being emitted it must be treated as immutable.
type Fragment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Speaker is the persistent session-scoped label, or
	// ProvisionalSpeaker before diarization has seen this range.
	Speaker string `json:"speaker_label"`

	// Text is the original transcription.
	Text string `json:"original_transcript"`

	// Language is the detected ISO 639-1 code of Text.
	Language string `json:"detected_language"`

	// Translation is Text rendered in the session's target language.
	// Empty until the slow path runs.
	Translation string `json:"translated_transcript,omitempty"`

	// TranslationLanguage is the code Translation is actually in. It
	// differs from the session target when the route degraded.
	TranslationLanguage string `json:"translation_language,omitempty"`

	// TranslationDegraded is true when a missing model pair forced the
	// translation to stop short of the requested target.
	TranslationDegraded bool `json:"translation_degraded,omitempty"`
}

// Segment is one diarized speaker turn with its persistent label resolved.
// Times are in seconds relative to the enrichment window.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Speaker is the persistent session-scoped label.
	Speaker string `json:"speaker"`

	// Ephemeral is the label the diarizer assigned within this one call.
	// Kept for debugging; not part of the client payload.
	Ephemeral string `json:"-"`
}
