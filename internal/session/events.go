package session

import (
	"encoding/json"

	"github.com/weihan0529/global-meeting-scribe/internal/insight"
)

// Event is a structured message emitted by a session toward its transport.
// Concrete event types marshal directly to the client wire format.
type Event interface {
	eventType() string
}

// PreliminaryTranscriptEvent carries a fast-path fragment: transcribed but
// not yet diarized or translated.
type PreliminaryTranscriptEvent struct {
	Fragment Fragment
}

func (PreliminaryTranscriptEvent) eventType() string { return "preliminary_transcript" }

// MarshalJSON implements json.Marshaler.
func (e PreliminaryTranscriptEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string   `json:"type"`
		Data Fragment `json:"data"`
	}{Type: e.eventType(), Data: e.Fragment})
}

// EnrichedTranscriptsEvent carries the result of one slow-path run: the
// reconciled fragments, the diarized turns, and any extracted insights.
type EnrichedTranscriptsEvent struct {
	Fragments []Fragment
	Segments  []Segment
	Insights  []insight.Insight
}

func (EnrichedTranscriptsEvent) eventType() string { return "enriched_transcripts" }

// MarshalJSON implements json.Marshaler.
func (e EnrichedTranscriptsEvent) MarshalJSON() ([]byte, error) {
	type data struct {
		EnrichedTranscripts []Fragment `json:"enriched_transcripts"`
		DiarizationResult   []Segment  `json:"diarization_result"`
	}
	frags := e.Fragments
	if frags == nil {
		frags = []Fragment{}
	}
	segs := e.Segments
	if segs == nil {
		segs = []Segment{}
	}
	ins := e.Insights
	if ins == nil {
		ins = []insight.Insight{}
	}
	return json.Marshal(struct {
		Type     string            `json:"type"`
		Data     data              `json:"data"`
		Insights []insight.Insight `json:"insights"`
	}{
		Type:     e.eventType(),
		Data:     data{EnrichedTranscripts: frags, DiarizationResult: segs},
		Insights: ins,
	})
}

// ProcessingStartedEvent acknowledges that a full-pipeline run began.
type ProcessingStartedEvent struct{}

func (ProcessingStartedEvent) eventType() string { return "processing_started" }

// MarshalJSON implements json.Marshaler.
func (e ProcessingStartedEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: e.eventType()})
}

// LanguageChangedEvent confirms a target language switch.
type LanguageChangedEvent struct {
	Target string
}

func (LanguageChangedEvent) eventType() string { return "language_changed" }

// MarshalJSON implements json.Marshaler.
func (e LanguageChangedEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status string `json:"status"`
		Target string `json:"target_language"`
	}{Status: e.eventType(), Target: e.Target})
}

// ErrorEvent reports a recoverable failure to the client. The session
// stays open after sending one.
type ErrorEvent struct {
	Message string
	Details string
}

func (ErrorEvent) eventType() string { return "error" }

// MarshalJSON implements json.Marshaler.
func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error   string `json:"error"`
		Details string `json:"details,omitempty"`
	}{Error: e.Message, Details: e.Details})
}
