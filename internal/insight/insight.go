// Package insight extracts discussion insights from meeting transcript text.
//
// Extraction runs once per enrichment window over the concatenated original
// transcript. The model is offered one tool per insight kind and every tool
// call it makes becomes one insight; free-text replies are ignored so a
// chatty model cannot pollute the result.
package insight

import "context"

// Kind classifies an extracted insight.
type Kind string

const (
	KindKeyPoint   Kind = "key_point"
	KindDecision   Kind = "decision"
	KindActionItem Kind = "action_item"
)

// Insight is one extracted discussion item.
type Insight struct {
	Kind Kind `json:"kind"`

	// Text is the insight content: the point made, the decision taken, or
	// the task to be done.
	Text string `json:"text"`

	// Owner is who an action item is assigned to, when the model could
	// tell. Empty for other kinds.
	Owner string `json:"owner,omitempty"`

	// Due is a free-form due date for an action item, when mentioned.
	Due string `json:"due,omitempty"`
}

// Extractor is the abstraction over any insight extraction backend.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Extract pulls insights out of transcript. An empty slice means the
	// text contained nothing noteworthy; blank transcripts short-circuit
	// without a backend call.
	Extract(ctx context.Context, transcript string) ([]Insight, error)
}
