// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (e.g., Google Gemini,
// OpenAI GPT-4o, or a local Ollama instance) and exposes a uniform completion
// interface for the insight extractor without coupling to any specific SDK.
// Insight extraction is a batch operation over a finished window of
// transcript, so only non-streaming completion with tool calling is modeled.
//
// Implementations must be safe for concurrent use.
package llm

import (
	"context"

	"github.com/weihan0529/global-meeting-scribe/pkg/types"
)

// Usage holds token accounting information returned by the LLM backend.
// Counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []types.Message

	// Tools is the set of function/tool definitions offered to the model.
	// The model may choose to call one or more of them in its response.
	Tools []types.ToolDefinition

	// Temperature controls output randomness in the range [0.0, 2.0].
	// A value of 0.0 typically requests greedy decoding.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history. If the provider does not natively support a
	// dedicated system prompt, implementors should prepend it as a
	// "system"-role message.
	SystemPrompt string
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply. Empty when the
	// model responds exclusively with tool calls.
	Content string

	// ToolCalls lists all tool invocations requested by the model. The
	// caller is responsible for interpreting them.
	ToolCalls []types.ToolCall

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or if ctx is cancelled before
	// the completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
