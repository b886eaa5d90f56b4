package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/llm"
	"github.com/weihan0529/global-meeting-scribe/pkg/types"
)

// Compile-time check that *LLMExtractor satisfies [Extractor].
var _ Extractor = (*LLMExtractor)(nil)

const systemPrompt = `You are an analyst listening to a live meeting. You will receive a window of meeting transcript. Identify the key points made, the decisions reached, and the action items assigned in that window. Report each one by calling the matching tool exactly once per item. If the window contains nothing noteworthy, call no tools. Do not answer in plain text.`

// toolDefinitions is the fixed tool set offered to the model, one per
// insight kind.
var toolDefinitions = []types.ToolDefinition{
	{
		Name:        "extract_key_point",
		Description: "Record one key point that was made in the discussion.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"point": map[string]any{
					"type":        "string",
					"description": "The key point, stated as one concise sentence.",
				},
			},
			"required": []string{"point"},
		},
	},
	{
		Name:        "extract_decision",
		Description: "Record one decision the participants reached.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"decision": map[string]any{
					"type":        "string",
					"description": "The decision, stated as one concise sentence.",
				},
			},
			"required": []string{"decision"},
		},
	},
	{
		Name:        "extract_action_item",
		Description: "Record one action item that was assigned or agreed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{
					"type":        "string",
					"description": "What needs to be done.",
				},
				"owner": map[string]any{
					"type":        "string",
					"description": "Who is responsible, if stated.",
				},
				"due_date": map[string]any{
					"type":        "string",
					"description": "When it is due, if stated.",
				},
			},
			"required": []string{"task"},
		},
	},
}

// LLMExtractor implements Extractor on top of an llm.Provider.
// Safe for concurrent use.
type LLMExtractor struct {
	provider llm.Provider
	logger   *slog.Logger

	maxTokens int
}

// Option is a functional option for configuring an LLMExtractor.
type Option func(*LLMExtractor)

// WithMaxTokens caps the completion size. Default 1024.
func WithMaxTokens(n int) Option {
	return func(e *LLMExtractor) { e.maxTokens = n }
}

// NewLLMExtractor creates an extractor over the given provider.
// A nil logger falls back to slog.Default().
func NewLLMExtractor(provider llm.Provider, logger *slog.Logger, opts ...Option) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &LLMExtractor{
		provider:  provider,
		logger:    logger,
		maxTokens: 1024,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract implements [Extractor].
func (e *LLMExtractor) Extract(ctx context.Context, transcript string) ([]Insight, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []types.Message{
			{Role: "user", Content: transcript},
		},
		Tools:     toolDefinitions,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("insight: completion: %w", err)
	}

	var insights []Insight
	for _, tc := range resp.ToolCalls {
		ins, err := decodeToolCall(tc)
		if err != nil {
			// One malformed call must not cost the rest of the batch.
			e.logger.Warn("skipping malformed insight tool call",
				"tool", tc.Name, "error", err)
			continue
		}
		insights = append(insights, ins)
	}
	return insights, nil
}

func decodeToolCall(tc types.ToolCall) (Insight, error) {
	var args struct {
		Point    string `json:"point"`
		Decision string `json:"decision"`
		Task     string `json:"task"`
		Owner    string `json:"owner"`
		DueDate  string `json:"due_date"`
	}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return Insight{}, fmt.Errorf("decode arguments: %w", err)
	}

	switch tc.Name {
	case "extract_key_point":
		if args.Point == "" {
			return Insight{}, fmt.Errorf("missing point")
		}
		return Insight{Kind: KindKeyPoint, Text: args.Point}, nil
	case "extract_decision":
		if args.Decision == "" {
			return Insight{}, fmt.Errorf("missing decision")
		}
		return Insight{Kind: KindDecision, Text: args.Decision}, nil
	case "extract_action_item":
		if args.Task == "" {
			return Insight{}, fmt.Errorf("missing task")
		}
		return Insight{Kind: KindActionItem, Text: args.Task, Owner: args.Owner, Due: args.DueDate}, nil
	default:
		return Insight{}, fmt.Errorf("unknown tool %q", tc.Name)
	}
}
