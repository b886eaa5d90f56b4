package insight

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/llm"
	llmmock "github.com/weihan0529/global-meeting-scribe/pkg/provider/llm/mock"
	"github.com/weihan0529/global-meeting-scribe/pkg/types"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestExtractDecodesToolCalls(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			ToolCalls: []types.ToolCall{
				{ID: "1", Name: "extract_key_point", Arguments: `{"point":"Budget is over by 10%"}`},
				{ID: "2", Name: "extract_decision", Arguments: `{"decision":"Ship the beta on Friday"}`},
				{ID: "3", Name: "extract_action_item", Arguments: `{"task":"Update the roadmap","owner":"Dana","due_date":"next Tuesday"}`},
			},
		},
	}
	e := NewLLMExtractor(p, discard())

	insights, err := e.Extract(context.Background(), "some transcript text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) != 3 {
		t.Fatalf("want 3 insights, got %d: %+v", len(insights), insights)
	}
	if insights[0].Kind != KindKeyPoint || insights[0].Text != "Budget is over by 10%" {
		t.Errorf("key point: %+v", insights[0])
	}
	if insights[1].Kind != KindDecision || insights[1].Text != "Ship the beta on Friday" {
		t.Errorf("decision: %+v", insights[1])
	}
	got := insights[2]
	if got.Kind != KindActionItem || got.Text != "Update the roadmap" || got.Owner != "Dana" || got.Due != "next Tuesday" {
		t.Errorf("action item: %+v", got)
	}
}

func TestExtractBlankTranscriptSkipsBackend(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{}
	e := NewLLMExtractor(p, discard())

	insights, err := e.Extract(context.Background(), "  \n ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights != nil {
		t.Errorf("want nil insights, got %v", insights)
	}
	if p.CallCount() != 0 {
		t.Errorf("want no backend calls, got %d", p.CallCount())
	}
}

func TestExtractSkipsMalformedCalls(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			ToolCalls: []types.ToolCall{
				{ID: "1", Name: "extract_key_point", Arguments: `{"point":`},
				{ID: "2", Name: "summon_demon", Arguments: `{}`},
				{ID: "3", Name: "extract_decision", Arguments: `{"decision":"Keep the old logo"}`},
				{ID: "4", Name: "extract_action_item", Arguments: `{"owner":"nobody"}`},
			},
		},
	}
	e := NewLLMExtractor(p, discard())

	insights, err := e.Extract(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("want 1 insight, got %d: %+v", len(insights), insights)
	}
	if insights[0].Kind != KindDecision {
		t.Errorf("unexpected insight: %+v", insights[0])
	}
}

func TestExtractNoToolCallsMeansNoInsights(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Nothing noteworthy here."},
	}
	e := NewLLMExtractor(p, discard())

	insights, err := e.Extract(context.Background(), "small talk about the weather")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) != 0 {
		t.Errorf("want no insights, got %+v", insights)
	}
}

func TestExtractOffersAllTools(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{}
	e := NewLLMExtractor(p, discard())

	if _, err := e.Extract(context.Background(), "transcript"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("want 1 call, got %d", len(p.CompleteCalls))
	}
	req := p.CompleteCalls[0].Req
	if len(req.Tools) != 3 {
		t.Fatalf("want 3 tools, got %d", len(req.Tools))
	}
	names := map[string]bool{}
	for _, tool := range req.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"extract_key_point", "extract_decision", "extract_action_item"} {
		if !names[want] {
			t.Errorf("missing tool %q", want)
		}
	}
	if req.SystemPrompt == "" {
		t.Error("missing system prompt")
	}
}

func TestExtractBackendErrorPropagates(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteErr: errors.New("quota exceeded")}
	e := NewLLMExtractor(p, discard())

	if _, err := e.Extract(context.Background(), "transcript"); err == nil {
		t.Fatal("want error, got nil")
	}
}
