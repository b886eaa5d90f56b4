// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the insight extractor sends
// correct CompletionRequests and to feed controlled tool-call responses
// without a live LLM backend.
package mock

import (
	"context"
	"sync"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause Complete to return an empty
// response and nil error. Set CompleteErr to inject errors.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by every Complete call unless
	// CompleteResponses is set.
	CompleteResponse *llm.CompletionResponse

	// CompleteResponses, when non-empty, is consumed one entry per call
	// (the last entry repeats once exhausted).
	CompleteResponses []*llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := len(p.CompleteCalls)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Req: req})
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if len(p.CompleteResponses) > 0 {
		if idx >= len(p.CompleteResponses) {
			idx = len(p.CompleteResponses) - 1
		}
		return p.CompleteResponses[idx], nil
	}
	if p.CompleteResponse != nil {
		return p.CompleteResponse, nil
	}
	return &llm.CompletionResponse{}, nil
}

// CallCount returns the number of Complete invocations so far. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// ResetCalls clears all recorded call history. Thread-safe.
func (p *Provider) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
