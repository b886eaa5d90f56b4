// Package opusmt implements mt.Translator against an OPUS-MT HTTP sidecar.
//
// The sidecar hosts one Helsinki-NLP MarianMT model per directed language
// pair and exposes them under a single JSON API:
//
//	GET  /pairs                -> {"pairs": ["es-en", "en-es", ...]}
//	POST /translate            <- {"source": "es", "target": "en", "text": "..."}
//	                           -> {"translation": "...", "error": "..."}
//
// A request for a pair the sidecar has no model for yields HTTP 404, which
// is surfaced as mt.ErrPairUnavailable so routing can degrade instead of
// failing the whole window.
package opusmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
)

// Compile-time check that *Translator satisfies [mt.Translator].
var _ mt.Translator = (*Translator)(nil)

const (
	defaultBaseURL = "http://localhost:8389"
	defaultTimeout = 30 * time.Second
)

// Translator calls an OPUS-MT translation sidecar over HTTP.
// Safe for concurrent use.
type Translator struct {
	baseURL string
	client  *http.Client
}

// Option is a functional option for configuring a Translator.
type Option func(*Translator)

// WithTimeout sets the per-request HTTP timeout. Default 30 s.
func WithTimeout(d time.Duration) Option {
	return func(t *Translator) { t.client.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. Mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Translator) { t.client = c }
}

// New creates a Translator talking to the sidecar at baseURL. An empty
// baseURL selects the default local sidecar address.
func New(baseURL string, opts ...Option) *Translator {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	t := &Translator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Healthy reports whether the sidecar answers its health endpoint.
func (t *Translator) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Translate implements [mt.Translator].
func (t *Translator) Translate(ctx context.Context, pair mt.Pair, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	payload, err := json.Marshal(translateRequest{
		Source: pair.Source,
		Target: pair.Target,
		Text:   text,
	})
	if err != nil {
		return "", fmt.Errorf("opusmt: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("opusmt: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("opusmt: translation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("opusmt: %s->%s: %w", pair.Source, pair.Target, mt.ErrPairUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("opusmt: translation error (status %d): %s", resp.StatusCode, string(body))
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("opusmt: decode translation response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("opusmt: translation error: %s", result.Error)
	}
	return result.Translation, nil
}

// Pairs implements [mt.Translator].
func (t *Translator) Pairs(ctx context.Context) ([]mt.Pair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/pairs", nil)
	if err != nil {
		return nil, fmt.Errorf("opusmt: create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opusmt: pairs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("opusmt: pairs error (status %d): %s", resp.StatusCode, string(body))
	}

	var result pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("opusmt: decode pairs response: %w", err)
	}

	pairs := make([]mt.Pair, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		src, dst, ok := strings.Cut(p, "-")
		if !ok || src == "" || dst == "" {
			continue
		}
		pairs = append(pairs, mt.Pair{Source: src, Target: dst})
	}
	return pairs, nil
}

// --- internal sidecar API types ---

type translateRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

type translateResponse struct {
	Translation string `json:"translation"`
	Error       string `json:"error,omitempty"`
}

type pairsResponse struct {
	Pairs []string `json:"pairs"`
}
