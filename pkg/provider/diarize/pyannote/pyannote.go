// Package pyannote implements diarize.Diarizer against a pyannote HTTP
// sidecar. Audio is shipped as a mono 16-bit WAV multipart upload; the
// sidecar responds with speaker-attributed segments.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize"
)

// Compile-time check that *Diarizer satisfies [diarize.Diarizer].
var _ diarize.Diarizer = (*Diarizer)(nil)

const (
	defaultBaseURL = "http://localhost:8388"
	defaultTimeout = 120 * time.Second
)

// Diarizer calls a pyannote diarization sidecar over HTTP.
// Safe for concurrent use.
type Diarizer struct {
	baseURL string
	client  *http.Client
}

// Option is a functional option for configuring a Diarizer.
type Option func(*Diarizer)

// WithTimeout sets the per-request HTTP timeout. Default 120 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Diarizer) { p.client.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. Mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Diarizer) { p.client = c }
}

// New creates a Diarizer talking to the sidecar at baseURL. An empty
// baseURL selects the default local sidecar address.
func New(baseURL string, opts ...Option) *Diarizer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	d := &Diarizer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Healthy reports whether the sidecar answers its health endpoint.
func (d *Diarizer) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Diarize implements [diarize.Diarizer].
func (d *Diarizer) Diarize(ctx context.Context, chunk audio.Chunk) ([]diarize.Turn, error) {
	if chunk.Empty() {
		return nil, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("pyannote: create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(chunk)); err != nil {
		return nil, fmt.Errorf("pyannote: write audio data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("pyannote: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pyannote: diarization request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pyannote: diarization error (status %d): %s", resp.StatusCode, string(body))
	}

	var result sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pyannote: decode diarization response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("pyannote: diarization error: %s", result.Error)
	}

	turns := make([]diarize.Turn, 0, len(result.Segments))
	for _, seg := range result.Segments {
		if seg.Start >= seg.End {
			continue
		}
		turns = append(turns, diarize.Turn{
			Start: seg.Start,
			End:   seg.End,
			Label: seg.Speaker,
		})
	}
	return turns, nil
}

// --- internal sidecar API types ---

type sidecarResponse struct {
	Segments []sidecarSegment `json:"segments"`
	Error    string           `json:"error,omitempty"`
}

type sidecarSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}
