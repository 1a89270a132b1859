// Package whisperapi provides an asr.Provider backed by any
// Whisper-compatible transcription HTTP API (OpenAI, Groq, or a self-hosted
// gateway exposing POST {base}/audio/transcriptions).
//
// The provider uploads each clip as a WAV file in a multipart form and
// requests verbose_json output with word-level timestamp granularity, so the
// scoring pipeline receives real per-word onsets instead of estimating them.
//
// Usage:
//
//	p, err := whisperapi.New("https://api.openai.com/v1", apiKey,
//	    whisperapi.WithModel("whisper-large-v3-turbo"),
//	)
//	tr, err := p.Transcribe(ctx, clip, "en")
package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/provider/asr"
)

const (
	// defaultModel is forwarded to the API unless overridden. The turbo
	// large-v3 checkpoint is the best latency/accuracy trade-off offered by
	// the hosted Whisper endpoints as of early 2026.
	defaultModel = "whisper-large-v3-turbo"

	defaultTimeout = 30 * time.Second
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier sent with every request
// (e.g., "whisper-1", "whisper-large-v3-turbo").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithTimeout sets the per-request HTTP timeout. A context deadline shorter
// than this still takes precedence. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client entirely. Useful for injecting
// custom transports in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements asr.Provider against a Whisper-compatible REST API.
// It is stateless apart from its configuration; any number of Transcribe
// calls may run concurrently.
type Provider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a Provider that talks to the transcription endpoint under
// baseURL (e.g., "https://api.openai.com/v1"). baseURL and apiKey must be
// non-empty.
func New(baseURL, apiKey string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, errors.New("whisperapi: baseURL must not be empty")
	}
	if apiKey == "" {
		return nil, errors.New("whisperapi: apiKey must not be empty")
	}
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// verboseResponse mirrors the verbose_json body of the transcription API.
// Segments are ignored; word granularity is all the scorer needs.
type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// apiError mirrors the error envelope returned by OpenAI-compatible APIs.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Transcribe implements asr.Provider. The clip is encoded as 16 kHz mono WAV
// and uploaded with response_format=verbose_json and word timestamp
// granularity. HTTP 401/403 map to asr.ErrAuthFailed, 429 to
// asr.ErrRateLimited, and deadline expiry to asr.ErrTimeout.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, language string) (*asr.Transcription, error) {
	wav, err := audio.EncodeWAV(clip)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: encode clip: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("whisperapi: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("whisperapi: write wav data: %w", err)
	}

	fields := map[string]string{
		"model":                     p.model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "word",
	}
	if language != "" {
		fields["language"] = language
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("whisperapi: write field %q: %w", name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisperapi: close multipart writer: %w", err)
	}

	endpoint := p.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if timedOut(ctx, err) {
			return nil, fmt.Errorf("whisperapi: %w: %v", asr.ErrTimeout, err)
		}
		return nil, fmt.Errorf("whisperapi: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp.StatusCode, data)
	}

	var result verboseResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("whisperapi: parse JSON response: %w", err)
	}

	tr := &asr.Transcription{
		Text:     strings.TrimSpace(result.Text),
		Duration: result.Duration,
	}
	for _, w := range result.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		tr.Words = append(tr.Words, asr.Word{Text: text, Start: w.Start, End: w.End})
	}
	return tr, nil
}

// statusError maps a non-200 response to the sentinel error families defined
// in package asr, attaching the server's error message when one is present.
func (p *Provider) statusError(status int, body []byte) error {
	detail := errorDetail(body)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("whisperapi: %w: HTTP %d: %s", asr.ErrAuthFailed, status, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("whisperapi: %w: HTTP %d: %s", asr.ErrRateLimited, status, detail)
	default:
		return fmt.Errorf("whisperapi: server returned HTTP %d: %s", status, detail)
	}
}

// errorDetail extracts the message from an OpenAI-style error envelope,
// falling back to a truncated raw body for non-JSON error pages.
func errorDetail(body []byte) string {
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}

// timedOut reports whether a transport error was caused by a deadline,
// either the request context's or the HTTP client's own timeout.
func timedOut(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}
