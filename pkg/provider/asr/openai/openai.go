// Package openai provides an asr.Provider backed by the official OpenAI SDK.
//
// The SDK's typed transcription endpoint returns plain text without per-word
// timestamps, so Transcription.Words is always empty and callers estimate
// word timings from the clip duration. Use the whisperapi provider when real
// timestamps matter; this provider exists for deployments that already
// standardize on the SDK for credential and retry handling.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/provider/asr"
)

// Provider implements asr.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  oai.AudioModel
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible gateways.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the transcription model. Defaults to whisper-1.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI ASR Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	model := oai.AudioModelWhisper1
	if cfg.model != "" {
		model = oai.AudioModel(cfg.model)
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Transcribe implements asr.Provider. The clip is encoded as 16 kHz mono WAV
// before upload. The returned Transcription never carries word timestamps.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, language string) (*asr.Transcription, error) {
	wav, err := audio.EncodeWAV(clip)
	if err != nil {
		return nil, fmt.Errorf("openai: encode clip: %w", err)
	}

	params := oai.AudioTranscriptionNewParams{
		Model: p.model,
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
	}
	if language != "" {
		params.Language = param.NewOpt(language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, p.mapError(ctx, err)
	}

	return &asr.Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Duration: clip.Duration(),
	}, nil
}

// mapError translates SDK and transport failures into the asr sentinel
// error families.
func (p *Provider) mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("openai: %w: %v", asr.ErrTimeout, err)
	}

	var apierr *oai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("openai: %w: %v", asr.ErrAuthFailed, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("openai: %w: %v", asr.ErrRateLimited, err)
		}
	}

	return fmt.Errorf("openai: transcription: %w", err)
}

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)
