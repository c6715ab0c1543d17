// Package google generates images with the Gemini image models.
package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/manash/iconforge/internal/provider"
	"github.com/manash/iconforge/pkg/models"
)

const defaultTimeout = 120 * time.Second

type Provider struct {
	client   *genai.Client
	registry *models.ModelRegistry
}

func New(ctx context.Context, cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Provider{client: client, registry: registry}, nil
}

// Constructor adapts New to provider.Constructor.
func Constructor(ctx context.Context, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error) {
	return New(ctx, cfg, registry)
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderGoogle
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderGoogle
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderGoogle)
}

// Generate sends the prompt as a single text turn. Gemini ignores quality,
// style and size; the composed prompt already carries the aspect wording.
func (p *Provider) Generate(ctx context.Context, req *models.Request) (*provider.Image, error) {
	slog.Debug("gemini request", "model", req.Model, "prompt_len", len(req.Prompt))

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, apiError(err)
	}

	return extractImage(resp)
}

// apiError keeps the HTTP status and RPC status of a genai failure so
// classification can fall back on them when the wording matches nothing.
func apiError(err error) *provider.APIError {
	out := &provider.APIError{Provider: models.ProviderGoogle, Message: err.Error()}

	var gerr *genai.APIError
	var val genai.APIError
	switch {
	case errors.As(err, &val):
		gerr = &val
	case errors.As(err, &gerr) && gerr != nil:
	default:
		return out
	}
	out.StatusCode = gerr.Code
	out.Code = gerr.Status
	if gerr.Message != "" {
		out.Message = gerr.Message
	}
	return out
}

// extractImage returns the first inline image part. Text parts that come
// back alongside it are kept as the revised prompt.
func extractImage(resp *genai.GenerateContentResponse) (*provider.Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, provider.ErrNoImage
	}

	var text string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" && text == "" {
				text = part.Text
			}
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &provider.Image{
				URL:           "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data),
				RevisedPrompt: text,
			}, nil
		}
	}

	if text != "" {
		return nil, fmt.Errorf("%w: %s", provider.ErrNoImage, text)
	}
	return nil, provider.ErrNoImage
}
