package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/manash/iconforge/internal/provider"
	"github.com/manash/iconforge/internal/security"
	"github.com/manash/iconforge/pkg/models"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second

	// generated image URLs expire after about an hour
	downloadTTL = time.Hour
)

type apiRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type apiResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Error   *apiError   `json:"error,omitempty"`
}

type imageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	registry   *models.ModelRegistry
	downloads  *cache.Cache
}

func New(cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		registry:  registry,
		downloads: cache.New(downloadTTL, 10*time.Minute),
	}, nil
}

// Constructor adapts New to provider.Constructor.
func Constructor(_ context.Context, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error) {
	return New(cfg, registry)
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderOpenAI
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderOpenAI
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderOpenAI)
}

func (p *Provider) Generate(ctx context.Context, req *models.Request) (*provider.Image, error) {
	apiReq := buildAPIRequest(req)

	jsonData, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	slog.Debug("openai request", "url", url, "model", apiReq.Model, "size", apiReq.Size, "quality", apiReq.Quality)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	slog.Debug("openai response", "status", resp.StatusCode, "bytes", len(body))

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &provider.APIError{
				Provider:   models.ProviderOpenAI,
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, &provider.APIError{
			Provider:   models.ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Code:       apiResp.Error.Code,
			Message:    apiResp.Error.Message,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.APIError{
			Provider:   models.ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d", resp.StatusCode),
		}
	}

	return p.buildImage(ctx, apiResp)
}

// buildAPIRequest always asks for one image by URL. Quality and style are
// only meaningful to dall-e-3.
func buildAPIRequest(req *models.Request) *apiRequest {
	apiReq := &apiRequest{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              1,
		Size:           req.Size,
		ResponseFormat: "url",
	}

	if req.Model == "dall-e-3" {
		apiReq.Quality = req.Quality
		apiReq.Style = req.Style
	}

	return apiReq
}

func (p *Provider) buildImage(ctx context.Context, apiResp apiResponse) (*provider.Image, error) {
	if len(apiResp.Data) == 0 {
		return nil, provider.ErrNoImage
	}
	data := apiResp.Data[0]

	img := &provider.Image{RevisedPrompt: data.RevisedPrompt}
	switch {
	case data.B64JSON != "":
		img.URL = "data:image/png;base64," + data.B64JSON
	case data.URL != "":
		img.URL = p.inline(ctx, data.URL)
	default:
		return nil, provider.ErrNoImage
	}

	return img, nil
}

// inline converts a hosted image into a data URI so the result outlives
// the provider's URL expiry. On any failure the URL is returned as-is.
func (p *Provider) inline(ctx context.Context, url string) string {
	if v, ok := p.downloads.Get(url); ok {
		return v.(string)
	}

	if err := security.ValidateImageURL(url, true); err != nil {
		slog.Warn("not inlining untrusted image URL", "url", url, "error", err)
		return url
	}

	data, contentType, err := p.DownloadImage(ctx, url)
	if err != nil {
		slog.Warn("failed to inline generated image", "error", err)
		return url
	}

	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/png"
	}
	uri := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	p.downloads.Set(url, uri, cache.DefaultExpiration)
	return uri
}

func (p *Provider) DownloadImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
