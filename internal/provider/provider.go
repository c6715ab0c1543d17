package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/manash/iconforge/pkg/models"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrModelNotSupported = errors.New("model not supported by provider")
	ErrAPIKeyRequired    = errors.New("API key is required")
	ErrGenerationFailed  = errors.New("image generation failed")
	ErrNoImage           = errors.New("provider returned no image")
)

// Image is what a provider hands back for one request. URL is either a
// remote URL or a data URI.
type Image struct {
	URL           string
	RevisedPrompt string
}

// Provider generates one image per call. req is already validated and
// defaulted; providers send it as-is.
type Provider interface {
	Name() models.ProviderType
	Generate(ctx context.Context, req *models.Request) (*Image, error)
	SupportsModel(model string) bool
	ListModels() []string
}

type Config struct {
	APIKey     string
	BaseURL    string
	TimeoutSec int
}

// Constructor builds a provider from its config. It returns
// ErrAPIKeyRequired when cfg carries no key.
type Constructor func(ctx context.Context, cfg *Config, registry *models.ModelRegistry) (Provider, error)

// APIError is a failure reported by a provider's API. Message is the
// provider's own wording and drives error classification.
type APIError struct {
	Provider   models.ProviderType
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrGenerationFailed
}

// Set holds the providers that are configured for this process.
type Set struct {
	registry  *models.ModelRegistry
	providers map[models.ProviderType]Provider
}

func NewSet(registry *models.ModelRegistry, providers ...Provider) *Set {
	s := &Set{
		registry:  registry,
		providers: make(map[models.ProviderType]Provider),
	}
	for _, p := range providers {
		s.Register(p)
	}
	return s
}

func (s *Set) Register(p Provider) {
	s.providers[p.Name()] = p
}

func (s *Set) Registry() *models.ModelRegistry {
	return s.registry
}

func (s *Set) Get(providerType models.ProviderType) (Provider, error) {
	p, ok := s.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}
	return p, nil
}

func (s *Set) GetForModel(model string) (Provider, error) {
	cap, ok := s.registry.Get(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
	}

	p, ok := s.providers[cap.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (required by model %s)", ErrProviderNotFound, cap.Provider, model)
	}

	return p, nil
}

// Available lists configured providers in preference order.
func (s *Set) Available() []models.ProviderType {
	var out []models.ProviderType
	for _, t := range models.KnownProviders() {
		if _, ok := s.providers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *Set) Has(providerType models.ProviderType) bool {
	_, ok := s.providers[providerType]
	return ok
}

// Build constructs every provider that has a config with a key. Providers
// without a key are skipped; any other construction error is returned.
func Build(ctx context.Context, registry *models.ModelRegistry, configs map[models.ProviderType]*Config, ctors map[models.ProviderType]Constructor) (*Set, error) {
	set := NewSet(registry)
	for _, t := range models.KnownProviders() {
		ctor, ok := ctors[t]
		cfg := configs[t]
		if !ok || cfg == nil || cfg.APIKey == "" {
			continue
		}
		p, err := ctor(ctx, cfg, registry)
		if errors.Is(err, ErrAPIKeyRequired) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", t, err)
		}
		set.Register(p)
	}
	return set, nil
}
