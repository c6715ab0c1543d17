// Package dispatch sends finalized prompts to a configured provider and
// normalizes the outcome.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/manash/iconforge/internal/cost"
	"github.com/manash/iconforge/internal/provider"
	"github.com/manash/iconforge/pkg/models"
)

const (
	msgPromptRequired = "Prompt is required"
	msgNoProviders    = "No AI providers configured. Please add API keys."
)

type Config struct {
	// DefaultProvider is used when a request names none.
	DefaultProvider models.ProviderType
	// MinInterval spaces consecutive provider calls. Zero disables throttling.
	MinInterval time.Duration
	// Pricing overrides the static cost table.
	Pricing map[cost.PricingKey]float64
}

func DefaultConfig() Config {
	return Config{DefaultProvider: models.ProviderGoogle}
}

// Dispatcher makes exactly one provider call per Generate. It never
// retries and never persists anything.
type Dispatcher struct {
	providers       *provider.Set
	registry        *models.ModelRegistry
	calc            *cost.Calculator
	limiter         *rate.Limiter
	defaultProvider models.ProviderType
	now             func() time.Time
}

func New(cfg Config, providers *provider.Set) *Dispatcher {
	d := &Dispatcher{
		providers:       providers,
		registry:        providers.Registry(),
		calc:            cost.NewCalculator(cfg.Pricing),
		defaultProvider: cfg.DefaultProvider,
		now:             time.Now,
	}
	if d.defaultProvider == "" {
		d.defaultProvider = models.ProviderGoogle
	}
	if cfg.MinInterval > 0 {
		d.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return d
}

// Available lists configured providers in preference order.
func (d *Dispatcher) Available() []models.ProviderType {
	return d.providers.Available()
}

func (d *Dispatcher) Registry() *models.ModelRegistry {
	return d.registry
}

// Generate validates req, resolves the provider and model, applies the
// dall-e-3 size/quality constraint and calls the provider. Every error is
// a *Error.
func (d *Dispatcher) Generate(ctx context.Context, req *models.Request) (*models.Result, error) {
	out := *req
	out.Prompt = strings.TrimSpace(out.Prompt)

	if out.Prompt == "" {
		return nil, &Error{Kind: KindValidation, Message: msgPromptRequired, Err: models.ErrEmptyPrompt}
	}
	if err := out.Validate(); err != nil {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}

	available := d.providers.Available()
	if len(available) == 0 {
		return nil, &Error{Kind: KindNoProviders, Message: msgNoProviders, Available: []models.ProviderType{}}
	}

	p, err := d.resolveProvider(out.Provider, available)
	if err != nil {
		return nil, err
	}
	out.Provider = p.Name()
	out.Model = d.resolveModel(out.Provider, out.Model)
	out.ApplyDefaults()

	requestedQuality := out.Quality
	out.Quality = coerceQuality(out.Model, out.Size, out.Quality)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindGeneric, Message: err.Error(), Provider: out.Provider, Model: out.Model, Available: available, Err: err}
		}
	}

	slog.Info("dispatching generation", "provider", out.Provider, "model", out.Model, "size", out.Size, "quality", out.Quality)

	start := d.now()
	img, err := p.Generate(ctx, &out)
	elapsed := d.now().Sub(start)

	if err != nil {
		kind, message := classify(out.Provider, err)
		slog.Warn("generation failed", "provider", out.Provider, "model", out.Model, "kind", kind, "error", err)
		return nil, &Error{
			Kind:      kind,
			Message:   message,
			Provider:  out.Provider,
			Model:     out.Model,
			Available: available,
			Err:       err,
		}
	}

	return &models.Result{
		Success:          true,
		ImageURL:         img.URL,
		Provider:         out.Provider,
		Model:            out.Model,
		Quality:          out.Quality,
		RequestedQuality: requestedQuality,
		Size:             out.Size,
		Cost:             d.calc.Calculate(out.Provider, out.Model, out.Quality),
		GenerationTimeMs: elapsed.Milliseconds(),
		RevisedPrompt:    img.RevisedPrompt,
	}, nil
}

// resolveProvider picks the requested provider, or the default when none
// was named. A known provider that is not configured falls back to the
// first available one; an unknown name is rejected.
func (d *Dispatcher) resolveProvider(requested models.ProviderType, available []models.ProviderType) (provider.Provider, error) {
	if requested == "" {
		requested = d.defaultProvider
	}
	if !requested.IsValid() {
		return nil, &Error{
			Kind:      KindUnavailable,
			Message:   fmt.Sprintf("%s provider not available", requested),
			Provider:  requested,
			Available: available,
			Err:       models.ErrInvalidProvider,
		}
	}

	use := requested
	if !d.providers.Has(requested) {
		use = available[0]
		slog.Info("provider not configured, falling back", "requested", requested, "using", use)
	}

	p, err := d.providers.Get(use)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: fmt.Sprintf("%s provider not available", use), Provider: use, Available: available, Err: err}
	}
	return p, nil
}

// resolveModel keeps an explicit model unless the registry assigns it to
// another provider, which happens after a fallback.
func (d *Dispatcher) resolveModel(p models.ProviderType, model string) string {
	if model == "" {
		return d.registry.DefaultModel(p)
	}
	if cap, ok := d.registry.Get(model); ok && cap.Provider != p {
		return d.registry.DefaultModel(p)
	}
	return model
}

// coerceQuality downgrades dall-e-3 to standard for non-square sizes, which
// the API rejects at hd.
func coerceQuality(model, size, quality string) string {
	if model == "dall-e-3" && size != models.SizeSquare {
		return models.QualityStandard
	}
	return quality
}
