package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	ErrEmptyPrompt     = errors.New("prompt is required")
	ErrInvalidSize     = errors.New("invalid size")
	ErrInvalidQuality  = errors.New("invalid quality")
	ErrInvalidStyle    = errors.New("invalid style")
	ErrInvalidProvider = errors.New("invalid provider")
)

type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
)

// KnownProviders returns every provider in preference order. Fallback picks
// the first configured one in this order.
func KnownProviders() []ProviderType {
	return []ProviderType{ProviderGoogle, ProviderOpenAI}
}

func (p ProviderType) IsValid() bool {
	return slices.Contains(KnownProviders(), p)
}

func (p ProviderType) String() string {
	return string(p)
}

const (
	QualityStandard = "standard"
	QualityHD       = "hd"

	StyleVivid   = "vivid"
	StyleNatural = "natural"

	SizeSquare     = "1024x1024"
	SizeHorizontal = "1792x1024"
	SizeVertical   = "1024x1792"
)

func ValidQualities() []string { return []string{QualityStandard, QualityHD} }
func ValidStyles() []string    { return []string{StyleVivid, StyleNatural} }
func ValidSizes() []string     { return []string{SizeSquare, SizeHorizontal, SizeVertical} }

type AspectRatio string

const (
	AspectSquare     AspectRatio = "square"
	AspectVertical   AspectRatio = "vertical"
	AspectHorizontal AspectRatio = "horizontal"
)

func (a AspectRatio) IsValid() bool {
	return a == AspectSquare || a == AspectVertical || a == AspectHorizontal
}

// Request is a finalized generation request. Prompt is the already composed
// text; the dispatcher never rewrites it.
type Request struct {
	Prompt   string       `json:"prompt"`
	Provider ProviderType `json:"provider,omitempty"`
	Model    string       `json:"model,omitempty"`
	Quality  string       `json:"quality,omitempty"`
	Style    string       `json:"style,omitempty"`
	Size     string       `json:"size,omitempty"`
}

func NewRequest(prompt string) *Request {
	return &Request{Prompt: prompt}
}

// Validate checks the prompt and the enumerated fields that were set.
// Empty optional fields are filled by ApplyDefaults.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if r.Quality != "" && !slices.Contains(ValidQualities(), r.Quality) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidQuality, r.Quality, ValidQualities())
	}
	if r.Style != "" && !slices.Contains(ValidStyles(), r.Style) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidStyle, r.Style, ValidStyles())
	}
	if r.Size != "" && !slices.Contains(ValidSizes(), r.Size) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidSize, r.Size, ValidSizes())
	}
	return nil
}

func (r *Request) ApplyDefaults() {
	if r.Quality == "" {
		r.Quality = QualityStandard
	}
	if r.Style == "" {
		r.Style = StyleVivid
	}
	if r.Size == "" {
		r.Size = SizeSquare
	}
}

// Result is the normalized outcome of a successful generation. It is also
// the payload persisted on completed queue items.
type Result struct {
	Success          bool         `json:"success"`
	ImageURL         string       `json:"imageUrl,omitempty"`
	Provider         ProviderType `json:"provider"`
	Model            string       `json:"model"`
	Quality          string       `json:"quality,omitempty"`
	RequestedQuality string       `json:"requestedQuality,omitempty"`
	Size             string       `json:"size,omitempty"`
	Cost             float64      `json:"cost,omitempty"`
	GenerationTimeMs int64        `json:"generationTime,omitempty"`
	RevisedPrompt    string       `json:"revisedPrompt,omitempty"`
}

// HasImage reports whether the result can be kept as an icon.
func (r *Result) HasImage() bool {
	return r != nil && r.Success && r.ImageURL != ""
}

type ModelCapabilities struct {
	Name               string
	DisplayName        string
	Description        string
	Provider           ProviderType
	CostText           string
	SupportedSizes     []string
	SupportedQualities []string
	SupportsStyle      bool
	Recommended        bool
	Deprecated         string
}

func (c *ModelCapabilities) SupportsSize(size string) bool {
	return slices.Contains(c.SupportedSizes, size)
}

type ModelRegistry struct {
	models   map[string]*ModelCapabilities
	defaults map[ProviderType]string
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models:   make(map[string]*ModelCapabilities),
		defaults: make(map[ProviderType]string),
	}
}

// Register adds a model. The first model registered for a provider becomes
// that provider's default.
func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
	if _, ok := r.defaults[cap.Provider]; !ok {
		r.defaults[cap.Provider] = cap.Name
	}
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

func (r *ModelRegistry) DefaultModel(provider ProviderType) string {
	return r.defaults[provider]
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	r.Register(&ModelCapabilities{
		Name:               "gemini-2.5-flash-image",
		DisplayName:        "Nano Banana (Gemini 2.5 Flash)",
		Description:        "Fast, high-quality image generation",
		Provider:           ProviderGoogle,
		CostText:           "$0.02-0.04 per image",
		SupportedSizes:     []string{SizeSquare},
		SupportedQualities: []string{QualityStandard},
		Recommended:        true,
	})

	r.Register(&ModelCapabilities{
		Name:               "gemini-3-pro-image-preview",
		DisplayName:        "Nano Banana Pro (Gemini 3 Pro)",
		Description:        "Premium model with enhanced capabilities",
		Provider:           ProviderGoogle,
		CostText:           "$0.06-0.08 per image",
		SupportedSizes:     []string{SizeSquare},
		SupportedQualities: []string{QualityStandard},
	})

	r.Register(&ModelCapabilities{
		Name:               "dall-e-3",
		DisplayName:        "DALL-E 3",
		Description:        "Advanced text-to-image generation",
		Provider:           ProviderOpenAI,
		CostText:           "$0.040 (standard), $0.080 (HD)",
		SupportedSizes:     []string{SizeSquare, SizeHorizontal, SizeVertical},
		SupportedQualities: []string{QualityStandard, QualityHD},
		SupportsStyle:      true,
		Deprecated:         "May 12, 2026",
	})

	r.Register(&ModelCapabilities{
		Name:               "dall-e-2",
		DisplayName:        "DALL-E 2",
		Description:        "Legacy model with basic capabilities",
		Provider:           ProviderOpenAI,
		CostText:           "$0.020 per image",
		SupportedSizes:     []string{SizeSquare},
		SupportedQualities: nil,
		Deprecated:         "May 12, 2026",
	})

	return r
}
