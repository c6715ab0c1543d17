package project

import (
	"time"

	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

type Project struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Icons           []SavedIcon      `json:"icons"`
	GenerationQueue []QueueItem      `json:"generationQueue"`
	ColorPalette    *palette.Palette `json:"colorPalette"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	Settings        Settings         `json:"settings"`
}

func (p *Project) findQueueItem(id string) int {
	for i := range p.GenerationQueue {
		if p.GenerationQueue[i].ID == id {
			return i
		}
	}
	return -1
}

// SavedIcon is one successful generation kept in a project. It is never
// modified after creation.
type SavedIcon struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Prompt         string              `json:"prompt"`
	ImageURL       string              `json:"imageUrl"`
	Provider       models.ProviderType `json:"provider"`
	Model          string              `json:"model"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	Cost           float64             `json:"cost,omitempty"`
	GenerationTime int64               `json:"generationTime,omitempty"`
	Tags           []string            `json:"tags"`
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// QueueItem is one unit of batch work. Prompt is the raw user text; the
// toggles are applied when the item runs.
type QueueItem struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Prompt            string              `json:"prompt"`
	Priority          int                 `json:"priority"`
	Status            Status              `json:"status"`
	Provider          models.ProviderType `json:"provider"`
	Model             string              `json:"model"`
	Quality           string              `json:"quality"`
	Style             string              `json:"style"`
	UseProjectPalette bool                `json:"useProjectPalette"`
	NoText            bool                `json:"noText"`
	NoBackground      bool                `json:"noBackground"`
	Monochrome        bool                `json:"monochrome"`
	AspectRatio       models.AspectRatio  `json:"aspectRatio"`
	CreateBackground  bool                `json:"createBackground"`
	SelectedStyle     *style.Preset       `json:"selectedStyle,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	Result            *models.Result      `json:"result,omitempty"`
	Error             string              `json:"error,omitempty"`
}

type Settings struct {
	DefaultProvider     models.ProviderType `json:"defaultProvider"`
	DefaultModel        string              `json:"defaultModel"`
	DefaultQuality      string              `json:"defaultQuality"`
	DefaultStyle        string              `json:"defaultStyle"`
	AutoSave            bool                `json:"autoSave"`
	ProjectTheme        palette.Theme       `json:"projectTheme,omitempty"`
	UsePaletteInPrompts bool                `json:"usePaletteInPrompts"`
	BatchSize           int                 `json:"batchSize"`
	GenerateWithPalette bool                `json:"generateWithPalette"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultProvider:     models.ProviderGoogle,
		DefaultModel:        "gemini-2.5-flash-image",
		DefaultQuality:      models.QualityStandard,
		DefaultStyle:        models.StyleVivid,
		AutoSave:            true,
		UsePaletteInPrompts: true,
		BatchSize:           5,
		GenerateWithPalette: true,
	}
}

// SettingsPatch carries a partial settings update; nil fields are kept.
type SettingsPatch struct {
	DefaultProvider     *models.ProviderType `json:"defaultProvider,omitempty"`
	DefaultModel        *string              `json:"defaultModel,omitempty"`
	DefaultQuality      *string              `json:"defaultQuality,omitempty"`
	DefaultStyle        *string              `json:"defaultStyle,omitempty"`
	AutoSave            *bool                `json:"autoSave,omitempty"`
	ProjectTheme        *palette.Theme       `json:"projectTheme,omitempty"`
	UsePaletteInPrompts *bool                `json:"usePaletteInPrompts,omitempty"`
	BatchSize           *int                 `json:"batchSize,omitempty"`
	GenerateWithPalette *bool                `json:"generateWithPalette,omitempty"`
}

func (p SettingsPatch) Apply(s *Settings) {
	if p.DefaultProvider != nil {
		s.DefaultProvider = *p.DefaultProvider
	}
	if p.DefaultModel != nil {
		s.DefaultModel = *p.DefaultModel
	}
	if p.DefaultQuality != nil {
		s.DefaultQuality = *p.DefaultQuality
	}
	if p.DefaultStyle != nil {
		s.DefaultStyle = *p.DefaultStyle
	}
	if p.AutoSave != nil {
		s.AutoSave = *p.AutoSave
	}
	if p.ProjectTheme != nil {
		s.ProjectTheme = *p.ProjectTheme
	}
	if p.UsePaletteInPrompts != nil {
		s.UsePaletteInPrompts = *p.UsePaletteInPrompts
	}
	if p.BatchSize != nil {
		s.BatchSize = *p.BatchSize
	}
	if p.GenerateWithPalette != nil {
		s.GenerateWithPalette = *p.GenerateWithPalette
	}
}
