package palette

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var ErrInvalidColor = errors.New("invalid color")

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Theme string

const (
	ThemeFantasy Theme = "fantasy"
	ThemeSciFi   Theme = "sci-fi"
	ThemeModern  Theme = "modern"
	ThemeNature  Theme = "nature"
	ThemeCustom  Theme = "custom"
)

func Themes() []Theme {
	return []Theme{ThemeFantasy, ThemeSciFi, ThemeModern, ThemeNature, ThemeCustom}
}

// CustomColor is a user-defined color outside the eleven base slots.
type CustomColor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Hex         string `json:"hex"`
	Description string `json:"description,omitempty"`
}

// Palette is a named set of eleven semantic color slots plus custom colors.
// A project owns its palette exclusively; assign copies with Clone.
type Palette struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Primary       string        `json:"primary"`
	Secondary     string        `json:"secondary"`
	Background    string        `json:"background"`
	Surface       string        `json:"surface"`
	Accent        string        `json:"accent"`
	Text          string        `json:"text"`
	TextSecondary string        `json:"textSecondary"`
	Border        string        `json:"border"`
	Success       string        `json:"success"`
	Warning       string        `json:"warning"`
	Error         string        `json:"error"`
	Custom        []CustomColor `json:"custom"`
}

// Slot is one base color with the role it plays in a rendered directive.
type Slot struct {
	Key   string
	Label string
	Value string
	Usage string
}

// Slots returns the eleven base slots in render order.
func (p *Palette) Slots() []Slot {
	return []Slot{
		{"primary", "Primary", p.Primary, "main subject/dominant elements"},
		{"secondary", "Secondary", p.Secondary, "supporting elements and details"},
		{"accent", "Accent", p.Accent, "highlights, magical effects, and focal points"},
		{"background", "Background", p.Background, "backgrounds and base surfaces"},
		{"surface", "Surface", p.Surface, "panels, plates and secondary surfaces"},
		{"text", "Text", p.Text, "text and outlines"},
		{"textSecondary", "Secondary text", p.TextSecondary, "fine detail lines and subtle markings"},
		{"border", "Border", p.Border, "borders, rims and frames"},
		{"success", "Success", p.Success, "positive or healing elements"},
		{"warning", "Warning", p.Warning, "caution, fire and energy elements"},
		{"error", "Error", p.Error, "danger, damage and hostile elements"},
	}
}

func (p *Palette) Clone() *Palette {
	if p == nil {
		return nil
	}
	c := *p
	c.Custom = make([]CustomColor, len(p.Custom))
	copy(c.Custom, p.Custom)
	return &c
}

// Validate checks that every base slot and custom color is a hex color.
func (p *Palette) Validate() error {
	for _, s := range p.Slots() {
		if !hexColorPattern.MatchString(s.Value) {
			return fmt.Errorf("%w: %s = %q", ErrInvalidColor, s.Key, s.Value)
		}
	}
	for _, c := range p.Custom {
		if !hexColorPattern.MatchString(c.Hex) {
			return fmt.Errorf("%w: custom %q = %q", ErrInvalidColor, c.Name, c.Hex)
		}
	}
	return nil
}

// AddCustom appends a custom color with a fresh id.
func (p *Palette) AddCustom(name, hex, description string) (CustomColor, error) {
	if !hexColorPattern.MatchString(hex) {
		return CustomColor{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	c := CustomColor{ID: uuid.NewString(), Name: name, Hex: hex, Description: description}
	p.Custom = append(p.Custom, c)
	return c, nil
}

// RemoveCustom drops the custom color with the given id. Unknown ids are ignored.
func (p *Palette) RemoveCustom(id string) {
	kept := p.Custom[:0]
	for _, c := range p.Custom {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	p.Custom = kept
}

// Default returns a fresh palette for the theme. Unknown themes fall back
// to fantasy.
func Default(theme Theme) *Palette {
	var p Palette
	switch theme {
	case ThemeSciFi:
		p = Palette{
			Name:          "Sci-Fi Future",
			Primary:       "#00BFFF",
			Secondary:     "#7B68EE",
			Background:    "#191970",
			Surface:       "#2F4F4F",
			Accent:        "#00FFFF",
			Text:          "#E0E0E0",
			TextSecondary: "#A9A9A9",
			Border:        "#4682B4",
			Success:       "#00FF00",
			Warning:       "#FFD700",
			Error:         "#FF1493",
			Custom: []CustomColor{
				{Name: "Neon Green", Hex: "#39FF14", Description: "High-tech displays"},
				{Name: "Plasma Pink", Hex: "#FF10F0", Description: "Energy weapons"},
			},
		}
	case ThemeModern:
		p = Palette{
			Name:          "Modern Clean",
			Primary:       "#2563EB",
			Secondary:     "#7C3AED",
			Background:    "#FFFFFF",
			Surface:       "#F8FAFC",
			Accent:        "#F59E0B",
			Text:          "#0F172A",
			TextSecondary: "#64748B",
			Border:        "#E2E8F0",
			Success:       "#059669",
			Warning:       "#D97706",
			Error:         "#DC2626",
			Custom: []CustomColor{
				{Name: "Tech Blue", Hex: "#3B82F6", Description: "Modern technology"},
				{Name: "Brand Purple", Hex: "#8B5CF6", Description: "Premium branding"},
			},
		}
	case ThemeNature:
		p = Palette{
			Name:          "Nature Harmony",
			Primary:       "#16A085",
			Secondary:     "#27AE60",
			Background:    "#F0FFF0",
			Surface:       "#F5FFFA",
			Accent:        "#FFB347",
			Text:          "#2D4A22",
			TextSecondary: "#5D6D5D",
			Border:        "#98FB98",
			Success:       "#228B22",
			Warning:       "#FF8C00",
			Error:         "#CD5C5C",
			Custom: []CustomColor{
				{Name: "Sky Blue", Hex: "#87CEEB", Description: "Clear skies"},
				{Name: "Earth Brown", Hex: "#8B4513", Description: "Rich soil"},
			},
		}
	case ThemeCustom:
		p = Palette{
			Name:          "Custom Palette",
			Primary:       "#6366F1",
			Secondary:     "#8B5CF6",
			Background:    "#FFFFFF",
			Surface:       "#F9FAFB",
			Accent:        "#F59E0B",
			Text:          "#111827",
			TextSecondary: "#6B7280",
			Border:        "#D1D5DB",
			Success:       "#10B981",
			Warning:       "#F59E0B",
			Error:         "#EF4444",
		}
	default:
		p = Palette{
			Name:          "Fantasy Adventure",
			Primary:       "#8B4513",
			Secondary:     "#DAA520",
			Background:    "#F5F5DC",
			Surface:       "#FFFAF0",
			Accent:        "#FF6347",
			Text:          "#2F4F4F",
			TextSecondary: "#696969",
			Border:        "#D2B48C",
			Success:       "#228B22",
			Warning:       "#FF8C00",
			Error:         "#DC143C",
			Custom: []CustomColor{
				{Name: "Magic Purple", Hex: "#9370DB", Description: "Mystical magic effects"},
				{Name: "Dragon Red", Hex: "#B22222", Description: "Fierce dragon colors"},
			},
		}
	}

	p.ID = uuid.NewString()
	if p.Custom == nil {
		p.Custom = []CustomColor{}
	}
	for i := range p.Custom {
		p.Custom[i].ID = uuid.NewString()
	}
	return &p
}
