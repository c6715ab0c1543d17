// Package prompt builds the final provider prompt from raw user text and
// the active modifiers.
//
// Compose must only ever be called on raw user text. Composing an already
// composed prompt duplicates every directive.
package prompt

import (
	"strings"

	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

const (
	backgroundPrefix = "game background, environment art"
	backgroundSuffix = "detailed game background scene, environment design"
	iconSuffix       = "game icon, icon design, game asset"

	NoTextDirective      = "no text, no letters, no words, no writing, no typography, pure visual icon only"
	TransparentDirective = "transparent background, no background, isolated object, PNG with transparency, clean cutout, alpha channel"
	MonochromeDirective  = "monochrome, black and white only, pure black icon on white background, high contrast, simple silhouette style, minimal color palette, black (#000000) and white (#FFFFFF) only"
	VerticalDirective    = "vertical composition, portrait orientation, taller than wide, 9:16 aspect ratio"
	HorizontalDirective  = "horizontal composition, landscape orientation, wider than tall, 16:9 aspect ratio"
	SquareDirective      = "square composition, 1:1 aspect ratio, centered design"
)

// Options is the modifier state applied on top of the raw prompt.
type Options struct {
	StyleInjection   string
	Palette          *palette.Palette
	UsePalette       bool
	CreateBackground bool
	NoText           bool
	NoBackground     bool
	Monochrome       bool
	AspectRatio      models.AspectRatio
}

// Compose applies, in order: style injection, palette constraints,
// content-type wording, transparency, monochrome and exactly one
// aspect-ratio directive. Icon wording follows the styled prompt so the
// style phrase leads; background wording wraps it.
func Compose(raw string, opts Options) string {
	p := strings.TrimSpace(raw)

	if opts.StyleInjection != "" {
		p = style.Apply(p, opts.StyleInjection)
	}

	if opts.UsePalette && opts.Palette != nil {
		p = palette.Render(p, opts.Palette)
	}

	if opts.CreateBackground {
		p = join(backgroundPrefix, p, backgroundSuffix)
	} else {
		p = join(p, iconSuffix)
		if opts.NoText {
			p = join(p, NoTextDirective)
		}
	}

	// background mode needs a rendered background
	if opts.NoBackground && !opts.CreateBackground {
		p = join(p, TransparentDirective)
	}

	if opts.Monochrome {
		p = join(p, MonochromeDirective)
	}

	return join(p, AspectDirective(opts.AspectRatio))
}

// AspectDirective returns the composition phrase for a ratio. Anything other
// than vertical or horizontal is square.
func AspectDirective(a models.AspectRatio) string {
	switch a {
	case models.AspectVertical:
		return VerticalDirective
	case models.AspectHorizontal:
		return HorizontalDirective
	default:
		return SquareDirective
	}
}

// SizeFor maps an aspect ratio to the provider size requested for it.
func SizeFor(a models.AspectRatio) string {
	switch a {
	case models.AspectVertical:
		return models.SizeVertical
	case models.AspectHorizontal:
		return models.SizeHorizontal
	default:
		return models.SizeSquare
	}
}

func join(parts ...string) string {
	return strings.Join(parts, ", ")
}
