package palette

import (
	"errors"
	"strings"
	"testing"
)

func TestDefault_Fantasy(t *testing.T) {
	for _, theme := range []Theme{"", ThemeFantasy, "unknown"} {
		p := Default(theme)
		if p.Name != "Fantasy Adventure" {
			t.Errorf("Default(%q).Name = %q, want Fantasy Adventure", theme, p.Name)
		}
		if p.Primary != "#8B4513" {
			t.Errorf("Default(%q).Primary = %q, want #8B4513", theme, p.Primary)
		}
	}
}

func TestDefault_AllThemesValid(t *testing.T) {
	for _, theme := range Themes() {
		t.Run(string(theme), func(t *testing.T) {
			p := Default(theme)
			if p.ID == "" {
				t.Error("palette id is empty")
			}
			if err := p.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if p.Custom == nil {
				t.Error("Custom is nil, want empty slice")
			}
			for _, c := range p.Custom {
				if c.ID == "" {
					t.Errorf("custom color %q has empty id", c.Name)
				}
			}
		})
	}
	if n := len(Default(ThemeCustom).Custom); n != 0 {
		t.Errorf("custom theme has %d custom colors, want 0", n)
	}
}

func TestDefault_FreshIDs(t *testing.T) {
	a, b := Default(ThemeFantasy), Default(ThemeFantasy)
	if a.ID == b.ID {
		t.Error("two default palettes share an id")
	}
}

func TestClone_Independent(t *testing.T) {
	orig := Default(ThemeNature)
	c := orig.Clone()
	c.Primary = "#000000"
	c.Custom[0].Hex = "#111111"

	if orig.Primary == "#000000" {
		t.Error("Clone shares base slots")
	}
	if orig.Custom[0].Hex == "#111111" {
		t.Error("Clone shares custom colors")
	}
	var nilPalette *Palette
	if nilPalette.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestValidate_Invalid(t *testing.T) {
	p := Default(ThemeModern)
	p.Accent = "orange"
	if err := p.Validate(); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("Validate() error = %v, want ErrInvalidColor", err)
	}

	p = Default(ThemeModern)
	p.Custom = append(p.Custom, CustomColor{Name: "bad", Hex: "#12"})
	if err := p.Validate(); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("Validate() error = %v, want ErrInvalidColor", err)
	}

	p = Default(ThemeModern)
	p.Border = "#abc"
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() short hex error = %v", err)
	}
}

func TestAddRemoveCustom(t *testing.T) {
	p := Default(ThemeCustom)
	c, err := p.AddCustom("Lava", "#FF4500", "molten rock")
	if err != nil {
		t.Fatalf("AddCustom() error = %v", err)
	}
	if len(p.Custom) != 1 || c.ID == "" {
		t.Fatalf("AddCustom() custom = %+v", p.Custom)
	}
	if _, err := p.AddCustom("Bad", "red", ""); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("AddCustom(bad) error = %v", err)
	}

	p.RemoveCustom("missing")
	if len(p.Custom) != 1 {
		t.Error("RemoveCustom(missing) removed something")
	}
	p.RemoveCustom(c.ID)
	if len(p.Custom) != 0 {
		t.Error("RemoveCustom() did not remove color")
	}
}

func TestRender_EmptyPrompt(t *testing.T) {
	if got := Render("", Default(ThemeFantasy)); got != "" {
		t.Errorf("Render(\"\") = %q, want empty", got)
	}
	if got := Render("a sword", nil); got != "a sword" {
		t.Errorf("Render(nil palette) = %q", got)
	}
}

func TestRender_ContainsEverySlotAndCustom(t *testing.T) {
	for _, theme := range Themes() {
		t.Run(string(theme), func(t *testing.T) {
			p := Default(theme)
			p.Custom = append(p.Custom, CustomColor{ID: "x", Name: "Unnamed Teal", Hex: "#008080"})
			got := Render("a potion", p)

			if !strings.HasPrefix(got, "a potion. COLOR RESTRICTIONS: ") {
				t.Errorf("Render() prefix = %q", got[:40])
			}
			for _, s := range p.Slots() {
				if !strings.Contains(got, s.Value) {
					t.Errorf("Render() missing %s %s", s.Key, s.Value)
				}
			}
			for _, c := range p.Custom {
				if !strings.Contains(got, c.Hex) {
					t.Errorf("Render() missing custom %s", c.Hex)
				}
			}
			if !strings.Contains(got, "Special #008080 for Unnamed Teal") {
				t.Error("Render() custom color without description should use its name")
			}
			if !strings.Contains(got, forbiddenRule) {
				t.Error("Render() missing forbidding clause")
			}
			if !strings.HasSuffix(got, highlightsRule+".") {
				t.Error("Render() should end with the highlight rule")
			}
		})
	}
}

func TestRender_UsageHints(t *testing.T) {
	got := Render("a sword", Default(ThemeFantasy))
	for _, want := range []string{
		"Primary #8B4513 for main subject/dominant elements",
		"Accent #FF6347 for highlights, magical effects, and focal points",
		"Special #9370DB for Mystical magic effects",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q", want)
		}
	}
}
