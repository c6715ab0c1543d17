package cost

import (
	"testing"

	"github.com/manash/iconforge/pkg/models"
)

func TestCalculator_Calculate_OpenAI(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name     string
		model    string
		quality  string
		expected float64
	}{
		{"dall-e-3 standard", "dall-e-3", "standard", 0.040},
		{"dall-e-3 hd", "dall-e-3", "hd", 0.080},
		{"dall-e-3 empty quality", "dall-e-3", "", 0.040},
		{"dall-e-3 unknown quality", "dall-e-3", "ultra", 0.040},
		{"dall-e-2", "dall-e-2", "", 0.020},
		{"dall-e-2 ignores quality", "dall-e-2", "hd", 0.020},
		{"unknown model", "dall-e-9", "standard", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(models.ProviderOpenAI, tt.model, tt.quality)
			if !floatEquals(got, tt.expected) {
				t.Errorf("Calculate() = %.4f, want %.4f", got, tt.expected)
			}
		})
	}
}

func TestCalculator_Calculate_Google(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		model    string
		quality  string
		expected float64
	}{
		{"gemini-2.5-flash-image", "standard", 0.039},
		{"gemini-2.5-flash-image", "hd", 0.039},
		{"gemini-3-pro-image-preview", "standard", 0.134},
		{"gemini-unknown", "standard", 0},
	}

	for _, tt := range tests {
		t.Run(tt.model+"/"+tt.quality, func(t *testing.T) {
			got := calc.Calculate(models.ProviderGoogle, tt.model, tt.quality)
			if !floatEquals(got, tt.expected) {
				t.Errorf("Calculate() = %.4f, want %.4f", got, tt.expected)
			}
		})
	}
}

func TestCalculator_Calculate_UnknownProvider(t *testing.T) {
	calc := NewCalculator(nil)

	if got := calc.Calculate("midjourney", "v6", "standard"); got != 0 {
		t.Errorf("Calculate() = %.4f, want 0", got)
	}
}

func TestCalculator_Overrides(t *testing.T) {
	overrides := map[PricingKey]float64{
		{Model: "dall-e-3", Quality: "hd"}: 0.100,
		{Model: "gemini-2.5-flash-image"}:  0.050,
	}
	calc := NewCalculator(overrides)

	if got := calc.Calculate(models.ProviderOpenAI, "dall-e-3", "hd"); !floatEquals(got, 0.100) {
		t.Errorf("hd override = %.4f, want 0.100", got)
	}
	if got := calc.Calculate(models.ProviderOpenAI, "dall-e-3", "standard"); !floatEquals(got, 0.040) {
		t.Errorf("standard without override = %.4f, want 0.040", got)
	}
	if got := calc.Calculate(models.ProviderGoogle, "gemini-2.5-flash-image", "standard"); !floatEquals(got, 0.050) {
		t.Errorf("model-wide override = %.4f, want 0.050", got)
	}

	overrides[PricingKey{Model: "dall-e-2"}] = 9
	if got := calc.Calculate(models.ProviderOpenAI, "dall-e-2", ""); !floatEquals(got, 0.020) {
		t.Error("calculator shares the caller's override map")
	}
}

func TestGetPrice(t *testing.T) {
	if price, ok := GetPrice("dall-e-3", "hd"); !ok || price != 0.080 {
		t.Errorf("GetPrice(dall-e-3, hd) = %.4f, %v", price, ok)
	}
	if _, ok := GetPrice("unknown", "unknown"); ok {
		t.Error("GetPrice() returned true for unknown price")
	}
}

func TestEveryRegisteredModelHasPricing(t *testing.T) {
	calc := NewCalculator(nil)
	reg := models.DefaultRegistry()

	for _, name := range reg.List() {
		m, _ := reg.Get(name)
		if got := calc.Calculate(m.Provider, name, models.QualityStandard); got <= 0 {
			t.Errorf("model %s has no price", name)
		}
	}
}

func floatEquals(a, b float64) bool {
	const epsilon = 0.0001
	return (a-b) < epsilon && (b-a) < epsilon
}
