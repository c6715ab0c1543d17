package cost

import "github.com/manash/iconforge/pkg/models"

const CurrencyUSD = "USD"

// Calculator prices a generation from the static table. Overrides, usually
// loaded from the config file, take precedence over table entries.
type Calculator struct {
	overrides map[PricingKey]float64
}

func NewCalculator(overrides map[PricingKey]float64) *Calculator {
	o := make(map[PricingKey]float64, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	return &Calculator{overrides: o}
}

// Calculate returns the USD cost of one image. quality must be the value
// actually sent to the provider, not the one the caller asked for.
func (c *Calculator) Calculate(provider models.ProviderType, model, quality string) float64 {
	if price, ok := c.lookup(model, quality); ok {
		return price
	}

	switch provider {
	case models.ProviderOpenAI:
		return c.calculateOpenAI(model, quality)
	case models.ProviderGoogle:
		return c.calculateGoogle(model)
	default:
		return 0
	}
}

func (c *Calculator) lookup(model, quality string) (float64, bool) {
	if price, ok := c.overrides[PricingKey{Model: model, Quality: quality}]; ok {
		return price, true
	}
	if price, ok := c.overrides[PricingKey{Model: model}]; ok {
		return price, true
	}
	return GetPrice(model, quality)
}

func (c *Calculator) calculateOpenAI(model, quality string) float64 {
	switch model {
	case "dall-e-3":
		if quality == models.QualityHD {
			return 0.080
		}
		return 0.040
	case "dall-e-2":
		return 0.020
	default:
		return 0
	}
}

func (c *Calculator) calculateGoogle(model string) float64 {
	// quality is not a Gemini parameter
	if price, ok := GetPrice(model, ""); ok {
		return price
	}
	return 0
}
