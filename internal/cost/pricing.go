package cost

// Image generation pricing (USD per image). Size does not change the price
// of any supported model.

type PricingKey struct {
	Model   string
	Quality string
}

var imagePricing = map[PricingKey]float64{
	// Gemini image models bill per output image regardless of quality
	{Model: "gemini-2.5-flash-image", Quality: ""}:     0.039,
	{Model: "gemini-3-pro-image-preview", Quality: ""}: 0.134,

	{Model: "dall-e-3", Quality: "standard"}: 0.040,
	{Model: "dall-e-3", Quality: "hd"}:       0.080,

	// DALL-E 2 has no quality option
	{Model: "dall-e-2", Quality: ""}: 0.020,
}

func GetPrice(model, quality string) (float64, bool) {
	price, ok := imagePricing[PricingKey{Model: model, Quality: quality}]
	return price, ok
}
