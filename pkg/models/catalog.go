package models

// ProviderInfo describes a provider for selection screens.
type ProviderInfo struct {
	ID          ProviderType `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Pricing     string       `json:"pricing"`
	Limitations []string     `json:"limitations,omitempty"`
}

var providerCatalog = map[ProviderType]ProviderInfo{
	ProviderGoogle: {
		ID:          ProviderGoogle,
		Name:        "Google AI (Nano Banana)",
		Description: "Gemini models with advanced image generation capabilities",
		Status:      "limited",
		Pricing:     "Free tier limited, pay-per-use available",
		Limitations: []string{
			"Free tier severely limited (0 requests/day)",
			"Requires billing setup for usage",
			"Geographic restrictions may apply",
		},
	},
	ProviderOpenAI: {
		ID:          ProviderOpenAI,
		Name:        "OpenAI (DALL-E)",
		Description: "DALL-E models for creative image generation",
		Status:      "deprecated",
		Pricing:     "$0.040-0.080 per image, no free tier",
		Limitations: []string{
			"DEPRECATED: Ends May 12, 2026",
			"No free tier available",
			"Billing required",
			"Content policy restrictions",
		},
	},
}

func LookupProvider(p ProviderType) (ProviderInfo, bool) {
	info, ok := providerCatalog[p]
	return info, ok
}
