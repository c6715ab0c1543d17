package dispatch

import (
	"errors"
	"net/http"
	"strings"

	"github.com/manash/iconforge/internal/provider"
	"github.com/manash/iconforge/pkg/models"
)

type rule struct {
	kind    Kind
	needles []string
	message string
}

// Rules are checked in order against the lowercased provider error text.
// The first match wins.
var rules = map[models.ProviderType][]rule{
	models.ProviderGoogle: {
		{KindQuota, []string{"quota", "429", "resource_exhausted"}, "Google AI quota exceeded. Free tier is limited to 0 requests per day."},
		{KindAuth, []string{"api key", "api_key", "unauthorized", "unauthenticated"}, "Invalid Google AI API key"},
		{KindBilling, []string{"billing"}, "Google AI billing issue. Enable billing in your Google Cloud account."},
		{KindContentPolicy, []string{"safety", "prohibited_content"}, "Request violates Google AI content policy. Try rephrasing your prompt."},
	},
	models.ProviderOpenAI: {
		{KindBilling, []string{"billing", "hard limit"}, "OpenAI billing limit reached. Add payment method to your OpenAI account."},
		{KindQuota, []string{"insufficient_quota", "rate_limit", "rate limit"}, "OpenAI rate limit exceeded. Try again later."},
		{KindContentPolicy, []string{"content_policy", "safety system"}, "Request violates OpenAI content policy. Try rephrasing your prompt."},
		{KindAuth, []string{"api_key", "api key", "unauthorized"}, "Invalid OpenAI API key"},
	},
}

// classify turns a provider failure into a kind and a user-facing message.
// Unmatched errors keep the provider's wording.
func classify(p models.ProviderType, err error) (Kind, string) {
	message := err.Error()
	text := message
	status := 0

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
		text = apiErr.Message + " " + apiErr.Code
		status = apiErr.StatusCode
	}

	lower := strings.ToLower(text)
	for _, r := range rules[p] {
		for _, n := range r.needles {
			if strings.Contains(lower, n) {
				return r.kind, r.message
			}
		}
	}

	switch status {
	case http.StatusTooManyRequests:
		return KindQuota, message
	case http.StatusUnauthorized:
		return KindAuth, message
	case http.StatusPaymentRequired:
		return KindBilling, message
	}

	if message == "" {
		message = string(p) + " generation failed"
	}
	return KindGeneric, message
}
