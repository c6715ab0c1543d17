package palette

import (
	"fmt"
	"strings"
)

const (
	strictHeader   = "STRICT COLOR PALETTE: Use ONLY these exact hex colors"
	forbiddenRule  = "FORBIDDEN: Do not use any colors outside this palette"
	shadowRule     = "Shadows must be darker variants of these colors only"
	highlightsRule = "Highlights must be lighter variants of these colors only"
)

// Render appends a color-constraint directive for p to prompt. An empty
// prompt is returned unchanged.
func Render(prompt string, p *Palette) string {
	if prompt == "" || p == nil {
		return prompt
	}

	constraints := []string{strictHeader}
	for _, s := range p.Slots() {
		constraints = append(constraints, fmt.Sprintf("%s %s for %s", s.Label, s.Value, s.Usage))
	}
	for _, c := range p.Custom {
		usage := c.Description
		if usage == "" {
			usage = c.Name
		}
		constraints = append(constraints, fmt.Sprintf("Special %s for %s", c.Hex, usage))
	}
	constraints = append(constraints, forbiddenRule, shadowRule, highlightsRule)

	return fmt.Sprintf("%s. COLOR RESTRICTIONS: %s.", prompt, strings.Join(constraints, ", "))
}
