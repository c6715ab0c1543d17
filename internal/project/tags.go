package project

import "strings"

var tagVocabulary = []string{
	"fantasy", "sci-fi", "medieval", "modern", "pixel", "realistic", "cartoon",
	"weapon", "armor", "magic", "technology", "nature", "character", "building",
	"vehicle", "item", "spell", "monster", "hero", "villain",
}

// ExtractTags returns every vocabulary word found as a substring of the
// prompt, in vocabulary order.
func ExtractTags(prompt string) []string {
	lower := strings.ToLower(prompt)
	tags := []string{}
	for _, tag := range tagVocabulary {
		if strings.Contains(lower, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}
