package aggregate

import "strings"

// PromptVocab holds the keyword lists free-text prompts are matched against.
type PromptVocab struct {
	Locations    []string
	Fields       []string
	Needs        []string
	Availability []string
}

// ParsePrompt scans a free-text prompt for known location, field, need and
// availability keywords and returns the non-empty matches as a filter map.
// defaultLocation wins over anything found in the text.
func ParsePrompt(prompt, defaultLocation string, vocab PromptVocab) map[string]string {
	text := strings.ToLower(prompt)

	location := defaultLocation
	if location == "" {
		location = firstMatch(text, vocab.Locations)
	}

	filters := map[string]string{}
	put := func(key, val string) {
		if val != "" {
			filters[key] = val
		}
	}
	put("location", location)
	put("field", firstMatch(text, vocab.Fields))
	put("need", firstMatch(text, vocab.Needs))
	put("availability", firstMatch(text, vocab.Availability))
	return filters
}

func firstMatch(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}
