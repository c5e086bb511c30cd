package search

import (
	"regexp"
	"strings"
)

var (
	guideWords   = regexp.MustCompile(`\b(guide|guides|how to|how-to|tutorial|handbook|playbook|course|checklist)\b`)
	toolWords    = regexp.MustCompile(`\b(tool|tools|app|apps|software|template|templates|calculator|generator|plugin)\b`)
	articleWords = regexp.MustCompile(`\b(blog|article|news|report|study|insights)\b`)

	freemiumWords = regexp.MustCompile(`\b(freemium|free plan|free tier|free trial|free version)\b`)
	freeWords     = regexp.MustCompile(`\b(free|no cost|open source|open-source)\b`)
	paidWords     = regexp.MustCompile(`(\$\d|\b(pricing|paid|subscription|per month|/mo)\b)`)
)

// ClassifyResource guesses the ResourceType of a result from its title and snippet.
// Guides win over tools, tools over articles; anything else is a platform.
func ClassifyResource(title, snippet string) ResourceType {
	text := strings.ToLower(title + " " + snippet)
	switch {
	case guideWords.MatchString(text):
		return ResourceTypeGuide
	case toolWords.MatchString(text):
		return ResourceTypeTool
	case articleWords.MatchString(text):
		return ResourceTypeArticle
	default:
		return ResourceTypePlatform
	}
}

// ClassifyCost returns free, freemium or paid, or an empty string when the text gives no hint.
func ClassifyCost(title, snippet string) string {
	text := strings.ToLower(title + " " + snippet)
	switch {
	case freemiumWords.MatchString(text):
		return "freemium"
	case freeWords.MatchString(text) && paidWords.MatchString(text):
		return "freemium"
	case freeWords.MatchString(text):
		return "free"
	case paidWords.MatchString(text):
		return "paid"
	default:
		return ""
	}
}
