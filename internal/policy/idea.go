package policy

import (
	"strings"
)

const (
	defaultCause    = "community"
	causeWordsLimit = 8
)

// IdeaSummary is the questionnaire outcome describing one nonprofit idea.
type IdeaSummary struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Cause          string `json:"cause,omitempty"`
	Location       string `json:"location,omitempty"`
	Importance     string `json:"importance,omitempty"`
	Beneficiaries  string `json:"beneficiaries,omitempty"`
	Implementation string `json:"implementation,omitempty"`
	Significance   string `json:"significance,omitempty"`
	Uniqueness     string `json:"uniqueness,omitempty"`
}

// MainCause returns the cause used in search queries.
// It falls back to the title, then to the first words of the description.
func (i IdeaSummary) MainCause() string {
	if cause := strings.TrimSpace(i.Cause); cause != "" {
		return cause
	}
	if title := strings.TrimSpace(i.Title); title != "" {
		return title
	}

	words := strings.Fields(i.Description)
	if len(words) == 0 {
		return defaultCause
	}
	if len(words) > causeWordsLimit {
		words = words[:causeWordsLimit]
	}
	return strings.Join(words, " ")
}

// Place returns the trimmed operating location, empty when unknown.
func (i IdeaSummary) Place() string {
	loc := strings.TrimSpace(i.Location)
	switch strings.ToLower(loc) {
	case "n/a", "na", "none", "unknown":
		return ""
	}
	return loc
}
