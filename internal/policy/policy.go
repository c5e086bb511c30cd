// Package policy decides which generated content is augmented with web search
// and how the search query is built from an idea.
package policy

import (
	"fmt"
	"strings"

	"github.com/vihaankava/nonprofit/library/search"
)

// Section groups generated content on the idea site.
type Section string

const (
	SectionMarketing Section = "marketing"
	SectionTeam      Section = "team"
	SectionFunding   Section = "funding"
	SectionResearch  Section = "research"
)

// ContentType is one kind of generated document inside a section.
type ContentType string

const (
	ContentEmail         ContentType = "email"
	ContentFlyer         ContentType = "flyer"
	ContentSocialPost    ContentType = "social_post"
	ContentAdvertisement ContentType = "advertisement"

	ContentRecruitingPitch ContentType = "recruiting_pitch"
	ContentJobDescription  ContentType = "job_description"
	ContentVolunteerForm   ContentType = "volunteer_form"

	ContentGrantProposal ContentType = "grant_proposal"
	ContentDonorLetter   ContentType = "donor_letter"
	ContentBudgetPlan    ContentType = "budget_plan"

	ContentImplementationSteps ContentType = "implementation_steps"
	ContentLocalOrgs           ContentType = "local_orgs"
	ContentResources           ContentType = "resources"
)

// Kind names the search operation that serves an eligible pair.
type Kind string

const (
	// KindNone means AI-only generation.
	KindNone          Kind = ""
	KindGeneral       Kind = "general"
	KindOrganizations Kind = "organizations"
	KindGrants        Kind = "grants"
	KindResources     Kind = "resources"
)

// searchTable lists every search-eligible (section, content type) pair.
var searchTable = map[Section]map[ContentType]Kind{
	SectionResearch: {
		ContentLocalOrgs:           KindOrganizations,
		ContentResources:           KindResources,
		ContentImplementationSteps: KindGeneral,
	},
	SectionFunding: {
		ContentGrantProposal: KindGrants,
		ContentBudgetPlan:    KindGeneral,
	},
}

// Normalize lowercases and trims free-form section and content type tags.
func Normalize(section, contentType string) (Section, ContentType) {
	return Section(strings.ToLower(strings.TrimSpace(section))),
		ContentType(strings.ToLower(strings.TrimSpace(contentType)))
}

// Lookup returns the search operation for the pair, KindNone when it is AI-only.
func Lookup(section Section, contentType ContentType) Kind {
	return searchTable[section][contentType]
}

// ShouldUseSearch reports whether content of this type in this section is search-augmented.
func ShouldUseSearch(section Section, contentType ContentType) bool {
	return Lookup(section, contentType) != KindNone
}

// EligiblePairs returns the search-augmented content types per section.
func EligiblePairs() map[Section][]ContentType {
	out := make(map[Section][]ContentType, len(searchTable))
	for section, types := range searchTable {
		for ct := range types {
			out[section] = append(out[section], ct)
		}
	}
	return out
}

type queryTemplate func(cause, location string) string

var queryTemplates = map[ContentType]queryTemplate{
	ContentLocalOrgs: func(cause, location string) string {
		if location == "" {
			return cause + " nonprofit organizations"
		}
		return fmt.Sprintf("%s nonprofit organizations near %s", cause, location)
	},
	ContentResources: func(cause, _ string) string {
		return fmt.Sprintf("%s tools platforms resources for nonprofits", cause)
	},
	ContentImplementationSteps: func(cause, _ string) string {
		return fmt.Sprintf("how to start a %s nonprofit step by step guide", cause)
	},
	ContentGrantProposal: func(cause, location string) string {
		if location == "" {
			return cause + " grants funding opportunities"
		}
		return fmt.Sprintf("%s grants funding opportunities in %s", cause, location)
	},
	ContentBudgetPlan: func(cause, _ string) string {
		return fmt.Sprintf("%s nonprofit startup budget operating costs", cause)
	},
}

// BuildQuery returns the search string for the content and its parameters.
// Unmapped content types use a generic "<cause> nonprofit <content type>" query.
// The returned params carry the idea location under search.ParamLocation when known.
func BuildQuery(idea IdeaSummary, section Section, contentType ContentType) (string, search.Params) {
	cause, location := idea.MainCause(), idea.Place()

	var query string
	if tpl, ok := queryTemplates[contentType]; ok {
		query = tpl(cause, location)
	} else {
		label := strings.ReplaceAll(string(contentType), "_", " ")
		if label == "" {
			label = string(section)
		}
		query = strings.TrimSpace(cause + " nonprofit " + label)
	}

	params := search.Params{}
	if location != "" {
		params[search.ParamLocation] = location
	}
	return query, params
}
