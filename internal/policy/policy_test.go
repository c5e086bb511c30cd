package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vihaankava/nonprofit/library/search"
)

func TestShouldUseSearch(t *testing.T) {
	require.True(t, ShouldUseSearch("research", "local_orgs"))
	require.True(t, ShouldUseSearch(SectionResearch, ContentResources))
	require.True(t, ShouldUseSearch(SectionResearch, ContentImplementationSteps))
	require.True(t, ShouldUseSearch(SectionFunding, ContentGrantProposal))
	require.True(t, ShouldUseSearch(SectionFunding, ContentBudgetPlan))

	require.False(t, ShouldUseSearch("marketing", "email"))
	require.False(t, ShouldUseSearch(SectionFunding, ContentDonorLetter))
	require.False(t, ShouldUseSearch(SectionTeam, ContentJobDescription))
	require.False(t, ShouldUseSearch(SectionMarketing, ContentLocalOrgs), "pair must match, not just the type")
	require.False(t, ShouldUseSearch("", ""))

	section, ct := Normalize(" Research ", "LOCAL_ORGS")
	require.True(t, ShouldUseSearch(section, ct))

	total := 0
	for _, types := range EligiblePairs() {
		total += len(types)
	}
	require.Equal(t, 5, total)
}

func TestIdeaMainCause(t *testing.T) {
	require.Equal(t, "literacy", IdeaSummary{Cause: " literacy ", Title: "Read"}.MainCause())
	require.Equal(t, "Read Together", IdeaSummary{Title: "Read Together"}.MainCause())
	require.Equal(t, "one two three four five six seven eight",
		IdeaSummary{Description: "one two three four five six seven eight nine"}.MainCause())
	require.Equal(t, defaultCause, IdeaSummary{}.MainCause())

	require.Equal(t, "", IdeaSummary{Location: "N/A"}.Place())
	require.Equal(t, "Springfield", IdeaSummary{Location: " Springfield "}.Place())
}

func TestBuildQuery(t *testing.T) {
	idea := IdeaSummary{Cause: "reading tutoring", Location: "Springfield"}

	query, params := BuildQuery(idea, SectionResearch, ContentLocalOrgs)
	require.Equal(t, "reading tutoring nonprofit organizations near Springfield", query)
	require.Equal(t, "Springfield", params.String(search.ParamLocation))

	query, _ = BuildQuery(idea, SectionFunding, ContentGrantProposal)
	require.Equal(t, "reading tutoring grants funding opportunities in Springfield", query)

	query, _ = BuildQuery(idea, SectionResearch, ContentResources)
	require.Equal(t, "reading tutoring tools platforms resources for nonprofits", query)

	query, _ = BuildQuery(idea, SectionMarketing, ContentSocialPost)
	require.Equal(t, "reading tutoring nonprofit social post", query, "unmapped types use the generic template")

	query, params = BuildQuery(IdeaSummary{Cause: "food"}, SectionResearch, ContentLocalOrgs)
	require.Equal(t, "food nonprofit organizations", query)
	require.Empty(t, params)
}

type stubSearcher struct {
	available bool
	calls     []string
	results   *search.SearchResults
}

func (s *stubSearcher) Available() bool { return s.available }

func (s *stubSearcher) Search(_ context.Context, query, location string, _ search.Params) *search.SearchResults {
	s.calls = append(s.calls, "search:"+query+"@"+location)
	return s.results
}

func (s *stubSearcher) SearchLocalOrganizations(_ context.Context, cause, location string, _ int) []search.Organization {
	s.calls = append(s.calls, "orgs:"+cause+"@"+location)
	return []search.Organization{{Name: "Springfield Reads", Website: "https://reads.example.org"}}
}

func (s *stubSearcher) SearchGrants(_ context.Context, cause, location string, _ int) []search.Grant {
	s.calls = append(s.calls, "grants:"+cause+"@"+location)
	return []search.Grant{}
}

func (s *stubSearcher) SearchResources(_ context.Context, topic string, _ int) []search.Resource {
	s.calls = append(s.calls, "resources:"+topic)
	return []search.Resource{{Title: "Free CRM", ResourceType: search.ResourceTypeTool}}
}

func TestAugmentWithoutSearcherIsAIOnly(t *testing.T) {
	aug := NewAugmenter(nil).Augment(context.Background(),
		IdeaSummary{Cause: "literacy"}, SectionResearch, ContentLocalOrgs)

	require.False(t, aug.SearchAvailable)
	require.False(t, aug.UsedSearch)
	require.False(t, aug.HasData())
	require.Empty(t, aug.PromptContext())
}

func TestAugmentSkipsIneligibleAndUnavailable(t *testing.T) {
	ctx := context.Background()
	idea := IdeaSummary{Cause: "literacy", Location: "Springfield"}

	stub := &stubSearcher{available: true}
	aug := NewAugmenter(stub).Augment(ctx, idea, SectionMarketing, ContentEmail)
	require.True(t, aug.SearchAvailable)
	require.False(t, aug.UsedSearch)
	require.Empty(t, stub.calls)

	stub = &stubSearcher{available: false}
	aug = NewAugmenter(stub).Augment(ctx, idea, SectionResearch, ContentLocalOrgs)
	require.False(t, aug.SearchAvailable)
	require.Empty(t, stub.calls)
}

func TestAugmentRoutesToDomainSearches(t *testing.T) {
	ctx := context.Background()
	idea := IdeaSummary{Cause: "literacy", Location: "Springfield"}
	stub := &stubSearcher{
		available: true,
		results: &search.SearchResults{Results: []search.SearchResult{
			{Title: "Guide", URL: "https://guide.example.org", Snippet: "steps"},
		}},
	}
	augmenter := NewAugmenter(stub, WithLimit(3))

	aug := augmenter.Augment(ctx, idea, SectionResearch, ContentLocalOrgs)
	require.True(t, aug.UsedSearch)
	require.Len(t, aug.Organizations, 1)
	require.Contains(t, aug.PromptContext(), "Springfield Reads")

	aug = augmenter.Augment(ctx, idea, SectionFunding, ContentGrantProposal)
	require.Equal(t, KindGrants, aug.Kind)
	require.False(t, aug.HasData(), "an empty grant list is no data")

	aug = augmenter.Augment(ctx, idea, SectionResearch, ContentResources)
	require.Len(t, aug.Resources, 1)

	aug = augmenter.Augment(ctx, idea, SectionResearch, ContentImplementationSteps)
	require.Equal(t, KindGeneral, aug.Kind)
	require.Same(t, stub.results, aug.Results)

	require.Equal(t, []string{
		"orgs:literacy@Springfield",
		"grants:literacy@Springfield",
		"resources:literacy",
		"search:how to start a literacy nonprofit step by step guide@Springfield",
	}, stub.calls)
}

func TestAugmentLocalOrgsWithoutLocationFallsBackToGeneralSearch(t *testing.T) {
	stub := &stubSearcher{available: true}
	aug := NewAugmenter(stub).Augment(context.Background(),
		IdeaSummary{Cause: "literacy"}, SectionResearch, ContentLocalOrgs)

	require.Equal(t, KindGeneral, aug.Kind)
	require.Nil(t, aug.Results)
	require.Equal(t, []string{"search:literacy nonprofit organizations@"}, stub.calls)
}
