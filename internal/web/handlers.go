package web

import (
	"net/http"
	"strconv"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/vihaankava/nonprofit/internal/formatter"
	"github.com/vihaankava/nonprofit/internal/policy"
	"github.com/vihaankava/nonprofit/library/search"
)

const maxLimit = 50

func (s *Server) available() bool {
	return s.svc != nil && s.svc.Available()
}

func (s *Server) health(ctx *gin.Context) {
	resp := gin.H{
		"status":           "ok",
		"search_available": s.available(),
	}
	if s.svc != nil {
		resp["provider"] = s.svc.ProviderName()
	}
	ctx.JSON(http.StatusOK, resp)
}

// search answers with results, or a null result set when search is unavailable or fails.
func (s *Server) search(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Query("q"))
	if query == "" {
		abortBadRequest(ctx, "q is required")
		return
	}
	count, ok := limitParam(ctx, "count", 0)
	if !ok {
		return
	}

	var results *search.SearchResults
	if s.svc != nil {
		var filters search.Params
		if count > 0 {
			filters = search.Params{search.ParamCount: count}
		}
		results = s.svc.Search(ctx, query, strings.TrimSpace(ctx.Query("location")), filters)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"query":            query,
		"search_available": s.available(),
		"results":          results,
	})
}

func (s *Server) searchOrganizations(ctx *gin.Context) {
	cause, location := strings.TrimSpace(ctx.Query("cause")), strings.TrimSpace(ctx.Query("location"))
	if cause == "" || location == "" {
		abortBadRequest(ctx, "cause and location are required")
		return
	}
	limit, ok := limitParam(ctx, "limit", search.DefaultOrganizationLimit)
	if !ok {
		return
	}

	orgs := []search.Organization{}
	if s.svc != nil {
		orgs = s.svc.SearchLocalOrganizations(ctx, cause, location, limit)
	}
	ctx.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

func (s *Server) searchGrants(ctx *gin.Context) {
	cause := strings.TrimSpace(ctx.Query("cause"))
	if cause == "" {
		abortBadRequest(ctx, "cause is required")
		return
	}
	limit, ok := limitParam(ctx, "limit", search.DefaultGrantLimit)
	if !ok {
		return
	}

	grants := []search.Grant{}
	if s.svc != nil {
		grants = s.svc.SearchGrants(ctx, cause, strings.TrimSpace(ctx.Query("location")), limit)
	}
	ctx.JSON(http.StatusOK, gin.H{"grants": grants})
}

func (s *Server) searchResources(ctx *gin.Context) {
	topic := strings.TrimSpace(ctx.Query("topic"))
	if topic == "" {
		abortBadRequest(ctx, "topic is required")
		return
	}
	limit, ok := limitParam(ctx, "limit", search.DefaultResourceLimit)
	if !ok {
		return
	}

	resources := []search.Resource{}
	if s.svc != nil {
		resources = s.svc.SearchResources(ctx, topic, limit)
	}
	ctx.JSON(http.StatusOK, gin.H{"resources": resources})
}

func (s *Server) stats(ctx *gin.Context) {
	if s.svc == nil {
		ctx.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	stats, err := s.svc.Stats(ctx)
	if err != nil {
		gmw.GetLogger(ctx).Error("read search stats", zap.Error(err))
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cannot read cache stats"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"enabled":  true,
		"provider": s.svc.ProviderName(),
		"cache":    stats,
	})
}

type augmentRequest struct {
	Idea        policy.IdeaSummary `json:"idea"`
	Section     string             `json:"section" binding:"required"`
	ContentType string             `json:"content_type" binding:"required"`
	// Content is optional generated text to decorate with tables, citations and links.
	Content string `json:"content"`
}

type augmentResponse struct {
	*policy.Augmentation
	PromptContext string `json:"prompt_context,omitempty"`
	Content       string `json:"content,omitempty"`
}

// augment applies the search policy for one piece of content and, when content
// is supplied, returns it decorated with the findings.
func (s *Server) augment(ctx *gin.Context) {
	req := new(augmentRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		abortBadRequest(ctx, "invalid request: "+err.Error())
		return
	}

	section, contentType := policy.Normalize(req.Section, req.ContentType)
	aug := s.augmenter.Augment(ctx, req.Idea, section, contentType)

	resp := augmentResponse{
		Augmentation:  aug,
		PromptContext: aug.PromptContext(),
	}
	if req.Content != "" {
		content := formatter.FormatWithTables(req.Content, aug)
		content = formatter.AddCitations(content, aug.Results)
		resp.Content = formatter.EnsureLinksClickable(content)
	}

	ctx.JSON(http.StatusOK, resp)
}

// limitParam parses an optional positive integer query parameter capped at maxLimit.
// It aborts the request and returns false on invalid input.
func limitParam(ctx *gin.Context, key string, def int) (int, bool) {
	raw := strings.TrimSpace(ctx.Query(key))
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		abortBadRequest(ctx, key+" must be a positive integer")
		return 0, false
	}
	return min(v, maxLimit), true
}

func abortBadRequest(ctx *gin.Context, msg string) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
