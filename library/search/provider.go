package search

import (
	"context"
	"strconv"
	"strings"
)

// Params carries optional provider parameters such as location, count or freshness.
type Params map[string]any

const (
	ParamLocation  = "location"
	ParamCount     = "count"
	ParamFreshness = "freshness"
)

// Provider executes a single search against an external API.
//
// Search performs the network call (retrying transient failures once) and returns
// the raw provider payload. ParseResults normalizes that payload and must tolerate
// missing optional fields. IsAvailable reports whether real credentials are configured.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, params Params) ([]byte, error)
	ParseResults(raw []byte) (*SearchResults, error)
	IsAvailable() bool
}

// Clone returns a shallow copy of p, never nil.
func (p Params) Clone() Params {
	cloned := make(Params, len(p)+1)
	for k, v := range p {
		cloned[k] = v
	}
	return cloned
}

// String returns the string value stored under key.
func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Int returns the integer value stored under key, or def when absent or invalid.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

// IsPlaceholderCredential reports whether value is empty or one of the sample
// values shipped in example env files, like "your_brave_api_key_here".
func IsPlaceholderCredential(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}

	switch v {
	case "changeme", "change_me", "placeholder", "xxx", "todo", "none", "null":
		return true
	}

	if strings.HasPrefix(v, "your_") || strings.HasPrefix(v, "your-") {
		return true
	}
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return true
	}
	return strings.HasSuffix(v, "_here")
}
