package web

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"
	ctxKeyRequestID = "request_id"
)

// requestID propagates a valid incoming X-Request-Id or assigns a new one.
func requestID(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.GetHeader(headerRequestID))
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	ctx.Set(ctxKeyRequestID, id)
	ctx.Header(headerRequestID, id)
	ctx.Next()
}

// newCORSMiddleware allows browser calls from the listed hosts and their subdomains.
// An entry "*" allows any origin. Preflights from other origins are rejected.
func newCORSMiddleware(allowedHosts []string) gin.HandlerFunc {
	hosts := make([]string, 0, len(allowedHosts))
	allowAll := false
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch h {
		case "":
		case "*":
			allowAll = true
		default:
			hosts = append(hosts, h)
		}
	}

	allowed := func(origin string) bool {
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Host == "" {
			return false
		}
		if allowAll {
			return true
		}

		host := strings.ToLower(parsed.Hostname())
		if net.ParseIP(host) != nil {
			for _, h := range hosts {
				if h == host {
					return true
				}
			}
			return false
		}
		for _, h := range hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return true
			}
		}
		return false
	}

	return func(ctx *gin.Context) {
		origin := strings.TrimSpace(ctx.Request.Header.Get("Origin"))

		switch {
		case origin == "":
			if ctx.Request.Method == http.MethodOptions {
				setCORSHeaders(ctx, "*")
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		case allowed(origin):
			setCORSHeaders(ctx, origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Vary", "Origin")
			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		case ctx.Request.Method == http.MethodOptions:
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}

func setCORSHeaders(ctx *gin.Context, origin string) {
	ctx.Header("Access-Control-Allow-Origin", origin)
	ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
	ctx.Header("Access-Control-Allow-Headers", "*")
	ctx.Header("Access-Control-Expose-Headers", headerRequestID)
	ctx.Header("Access-Control-Max-Age", "86400")
}
