package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open WebSocket
// connections. It gates the handshake for every consumer route: a request
// from a disallowed origin is rejected before any group is joined.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy builds a policy from the configured origin list. Entries
// are normalized to scheme://host; "*" allows every origin; invalid entries
// are logged and ignored.
func NewOriginPolicy(origins []string) *OriginPolicy {
	policy := &OriginPolicy{
		allowed: make(map[string]struct{}, len(origins)),
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			policy.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			slog.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		policy.allowed[normalized] = struct{}{}
	}

	return policy
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// Allows reports whether the request's Origin header passes the policy.
func (p *OriginPolicy) Allows(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	if p.allowAll {
		return true
	}

	_, exists := p.allowed[normalized]
	return exists
}

// CheckOrigin is the gorilla upgrader hook. Rejections are logged with the
// offending origin.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	if p.Allows(r) {
		return true
	}

	slog.Warn("blocked WebSocket connection from disallowed origin",
		"origin", r.Header.Get("Origin"), "remoteAddr", r.RemoteAddr)
	return false
}
