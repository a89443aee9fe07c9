package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DSwithSiam/demo-websocket-project/internal/server"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/chat/general/", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{
			name:    "exact match",
			allowed: []string{"http://localhost:8080"},
			origin:  "http://localhost:8080",
			want:    true,
		},
		{
			name:    "case-insensitive match",
			allowed: []string{"http://Example.COM"},
			origin:  "http://example.com",
			want:    true,
		},
		{
			name:    "unlisted origin rejected",
			allowed: []string{"http://localhost:8080"},
			origin:  "http://evil.example.com",
			want:    false,
		},
		{
			name:    "missing origin header rejected",
			allowed: []string{"http://localhost:8080"},
			origin:  "",
			want:    false,
		},
		{
			name:    "wildcard allows everything",
			allowed: []string{"*"},
			origin:  "http://anywhere.example.com",
			want:    true,
		},
		{
			name:    "malformed origin rejected",
			allowed: []string{"http://localhost:8080"},
			origin:  "not a url",
			want:    false,
		},
		{
			name:    "scheme matters",
			allowed: []string{"https://app.example.com"},
			origin:  "http://app.example.com",
			want:    false,
		},
		{
			name:    "invalid configured entries are skipped",
			allowed: []string{"", "garbage", "http://good.example.com"},
			origin:  "http://good.example.com",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := server.NewOriginPolicy(tt.allowed)
			assert.Equal(t, tt.want, policy.CheckOrigin(requestWithOrigin(tt.origin)))
		})
	}
}
