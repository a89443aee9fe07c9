// Package auth resolves bearer credentials presented during the WebSocket
// handshake into user identities. Invalid or missing credentials degrade to
// anonymous access; they never reject the connection.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Identity is the resolved user bound to a connection for its lifetime.
// The zero value is the anonymous identity.
type Identity struct {
	ID       string
	Username string
	Email    string
}

// Anonymous is the identity bound to connections without valid credentials.
var Anonymous = Identity{}

// IsAnonymous reports whether the identity carries no resolved user.
func (id Identity) IsAnonymous() bool {
	return id.ID == ""
}

// Validator resolves a bearer token into an identity. Implementations call
// out to the external credential-validation service.
type Validator interface {
	Validate(ctx context.Context, token string) (Identity, error)
}

// ExtractToken pulls a bearer token from the request, checking the "token"
// query parameter first and the Authorization header second.
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}

	return ""
}

// BindIdentity resolves the request's credentials before the connection is
// admitted to any group. A missing token, a nil validator, or any validation
// failure (malformed, expired, revoked) resolves to Anonymous.
func BindIdentity(ctx context.Context, r *http.Request, v Validator) Identity {
	token := ExtractToken(r)
	if token == "" || v == nil {
		return Anonymous
	}

	identity, err := v.Validate(ctx, token)
	if err != nil {
		slog.Debug("credential validation failed; continuing as anonymous",
			"remoteAddr", r.RemoteAddr, "error", err)
		return Anonymous
	}

	return identity
}
