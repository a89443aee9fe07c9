package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidToken is returned when the credential service rejects a token.
var ErrInvalidToken = errors.New("auth: invalid token")

// HTTPValidator validates tokens against an external credential service.
// Token issuance is entirely the service's concern; this client only asks
// whether a token maps to a user.
type HTTPValidator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPValidator creates a validator that posts tokens to the verify
// endpoint of the given credential service.
func NewHTTPValidator(baseURL string) *HTTPValidator {
	return &HTTPValidator{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Validate posts the token to the credential service and decodes the
// resolved user. Any non-200 response is treated as an invalid token.
func (v *HTTPValidator) Validate(ctx context.Context, token string) (Identity, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return Anonymous, fmt.Errorf("auth: encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/token/verify/", bytes.NewReader(body))
	if err != nil {
		return Anonymous, fmt.Errorf("auth: build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Anonymous, fmt.Errorf("auth: verify request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Anonymous, fmt.Errorf("%w: verify returned status %d", ErrInvalidToken, resp.StatusCode)
	}

	var payload struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Anonymous, fmt.Errorf("auth: decode verify response: %w", err)
	}
	if payload.ID == "" {
		return Anonymous, ErrInvalidToken
	}

	return Identity{ID: payload.ID, Username: payload.Username, Email: payload.Email}, nil
}

// StaticValidator resolves tokens from a fixed map. It exists for tests and
// local development without a credential service.
type StaticValidator struct {
	Tokens map[string]Identity
}

// Validate looks the token up in the static map.
func (v *StaticValidator) Validate(_ context.Context, token string) (Identity, error) {
	if identity, ok := v.Tokens[token]; ok {
		return identity, nil
	}
	return Anonymous, ErrInvalidToken
}
