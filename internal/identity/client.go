// Package identity wraps the hosted identity provider: password and federated
// sign-in, account creation, and ID-token refresh. All calls go through the
// provider's REST surface authenticated by the project's web API key; token
// verification for incoming requests stays with the Admin SDK.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultIdentityBaseURL    = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenBaseURL = "https://securetoken.googleapis.com/v1"
)

// Credentials is the identity provider's view of a signed-in user: the
// principal plus the short-lived bearer token used to authenticate backend
// calls, and the refresh token used to mint a fresh one.
type Credentials struct {
	UID          string
	Email        string
	DisplayName  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Service is the session/identity adapter contract consumed by the view layer.
type Service interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Credentials, error)
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	UpdateDisplayName(ctx context.Context, idToken, displayName string) error
	SignInWithIdP(ctx context.Context, providerID, providerToken string) (*Credentials, error)
	RefreshIDToken(ctx context.Context, refreshToken string) (*Credentials, error)
}

// Client talks to the identity provider's REST endpoints.
type Client struct {
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger

	// Overridable for tests.
	IdentityBaseURL    string
	SecureTokenBaseURL string
}

// NewClient creates an identity Client for the given web API key.
func NewClient(apiKey string, logger *zap.Logger) *Client {
	return &Client{
		apiKey:             apiKey,
		httpClient:         &http.Client{Timeout: 15 * time.Second},
		logger:             logger,
		IdentityBaseURL:    defaultIdentityBaseURL,
		SecureTokenBaseURL: defaultSecureTokenBaseURL,
	}
}

// tokenResponse covers the accounts:signUp, accounts:signInWithPassword, and
// accounts:signInWithIdp response shapes (expiresIn arrives as a string).
type tokenResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword authenticates an existing account with email + password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Credentials, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	resp, err := c.postJSON(ctx, c.identityURL("accounts:signInWithPassword"), body)
	if err != nil {
		return nil, fmt.Errorf("sign-in with password: %w", err)
	}
	return resp.credentials()
}

// SignUp creates a new account with email + password.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	resp, err := c.postJSON(ctx, c.identityURL("accounts:signUp"), body)
	if err != nil {
		return nil, fmt.Errorf("sign-up: %w", err)
	}
	return resp.credentials()
}

// UpdateDisplayName sets the account display name for the user owning idToken.
func (c *Client) UpdateDisplayName(ctx context.Context, idToken, displayName string) error {
	body := map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}
	if _, err := c.postJSON(ctx, c.identityURL("accounts:update"), body); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

// SignInWithIdP exchanges a federated provider token (an OIDC id_token for
// Google, an access token for Facebook) for provider credentials.
func (c *Client) SignInWithIdP(ctx context.Context, providerID, providerToken string) (*Credentials, error) {
	tokenField := "access_token"
	if providerID == ProviderGoogle {
		tokenField = "id_token"
	}
	body := map[string]any{
		"postBody":            fmt.Sprintf("%s=%s&providerId=%s", tokenField, providerToken, providerID),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	resp, err := c.postJSON(ctx, c.identityURL("accounts:signInWithIdp"), body)
	if err != nil {
		return nil, fmt.Errorf("sign-in with %s: %w", providerID, err)
	}
	return resp.credentials()
}

// refreshResponse is the secure-token endpoint's shape; unlike the identity
// endpoints it uses snake_case fields.
type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// RefreshIDToken mints a fresh ID token from a refresh token. Callers fetch a
// fresh token immediately before every backend call; this is the refresh path
// taken when the cached token is near expiry.
func (c *Client) RefreshIDToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	endpoint := fmt.Sprintf("%s/token?key=%s", c.SecureTokenBaseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	var resp refreshResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("refresh token: decode response: %w", err)
	}
	return &Credentials{
		UID:          resp.UserID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiryFrom(resp.ExpiresIn),
	}, nil
}

func (c *Client) identityURL(operation string) string {
	return fmt.Sprintf("%s/%s?key=%s", c.IdentityBaseURL, operation, url.QueryEscape(c.apiKey))
}

// postJSON posts body as JSON and decodes a tokenResponse from the reply.
func (c *Client) postJSON(ctx context.Context, endpoint string, body map[string]any) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// do executes the request and returns the raw body for 2xx responses. Provider
// error codes (EMAIL_EXISTS, INVALID_PASSWORD, ...) are logged server-side and
// folded into the returned error; callers surface only a generic message.
func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var perr providerError
		if err := json.Unmarshal(raw, &perr); err == nil && perr.Error.Message != "" {
			c.logger.Warn("identity provider rejected request",
				zap.Int("status", res.StatusCode),
				zap.String("code", perr.Error.Message))
			return nil, fmt.Errorf("provider error: %s", perr.Error.Message)
		}
		return nil, fmt.Errorf("provider returned status %d", res.StatusCode)
	}
	return raw, nil
}

func (r *tokenResponse) credentials() (*Credentials, error) {
	if r.LocalID == "" || r.IDToken == "" {
		return nil, fmt.Errorf("provider response missing credentials")
	}
	return &Credentials{
		UID:          r.LocalID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiryFrom(r.ExpiresIn),
	}, nil
}

// expiryFrom converts the provider's expiresIn seconds (sent as a string) to
// an absolute deadline, falling back to one hour.
func expiryFrom(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}
