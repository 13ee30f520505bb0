package identity

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

// Provider IDs as the identity provider names them in signInWithIdp calls.
const (
	ProviderGoogle   = "google.com"
	ProviderFacebook = "facebook.com"
)

// OAuthProvider drives the server-side redirect flow that replaces the
// original popup-based federated sign-in: build the consent URL, then exchange
// the callback code for the token signInWithIdp expects.
type OAuthProvider struct {
	// ID is the identity-provider identifier (e.g. "google.com").
	ID string
	// UsesIDToken selects which token from the exchange is forwarded to the
	// identity provider: the OIDC id_token (Google) or the OAuth access token
	// (Facebook).
	UsesIDToken bool

	config *oauth2.Config
}

// NewGoogleOAuthProvider configures the Google consent flow.
func NewGoogleOAuthProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		ID:          ProviderGoogle,
		UsesIDToken: true,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// NewFacebookOAuthProvider configures the Facebook consent flow.
func NewFacebookOAuthProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		ID:          ProviderFacebook,
		UsesIDToken: false,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
	}
}

// AuthCodeURL returns the provider consent URL carrying the CSRF state token.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades the callback authorization code for the provider token that
// SignInWithIdP consumes.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	if !p.UsesIDToken {
		return token.AccessToken, nil
	}
	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", fmt.Errorf("token response from %s missing id_token", p.ID)
	}
	return idToken, nil
}
