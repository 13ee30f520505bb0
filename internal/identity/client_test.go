package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIdentityClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-api-key", zap.NewNop())
	c.IdentityBaseURL = srv.URL
	c.SecureTokenBaseURL = srv.URL
	return c
}

func TestSignInWithPasswordParsesCredentials(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	client := newTestIdentityClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"localId":"uid-7","email":"a@b.test","displayName":"Ada",
			"idToken":"id-tok","refreshToken":"ref-tok","expiresIn":"3600"
		}`))
	})

	before := time.Now()
	creds, err := client.SignInWithPassword(context.Background(), "a@b.test", "secret")
	require.NoError(t, err)

	assert.Equal(t, "/accounts:signInWithPassword", gotPath)
	assert.Equal(t, "test-api-key", gotKey)
	assert.Equal(t, "a@b.test", gotBody["email"])
	assert.Equal(t, "secret", gotBody["password"])
	assert.Equal(t, true, gotBody["returnSecureToken"])

	assert.Equal(t, "uid-7", creds.UID)
	assert.Equal(t, "a@b.test", creds.Email)
	assert.Equal(t, "Ada", creds.DisplayName)
	assert.Equal(t, "id-tok", creds.IDToken)
	assert.Equal(t, "ref-tok", creds.RefreshToken)
	assert.WithinDuration(t, before.Add(time.Hour), creds.ExpiresAt, 5*time.Second)
}

func TestSignInWithPasswordProviderErrorCode(t *testing.T) {
	client := newTestIdentityClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
	})

	_, err := client.SignInWithPassword(context.Background(), "a@b.test", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_PASSWORD")
}

func TestSignUpHitsSignUpEndpoint(t *testing.T) {
	var gotPath string
	client := newTestIdentityClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"localId":"uid-1","idToken":"tok","refreshToken":"ref","expiresIn":"3600"}`))
	})

	creds, err := client.SignUp(context.Background(), "new@b.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "/accounts:signUp", gotPath)
	assert.Equal(t, "uid-1", creds.UID)
}

func TestSignUpMissingCredentialsIsAnError(t *testing.T) {
	client := newTestIdentityClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"a@b.test"}`))
	})

	_, err := client.SignUp(context.Background(), "a@b.test", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing credentials")
}

func TestUpdateDisplayName(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestIdentityClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{}`))
	})

	err := client.UpdateDisplayName(context.Background(), "id-tok", "Dr. Roe")
	require.NoError(t, err)
	assert.Equal(t, "/accounts:update", gotPath)
	assert.Equal(t, "id-tok", gotBody["idToken"])
	assert.Equal(t, "Dr. Roe", gotBody["displayName"])
}

func TestSignInWithIdPPostBody(t *testing.T) {
	tests := []struct {
		name       string
		providerID string
		wantBody   string
	}{
		{"google uses id_token", ProviderGoogle, "id_token=prov-tok&providerId=google.com"},
		{"facebook uses access_token", ProviderFacebook, "access_token=prov-tok&providerId=facebook.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotBody map[string]any
			client := newTestIdentityClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				raw, _ := io.ReadAll(r.Body)
				require.NoError(t, json.Unmarshal(raw, &gotBody))
				w.Write([]byte(`{"localId":"uid-9","email":"fed@b.test","idToken":"tok","refreshToken":"ref","expiresIn":"3600"}`))
			})

			creds, err := client.SignInWithIdP(context.Background(), tt.providerID, "prov-tok")
			require.NoError(t, err)
			assert.Equal(t, "/accounts:signInWithIdp", gotPath)
			assert.Equal(t, tt.wantBody, gotBody["postBody"])
			assert.Equal(t, true, gotBody["returnIdpCredential"])
			assert.Equal(t, "uid-9", creds.UID)
		})
	}
}

func TestRefreshIDTokenFormEncodedSnakeCase(t *testing.T) {
	var gotContentType string
	var gotGrantType, gotRefreshToken string

	client := newTestIdentityClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotGrantType = r.PostForm.Get("grant_type")
		gotRefreshToken = r.PostForm.Get("refresh_token")

		w.Write([]byte(`{
			"user_id":"uid-7","id_token":"fresh-tok",
			"refresh_token":"new-ref","expires_in":"3600"
		}`))
	})

	creds, err := client.RefreshIDToken(context.Background(), "old-ref")
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "refresh_token", gotGrantType)
	assert.Equal(t, "old-ref", gotRefreshToken)

	assert.Equal(t, "uid-7", creds.UID)
	assert.Equal(t, "fresh-tok", creds.IDToken)
	assert.Equal(t, "new-ref", creds.RefreshToken)
}

func TestExpiryFromBadValueFallsBackToOneHour(t *testing.T) {
	before := time.Now()
	assert.WithinDuration(t, before.Add(time.Hour), expiryFrom("not-a-number"), 5*time.Second)
	assert.WithinDuration(t, before.Add(time.Hour), expiryFrom(""), 5*time.Second)
	assert.WithinDuration(t, before.Add(90*time.Second), expiryFrom("90"), 5*time.Second)
}
