package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"procare-web-go/internal/identity"
)

type stubIdentity struct {
	refreshCreds *identity.Credentials
	refreshErr   error
	refreshCalls int
}

func (s *stubIdentity) SignInWithPassword(context.Context, string, string) (*identity.Credentials, error) {
	return nil, errors.New("not implemented")
}
func (s *stubIdentity) SignUp(context.Context, string, string) (*identity.Credentials, error) {
	return nil, errors.New("not implemented")
}
func (s *stubIdentity) UpdateDisplayName(context.Context, string, string) error {
	return errors.New("not implemented")
}
func (s *stubIdentity) SignInWithIdP(context.Context, string, string) (*identity.Credentials, error) {
	return nil, errors.New("not implemented")
}
func (s *stubIdentity) RefreshIDToken(context.Context, string) (*identity.Credentials, error) {
	s.refreshCalls++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshCreds, nil
}

// newSessionRouter wires the session and current-user middleware around a
// login endpoint (which stores the given credentials) and a whoami endpoint
// (which reports the resolved user).
func newSessionRouter(ids identity.Service, creds *identity.Credentials) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Sessions("test-secret"))
	router.Use(CurrentUser(ids, zap.NewNop()))

	router.POST("/login", func(c *gin.Context) {
		s := sessions.Default(c)
		SetSessionUser(s, creds)
		if err := s.Save(); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", func(c *gin.Context) {
		user := UserFromContext(c)
		if user == nil {
			c.JSON(http.StatusOK, gin.H{"signed_in": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"signed_in": true,
			"uid":       user.UID,
			"id_token":  user.IDToken,
		})
	})
	return router
}

func doWithCookies(router *gin.Engine, method, path string, cookies []*http.Cookie) (*httptest.ResponseRecorder, []*http.Cookie) {
	req := httptest.NewRequest(method, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		cookies = set
	}
	return w, cookies
}

func TestCurrentUserPassesThroughFreshToken(t *testing.T) {
	ids := &stubIdentity{}
	creds := &identity.Credentials{
		UID: "uid-1", IDToken: "fresh", RefreshToken: "ref",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	router := newSessionRouter(ids, creds)

	w, cookies := doWithCookies(router, http.MethodPost, "/login", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = doWithCookies(router, http.MethodGet, "/whoami", cookies)
	assert.Contains(t, w.Body.String(), `"uid":"uid-1"`)
	assert.Contains(t, w.Body.String(), `"id_token":"fresh"`)
	assert.Zero(t, ids.refreshCalls)
}

func TestCurrentUserRefreshesNearExpiryToken(t *testing.T) {
	ids := &stubIdentity{
		refreshCreds: &identity.Credentials{
			UID: "uid-1", IDToken: "refreshed", RefreshToken: "new-ref",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	creds := &identity.Credentials{
		UID: "uid-1", IDToken: "stale", RefreshToken: "ref",
		ExpiresAt: time.Now().Add(10 * time.Second),
	}
	router := newSessionRouter(ids, creds)

	w, cookies := doWithCookies(router, http.MethodPost, "/login", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, cookies = doWithCookies(router, http.MethodGet, "/whoami", cookies)
	assert.Contains(t, w.Body.String(), `"id_token":"refreshed"`)
	assert.Equal(t, 1, ids.refreshCalls)

	// The refreshed token is persisted; the next request does not refresh.
	w, _ = doWithCookies(router, http.MethodGet, "/whoami", cookies)
	assert.Contains(t, w.Body.String(), `"id_token":"refreshed"`)
	assert.Equal(t, 1, ids.refreshCalls)
}

func TestCurrentUserFailedRefreshSignsOut(t *testing.T) {
	ids := &stubIdentity{refreshErr: errors.New("TOKEN_EXPIRED")}
	creds := &identity.Credentials{
		UID: "uid-1", IDToken: "stale", RefreshToken: "dead-ref",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	router := newSessionRouter(ids, creds)

	w, cookies := doWithCookies(router, http.MethodPost, "/login", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, cookies = doWithCookies(router, http.MethodGet, "/whoami", cookies)
	assert.Contains(t, w.Body.String(), `"signed_in":false`)

	// The session was cleared, not just the request context.
	w, _ = doWithCookies(router, http.MethodGet, "/whoami", cookies)
	assert.Contains(t, w.Body.String(), `"signed_in":false`)
	assert.Equal(t, 1, ids.refreshCalls)
}
