package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"procare-web-go/internal/identity"
)

// SessionName is the browser session cookie. The session is the server-side
// replacement for the SPA's process-wide auth state and navigation state.
const SessionName = "procare_session"

// contextUserKey is the Gin context key carrying the authenticated user.
const contextUserKey = "currentUser"

// Session value keys for the signed-in user.
const (
	sessionKeyUID          = "uid"
	sessionKeyEmail        = "email"
	sessionKeyDisplayName  = "display_name"
	sessionKeyIDToken      = "id_token"
	sessionKeyRefreshToken = "refresh_token"
	sessionKeyTokenExpiry  = "token_expiry"
)

// tokenRefreshSkew is how close to expiry a cached ID token may get before it
// is refreshed; within the skew every request still carries a valid token.
const tokenRefreshSkew = time.Minute

// SessionUser is the signed-in user as stored in the session: the principal
// plus the short-lived bearer token used to authenticate backend calls.
type SessionUser struct {
	UID            string
	Email          string
	DisplayName    string
	IDToken        string
	RefreshToken   string
	TokenExpiresAt time.Time
}

// Sessions returns the cookie-backed session middleware.
func Sessions(secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionName, store)
}

// SetSessionUser writes credentials into the session. The caller saves the
// session.
func SetSessionUser(s sessions.Session, creds *identity.Credentials) {
	s.Set(sessionKeyUID, creds.UID)
	s.Set(sessionKeyEmail, creds.Email)
	s.Set(sessionKeyDisplayName, creds.DisplayName)
	s.Set(sessionKeyIDToken, creds.IDToken)
	s.Set(sessionKeyRefreshToken, creds.RefreshToken)
	s.Set(sessionKeyTokenExpiry, creds.ExpiresAt.Unix())
}

// ClearSessionUser removes the signed-in user from the session. The caller
// saves the session.
func ClearSessionUser(s sessions.Session) {
	for _, key := range []string{
		sessionKeyUID, sessionKeyEmail, sessionKeyDisplayName,
		sessionKeyIDToken, sessionKeyRefreshToken, sessionKeyTokenExpiry,
	} {
		s.Delete(key)
	}
}

// sessionUser reads the stored user out of the session, or nil when signed
// out.
func sessionUser(s sessions.Session) *SessionUser {
	uid, ok := s.Get(sessionKeyUID).(string)
	if !ok || uid == "" {
		return nil
	}
	user := &SessionUser{UID: uid}
	user.Email, _ = s.Get(sessionKeyEmail).(string)
	user.DisplayName, _ = s.Get(sessionKeyDisplayName).(string)
	user.IDToken, _ = s.Get(sessionKeyIDToken).(string)
	user.RefreshToken, _ = s.Get(sessionKeyRefreshToken).(string)
	if expiry, ok := s.Get(sessionKeyTokenExpiry).(int64); ok {
		user.TokenExpiresAt = time.Unix(expiry, 0)
	}
	return user
}

// CurrentUser loads the signed-in user from the session into the request
// context, refreshing the ID token when it is near expiry so downstream
// backend calls always carry a fresh token. A failed refresh signs the
// session out rather than letting a dead token linger; the request proceeds
// unauthenticated.
func CurrentUser(ids identity.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		user := sessionUser(s)
		if user == nil {
			c.Next()
			return
		}

		if time.Until(user.TokenExpiresAt) < tokenRefreshSkew {
			creds, err := ids.RefreshIDToken(c.Request.Context(), user.RefreshToken)
			if err != nil {
				logger.Warn("failed to refresh session token; signing out",
					zap.String("uid", user.UID), zap.Error(err))
				ClearSessionUser(s)
				if err := s.Save(); err != nil {
					logger.Error("failed to save session", zap.Error(err))
				}
				c.Next()
				return
			}
			user.IDToken = creds.IDToken
			user.TokenExpiresAt = creds.ExpiresAt
			if creds.RefreshToken != "" {
				user.RefreshToken = creds.RefreshToken
			}
			s.Set(sessionKeyIDToken, user.IDToken)
			s.Set(sessionKeyRefreshToken, user.RefreshToken)
			s.Set(sessionKeyTokenExpiry, user.TokenExpiresAt.Unix())
			if err := s.Save(); err != nil {
				logger.Error("failed to save session", zap.Error(err))
			}
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// UserFromContext returns the signed-in user set by CurrentUser, or nil.
func UserFromContext(c *gin.Context) *SessionUser {
	raw, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}
	user, ok := raw.(*SessionUser)
	if !ok {
		return nil
	}
	return user
}
