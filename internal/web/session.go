package web

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Session value keys owned by the view layer: the navigation-carried result
// payload, the pending federated sign-up, and the OAuth round-trip state.
const (
	sessionKeyResultOriginal = "result_original"
	sessionKeyResultMask     = "result_mask"

	sessionKeySignupPending = "signup_pending"
	sessionKeyPendingName   = "pending_name"
	sessionKeyPendingEmail  = "pending_email"

	sessionKeyOAuthState = "oauth_state"
	sessionKeyOAuthFlow  = "oauth_flow"
)

// flash queues a one-shot notification shown on the next rendered page; it is
// the server-side analog of the SPA's snackbar.
func (h *Handlers) flash(c *gin.Context, message string) {
	s := sessions.Default(c)
	s.AddFlash(message)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to save session flash", zap.Error(err))
	}
}

// takeFlashes drains and returns the queued notifications.
func (h *Handlers) takeFlashes(c *gin.Context) []string {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) > 0 {
		if err := s.Save(); err != nil {
			h.logger.Error("failed to save session after draining flashes", zap.Error(err))
		}
	}
	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// setStoredResult stores the result payload carried from the upload action
// (or a selected patient record) to the results page.
func setStoredResult(s sessions.Session, originalPath, maskPath string) {
	s.Set(sessionKeyResultOriginal, originalPath)
	s.Set(sessionKeyResultMask, maskPath)
}

// storedResult reads the navigation-carried result payload, if any.
func storedResult(s sessions.Session) (originalPath, maskPath string, ok bool) {
	originalPath, _ = s.Get(sessionKeyResultOriginal).(string)
	maskPath, _ = s.Get(sessionKeyResultMask).(string)
	return originalPath, maskPath, originalPath != "" || maskPath != ""
}

// setPendingSignup parks a federated sign-up in the role-selection-pending
// state.
func setPendingSignup(s sessions.Session, name, email string) {
	s.Set(sessionKeySignupPending, "1")
	s.Set(sessionKeyPendingName, name)
	s.Set(sessionKeyPendingEmail, email)
}

// pendingSignup reads the parked federated sign-up, if any.
func pendingSignup(s sessions.Session) (name, email string, pending bool) {
	flag, _ := s.Get(sessionKeySignupPending).(string)
	if flag != "1" {
		return "", "", false
	}
	name, _ = s.Get(sessionKeyPendingName).(string)
	email, _ = s.Get(sessionKeyPendingEmail).(string)
	return name, email, true
}

// clearPendingSignup completes (or abandons) the federated sign-up state.
func clearPendingSignup(s sessions.Session) {
	s.Delete(sessionKeySignupPending)
	s.Delete(sessionKeyPendingName)
	s.Delete(sessionKeyPendingEmail)
}
