package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"procare-web-go/internal/db"
	"procare-web-go/internal/identity"
	"procare-web-go/internal/middleware"
	"procare-web-go/internal/models"
)

// OAuth flow markers stored alongside the state token so the callback knows
// which message set to use on failure.
const (
	oauthFlowLogin  = "login"
	oauthFlowSignup = "signup"
)

// Login handles the navbar login-modal submission.
func (h *Handlers) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	if email == "" || password == "" {
		h.flash(c, msgFillAllFields)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	creds, err := h.identity.SignInWithPassword(c.Request.Context(), email, password)
	if err != nil {
		h.logger.Warn("password sign-in failed", zap.String("email", email), zap.Error(err))
		h.flash(c, msgLoginFailed)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	s := sessions.Default(c)
	middleware.SetSessionUser(s, creds)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to persist session after sign-in", zap.Error(err))
		h.flash(c, msgLoginFailed)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	h.flash(c, msgSignInOK)
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout clears the session and returns to the landing page.
func (h *Handlers) Logout(c *gin.Context) {
	s := sessions.Default(c)
	middleware.ClearSessionUser(s)
	clearPendingSignup(s)
	setStoredResult(s, "", "")
	if err := s.Save(); err != nil {
		h.logger.Error("failed to persist session after sign-out", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// SignUpPage renders the registration form. A federated sign-up that still
// needs a role renders the role-selection variant instead of the full form.
func (h *Handlers) SignUpPage(c *gin.Context) {
	s := sessions.Default(c)
	name, email, pending := pendingSignup(s)

	c.HTML(http.StatusOK, "signup.html", gin.H{
		"User":         middleware.UserFromContext(c),
		"Pending":      pending,
		"PendingName":  name,
		"PendingEmail": email,
		"Providers":    h.providerList(),
		"Flash":        h.takeFlashes(c),
	})
}

// SignUpSubmit handles the email/password registration form.
func (h *Handlers) SignUpSubmit(c *gin.Context) {
	userType := c.PostForm("user_type")
	if !models.ValidUserType(userType) {
		h.flash(c, msgSelectUserType)
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	if name == "" || email == "" || password == "" {
		h.flash(c, msgFillAllFields)
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	ctx := c.Request.Context()
	creds, err := h.identity.SignUp(ctx, email, password)
	if err != nil {
		h.logger.Warn("sign-up failed", zap.String("email", email), zap.Error(err))
		h.flash(c, msgRegistrationFailed)
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	if err := h.identity.UpdateDisplayName(ctx, creds.IDToken, name); err != nil {
		h.logger.Warn("failed to set display name", zap.String("uid", creds.UID), zap.Error(err))
	}
	creds.DisplayName = name

	h.finishRegistration(c, creds, name, email, userType)
}

// CompleteFederatedSignUp finishes a federated sign-up by attaching the
// chosen role. The account and session already exist at this point; only the
// profile document is missing.
func (h *Handlers) CompleteFederatedSignUp(c *gin.Context) {
	user := middleware.UserFromContext(c)
	s := sessions.Default(c)
	name, email, pending := pendingSignup(s)
	if user == nil || !pending {
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	userType := c.PostForm("user_type")
	if !models.ValidUserType(userType) {
		h.flash(c, msgSelectUserType)
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	if name == "" {
		name = user.DisplayName
	}
	if email == "" {
		email = user.Email
	}

	profile := &models.UserProfile{Name: name, Email: email, UserType: userType}
	if err := h.profiles.Set(c.Request.Context(), user.UID, profile); err != nil {
		h.logger.Error("failed to save profile", zap.String("uid", user.UID), zap.Error(err))
		h.flash(c, msgProfileSaveFailed)
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	clearPendingSignup(s)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to persist session after sign-up", zap.Error(err))
	}

	h.sendWelcome(email, name, userType)
	h.flash(c, fmt.Sprintf("Registration successful! Welcome, %s (%s)", name, userType))
	c.Redirect(http.StatusSeeOther, "/")
}

// OAuthStart begins the federated redirect dance for the named provider.
func (h *Handlers) OAuthStart(c *gin.Context) {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		c.String(http.StatusNotFound, "unknown provider")
		return
	}

	flow := oauthFlowLogin
	if c.Query("flow") == oauthFlowSignup {
		flow = oauthFlowSignup
	}

	state := uuid.NewString()
	s := sessions.Default(c)
	s.Set(sessionKeyOAuthState, state)
	s.Set(sessionKeyOAuthFlow, flow)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to persist oauth state", zap.Error(err))
		h.flash(c, msgSocialLoginFailed)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	c.Redirect(http.StatusSeeOther, provider.AuthCodeURL(state))
}

// OAuthCallback completes the federated dance: verify state, exchange the
// code, sign in against the identity provider, then route by whether a
// profile document already exists. A missing profile parks the user in the
// role-selection-pending state.
func (h *Handlers) OAuthCallback(c *gin.Context) {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		c.String(http.StatusNotFound, "unknown provider")
		return
	}

	s := sessions.Default(c)
	flow, _ := s.Get(sessionKeyOAuthFlow).(string)
	failMsg := msgSocialLoginFailed
	if flow == oauthFlowSignup {
		failMsg = msgSocialSignUpFailed
	}
	fail := func() {
		h.flash(c, failMsg)
		c.Redirect(http.StatusSeeOther, "/")
	}

	wantState, _ := s.Get(sessionKeyOAuthState).(string)
	s.Delete(sessionKeyOAuthState)
	s.Delete(sessionKeyOAuthFlow)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to clear oauth state", zap.Error(err))
	}
	if wantState == "" || c.Query("state") != wantState {
		h.logger.Warn("oauth state mismatch", zap.String("provider", provider.ID))
		fail()
		return
	}

	code := c.Query("code")
	if code == "" {
		fail()
		return
	}

	ctx := c.Request.Context()
	providerToken, err := provider.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("oauth code exchange failed", zap.String("provider", provider.ID), zap.Error(err))
		fail()
		return
	}

	creds, err := h.identity.SignInWithIdP(ctx, provider.ID, providerToken)
	if err != nil {
		h.logger.Warn("federated sign-in failed", zap.String("provider", provider.ID), zap.Error(err))
		fail()
		return
	}

	middleware.SetSessionUser(s, creds)

	if _, err := h.profiles.Get(ctx, creds.UID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			setPendingSignup(s, creds.DisplayName, creds.Email)
			if err := s.Save(); err != nil {
				h.logger.Error("failed to persist session after federated sign-in", zap.Error(err))
			}
			c.Redirect(http.StatusSeeOther, "/signup")
			return
		}
		h.logger.Error("failed to load profile", zap.String("uid", creds.UID), zap.Error(err))
	}

	if err := s.Save(); err != nil {
		h.logger.Error("failed to persist session after federated sign-in", zap.Error(err))
	}
	h.flash(c, msgSocialLoginOK)
	c.Redirect(http.StatusSeeOther, "/")
}

// finishRegistration saves the profile document, signs the session in, and
// sends the welcome mail. A profile-save failure still leaves the account
// signed in; the user sees the error and can retry from the profile page.
func (h *Handlers) finishRegistration(c *gin.Context, creds *identity.Credentials, name, email, userType string) {
	profile := &models.UserProfile{Name: name, Email: email, UserType: userType}
	saveFailed := false
	if err := h.profiles.Set(c.Request.Context(), creds.UID, profile); err != nil {
		h.logger.Error("failed to save profile", zap.String("uid", creds.UID), zap.Error(err))
		saveFailed = true
	}

	s := sessions.Default(c)
	middleware.SetSessionUser(s, creds)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to persist session after sign-up", zap.Error(err))
	}

	if saveFailed {
		h.flash(c, msgProfileSaveFailed)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	h.sendWelcome(email, name, userType)
	h.flash(c, fmt.Sprintf("Registration successful! Welcome, %s (%s)", name, userType))
	c.Redirect(http.StatusSeeOther, "/")
}

// sendWelcome sends the welcome mail when a mailer is configured. Delivery
// failures are logged and never surface to the user.
func (h *Handlers) sendWelcome(email, name, userType string) {
	if h.mail == nil {
		return
	}
	if err := h.mail.SendWelcome(email, name, userType); err != nil {
		h.logger.Warn("failed to send welcome mail", zap.String("email", email), zap.Error(err))
	}
}
