package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"procare-web-go/internal/backend"
	"procare-web-go/internal/db"
	"procare-web-go/internal/middleware"
	"procare-web-go/internal/models"
)

// Home renders the landing page: hero, features, the upload section, doctors,
// and about, inside the shared navbar/footer/login-modal shell. The
// patient-name field is shown only to doctors.
func (h *Handlers) Home(c *gin.Context) {
	user := middleware.UserFromContext(c)
	profile := h.loadProfile(c, user)

	c.HTML(http.StatusOK, "home.html", gin.H{
		"User":             user,
		"Profile":          profile,
		"ShowPatientField": profile.IsDoctor(),
		"Flash":            h.takeFlashes(c),
		"Providers":        h.providerList(),
	})
}

// resultSlot is one image slot of the results page. Exactly one of URL or
// Failed is meaningful; a slot with neither is still loading upstream state
// and never occurs after ResolvePair returns.
type resultSlot struct {
	URL    string
	Failed bool
}

// Results renders the analysis result view. The auth check precedes the
// payload check; both failures render a message page rather than an error
// status. The two image URLs resolve independently, so one failed slot leaves
// the other rendered.
func (h *Handlers) Results(c *gin.Context) {
	user := middleware.UserFromContext(c)
	if user == nil {
		c.HTML(http.StatusOK, "results.html", gin.H{
			"AccessDenied": true,
			"Flash":        h.takeFlashes(c),
		})
		return
	}

	s := sessions.Default(c)
	originalPath, maskPath, ok := storedResult(s)
	if !ok {
		c.HTML(http.StatusOK, "results.html", gin.H{
			"User":      user,
			"NoResults": true,
			"Flash":     h.takeFlashes(c),
		})
		return
	}

	pair := h.resolver.ResolvePair(c.Request.Context(), originalPath, maskPath)
	c.HTML(http.StatusOK, "results.html", gin.H{
		"User":     user,
		"Original": resultSlot{URL: pair.Original.URL, Failed: pair.Original.Err != nil},
		"Mask":     resultSlot{URL: pair.Mask.URL, Failed: pair.Mask.Err != nil},
		"Flash":    h.takeFlashes(c),
	})
}

// ViewStoredResult carries a patient's stored result payload into the session
// and redirects to the results page; it backs the "View" action on the
// profile page's patient list.
func (h *Handlers) ViewStoredResult(c *gin.Context) {
	user := middleware.UserFromContext(c)
	if user == nil {
		h.flash(c, msgLoginToViewImages)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	originalPath := strings.TrimSpace(c.PostForm("original_image_url"))
	maskPath := strings.TrimSpace(c.PostForm("mask_image_url"))
	if originalPath == "" && maskPath == "" {
		h.flash(c, msgNoResults)
		c.Redirect(http.StatusSeeOther, "/profile")
		return
	}

	s := sessions.Default(c)
	setStoredResult(s, originalPath, maskPath)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to save result payload to session", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/results")
}

// Profile renders the profile page: the user's profile document, and for
// doctors the patient list. The q parameter re-queries by name; empty q is
// the backend's match-all default and yields the full list.
func (h *Handlers) Profile(c *gin.Context) {
	user := middleware.UserFromContext(c)
	if user == nil {
		c.HTML(http.StatusOK, "profile.html", gin.H{
			"SignedOut": true,
			"Flash":     h.takeFlashes(c),
		})
		return
	}

	data := gin.H{
		"User":  user,
		"Flash": h.takeFlashes(c),
		"Query": strings.TrimSpace(c.Query("q")),
	}

	profile, err := h.profiles.Get(c.Request.Context(), user.UID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error("failed to load profile", zap.String("uid", user.UID), zap.Error(err))
		}
		data["ProfileMissing"] = true
		c.HTML(http.StatusOK, "profile.html", data)
		return
	}
	data["Profile"] = profile

	if profile.IsDoctor() {
		query, _ := data["Query"].(string)
		patients, err := h.backend.SearchPatients(c.Request.Context(), user.UID, user.IDToken, query)
		if err != nil {
			var apiErr *backend.APIError
			if errors.As(err, &apiErr) {
				data["SearchError"] = apiErr.Message
			} else {
				h.logger.Error("patient search failed", zap.Error(err))
				data["SearchError"] = "Error searching patients. Please try again."
			}
		} else {
			data["Patients"] = patients
		}
	}

	c.HTML(http.StatusOK, "profile.html", data)
}

// loadProfile fetches the profile document for the signed-in user, or nil
// when signed out, absent, or unreadable.
func (h *Handlers) loadProfile(c *gin.Context, user *middleware.SessionUser) *models.UserProfile {
	if user == nil {
		return nil
	}
	profile, err := h.profiles.Get(c.Request.Context(), user.UID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error("failed to load profile", zap.String("uid", user.UID), zap.Error(err))
		}
		return nil
	}
	return profile
}

// providerList returns the configured federated providers in a stable order
// for the sign-up and login templates.
func (h *Handlers) providerList() []string {
	var names []string
	for _, name := range []string{"google", "facebook"} {
		if _, ok := h.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
