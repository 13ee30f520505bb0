package web

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"procare-web-go/internal/backend"
	"procare-web-go/internal/db"
	"procare-web-go/internal/middleware"
)

// Analyze handles the upload form: validate the selection, forward the image
// to the prediction backend, store the returned result payload in the
// session, and redirect to the results page.
//
// The guards run in a fixed order: file-and-login first, then the JPEG type
// check, then the doctor-only patient-name requirement. Each failure flashes
// its message and returns to the landing page without touching the backend.
func (h *Handlers) Analyze(c *gin.Context) {
	user := middleware.UserFromContext(c)
	fileHeader, fileErr := c.FormFile("image")
	if fileErr != nil || user == nil {
		h.flash(c, msgUploadAndLogin)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	if !isJPEG(fileHeader.Header.Get("Content-Type")) {
		h.flash(c, msgOnlyJPEGAllowed)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	ctx := c.Request.Context()
	patientName := strings.TrimSpace(c.PostForm("patient_name"))

	profile, err := h.profiles.Get(ctx, user.UID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.logger.Error("failed to load profile", zap.String("uid", user.UID), zap.Error(err))
	}
	if profile.IsDoctor() && patientName == "" {
		h.flash(c, msgPatientNameNeeded)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("failed to open uploaded image", zap.Error(err))
		h.flash(c, msgUploadAndLogin)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	defer file.Close()

	res, err := h.backend.Analyze(ctx, backend.AnalyzeRequest{
		Image:       file,
		Filename:    fileHeader.Filename,
		UserID:      user.UID,
		IDToken:     user.IDToken,
		PatientName: patientName,
	})
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			h.flash(c, apiErr.Message)
		} else {
			h.logger.Error("analysis request failed", zap.Error(err))
			h.flash(c, "Error analyzing image. Please try again.")
		}
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	s := sessions.Default(c)
	setStoredResult(s, res.OriginalImageURL, res.MaskImageURL)
	if err := s.Save(); err != nil {
		h.logger.Error("failed to save result payload to session", zap.Error(err))
	}

	h.flash(c, msgAnalyzeSucceeded)
	c.Redirect(http.StatusSeeOther, "/results")
}

// isJPEG reports whether the uploaded part declares a JPEG content type.
// Parameters (charset etc.) are ignored; anything but image/jpeg is rejected.
func isJPEG(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "image/jpeg" || mediaType == "image/jpg"
}
