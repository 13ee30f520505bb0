package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every page and form action on the router. Global
// middleware (logging, recovery, sessions, the current-user resolver) is
// expected to be applied to the router before this is called, in main.go.
func SetupRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/", h.Home)

	// Registration: the classic form plus the role-selection completion step
	// for federated sign-ups.
	router.GET("/signup", h.SignUpPage)
	router.POST("/signup", h.SignUpSubmit)
	router.POST("/signup/complete", h.CompleteFederatedSignUp)

	// Session lifecycle. Login lives in the navbar modal, so it only has a
	// POST action.
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)

	// Federated redirect dance.
	router.GET("/auth/:provider/start", h.OAuthStart)
	router.GET("/auth/:provider/callback", h.OAuthCallback)

	// Image analysis and results.
	router.POST("/analyze", h.Analyze)
	router.GET("/results", h.Results)
	router.POST("/results/view", h.ViewStoredResult)

	router.GET("/profile", h.Profile)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
