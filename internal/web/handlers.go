// Package web is the view/controller layer: page rendering, form handling,
// and the glue between the browser and the identity, document-store, object
// storage, and prediction-backend adapters. All transient UI state lives in
// the cookie session.
package web

import (
	"go.uber.org/zap"

	"procare-web-go/internal/backend"
	"procare-web-go/internal/config"
	"procare-web-go/internal/db"
	"procare-web-go/internal/identity"
	"procare-web-go/internal/mailer"
	"procare-web-go/internal/storage"
)

// Handlers holds the adapters the page controllers call. There is no
// intermediate service layer; controllers talk to the adapters directly.
type Handlers struct {
	cfg      *config.Config
	logger   *zap.Logger
	identity identity.Service
	profiles db.ProfileRepository
	backend  backend.Service
	resolver storage.Resolver
	mail     mailer.Sender // may be nil; sign-up then skips the welcome mail

	// providers maps the route segment ("google", "facebook") to its
	// configured OAuth flow. Unconfigured providers are absent.
	providers map[string]*identity.OAuthProvider
}

// NewHandlers wires the page controllers.
func NewHandlers(
	cfg *config.Config,
	logger *zap.Logger,
	ids identity.Service,
	profiles db.ProfileRepository,
	backendClient backend.Service,
	resolver storage.Resolver,
	mail mailer.Sender,
	providers map[string]*identity.OAuthProvider,
) *Handlers {
	if cfg == nil || logger == nil || ids == nil || profiles == nil || backendClient == nil || resolver == nil {
		panic("NewHandlers requires config, logger, and all adapters")
	}
	if providers == nil {
		providers = map[string]*identity.OAuthProvider{}
	}
	return &Handlers{
		cfg:       cfg,
		logger:    logger,
		identity:  ids,
		profiles:  profiles,
		backend:   backendClient,
		resolver:  resolver,
		mail:      mail,
		providers: providers,
	}
}
