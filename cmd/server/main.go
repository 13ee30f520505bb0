package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"procare-web-go/internal/backend"
	"procare-web-go/internal/config"
	"procare-web-go/internal/db"
	"procare-web-go/internal/identity"
	"procare-web-go/internal/mailer"
	"procare-web-go/internal/middleware"
	"procare-web-go/internal/storage"
	"procare-web-go/internal/web"
)

func main() {
	// 1. Logger first; everything else reports through it.
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer logger.Sync()

	// 2. Local .env for development; deployments set real env vars.
	if os.Getenv("GIN_MODE") != gin.ReleaseMode {
		if err := godotenv.Load(); err != nil {
			logger.Info("no .env file found, relying on environment variables")
		}
	}

	// 3. Configuration.
	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// 4. Firebase: Firestore, Auth, and Cloud Storage clients.
	ctx := context.Background()
	if err := db.InitFirebase(ctx, appConfig, logger); err != nil {
		logger.Fatal("failed to initialize Firebase clients", zap.Error(err))
	}

	// 5. Adapters.
	profileRepo := db.NewFirestoreProfileRepository(db.GetFirestoreClient())
	identityClient := identity.NewClient(appConfig.FirebaseWebAPIKey, logger)
	providers := buildOAuthProviders(appConfig, logger)

	var urlCache storage.Cache
	if appConfig.RedisAddr != "" {
		redisCache, err := storage.NewRedisCache(ctx, storage.RedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		urlCache = redisCache
		logger.Info("signed URL cache enabled", zap.String("addr", appConfig.RedisAddr))
	}

	resolver := storage.NewSignedURLResolver(
		db.GetStorageClient(),
		appConfig.StorageBucket,
		time.Duration(appConfig.SignedURLTTLMinutes)*time.Minute,
		urlCache,
		logger,
	)

	backendClient := backend.NewClient(appConfig.BackendURL, logger)

	var mail mailer.Sender
	if appConfig.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.Config{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			Username: appConfig.SMTPUsername,
			Password: appConfig.SMTPPassword,
			From:     appConfig.MailFrom,
		})
		logger.Info("welcome mailer enabled", zap.String("host", appConfig.SMTPHost))
	}

	// 6. Router and middleware. Order matters: logging and recovery wrap
	// everything, sessions must precede the current-user resolver.
	gin.SetMode(appConfig.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
	}
	router.Use(middleware.Sessions(appConfig.SessionSecret))
	router.Use(middleware.CurrentUser(identityClient, logger))

	// 7. Views and routes.
	web.LoadTemplates(router)
	handlers := web.NewHandlers(appConfig, logger, identityClient, profileRepo, backendClient, resolver, mail, providers)
	web.SetupRoutes(router, handlers)

	// 8. Serve with graceful shutdown.
	server := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", zap.String("port", appConfig.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// buildOAuthProviders assembles the federated providers that have
// credentials configured. An empty map disables social sign-in entirely.
func buildOAuthProviders(appConfig *config.Config, logger *zap.Logger) map[string]*identity.OAuthProvider {
	providers := map[string]*identity.OAuthProvider{}
	base := strings.TrimRight(appConfig.OAuthRedirectBaseURL, "/")
	if base == "" {
		return providers
	}

	if appConfig.GoogleOAuthClientID != "" && appConfig.GoogleOAuthClientSecret != "" {
		providers["google"] = identity.NewGoogleOAuthProvider(
			appConfig.GoogleOAuthClientID,
			appConfig.GoogleOAuthClientSecret,
			base+"/auth/google/callback",
		)
		logger.Info("google sign-in enabled")
	}
	if appConfig.FacebookOAuthClientID != "" && appConfig.FacebookOAuthClientSecret != "" {
		providers["facebook"] = identity.NewFacebookOAuthProvider(
			appConfig.FacebookOAuthClientID,
			appConfig.FacebookOAuthClientSecret,
			base+"/auth/facebook/callback",
		)
		logger.Info("facebook sign-in enabled")
	}
	return providers
}
