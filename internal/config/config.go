package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	// Prediction backend.
	BackendURL string `mapstructure:"BACKEND_URL"`

	// Identity / document / storage provider.
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseWebAPIKey                string `mapstructure:"FIREBASE_WEB_API_KEY"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	StorageBucket                    string `mapstructure:"STORAGE_BUCKET"`
	SignedURLTTLMinutes              int    `mapstructure:"SIGNED_URL_TTL_MINUTES"`

	// Browser sessions and CORS.
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	ClientURL     string `mapstructure:"CLIENT_URL"`

	// Federated sign-in (a provider with empty credentials is not offered).
	GoogleOAuthClientID       string `mapstructure:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleOAuthClientSecret   string `mapstructure:"GOOGLE_OAUTH_CLIENT_SECRET"`
	FacebookOAuthClientID     string `mapstructure:"FACEBOOK_OAUTH_CLIENT_ID"`
	FacebookOAuthClientSecret string `mapstructure:"FACEBOOK_OAUTH_CLIENT_SECRET"`
	OAuthRedirectBaseURL      string `mapstructure:"OAUTH_REDIRECT_BASE_URL"`

	// Optional signed-URL cache.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Optional welcome mail.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("SIGNED_URL_TTL_MINUTES", 15)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SMTP_PORT", "2525")

	// Bind environment variables
	for _, key := range []string{
		"PORT", "GIN_MODE", "BACKEND_URL",
		"FIREBASE_PROJECT_ID", "FIREBASE_WEB_API_KEY",
		"GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
		"STORAGE_BUCKET", "SIGNED_URL_TTL_MINUTES",
		"SESSION_SECRET", "CLIENT_URL",
		"GOOGLE_OAUTH_CLIENT_ID", "GOOGLE_OAUTH_CLIENT_SECRET",
		"FACEBOOK_OAUTH_CLIENT_ID", "FACEBOOK_OAUTH_CLIENT_SECRET",
		"OAUTH_REDIRECT_BASE_URL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.New("failed to bind env var " + key + ": " + err.Error())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Validate required fields
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.FirebaseWebAPIKey == "" {
		return nil, errors.New("FIREBASE_WEB_API_KEY is required")
	}
	if cfg.StorageBucket == "" {
		return nil, errors.New("STORAGE_BUCKET is required")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}
	if cfg.SignedURLTTLMinutes <= 0 {
		return nil, errors.New("SIGNED_URL_TTL_MINUTES must be positive")
	}

	return &cfg, nil
}
