package db

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"procare-web-go/internal/config"
)

var (
	// fsClient is the global Firestore client instance.
	fsClient *firestore.Client
	// fbAuthClient is the global Firebase Auth client instance.
	fbAuthClient *auth.Client
	// storageClient is the global Cloud Storage client used for signed URLs.
	storageClient *gcs.Client
)

// InitFirebase initializes the Firebase Admin SDK and sets up the Firestore,
// Auth, and Cloud Storage clients. Credentials come from the provided
// appConfig: a service account file path, a base64-encoded service account
// JSON, or Application Default Credentials when neither is set.
func InitFirebase(ctx context.Context, appConfig *config.Config, logger *zap.Logger) error {
	if appConfig == nil {
		return fmt.Errorf("InitFirebase: appConfig cannot be nil")
	}

	var credsOption option.ClientOption

	switch {
	case appConfig.GoogleApplicationCredentials != "":
		if _, err := os.Stat(appConfig.GoogleApplicationCredentials); os.IsNotExist(err) {
			logger.Warn("credentials file does not exist",
				zap.String("path", appConfig.GoogleApplicationCredentials))
		}
		credsOption = option.WithCredentialsFile(appConfig.GoogleApplicationCredentials)
	case appConfig.FirebaseServiceAccountJSONBase64 != "":
		decodedJSON, err := base64.StdEncoding.DecodeString(appConfig.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
		}
		credsOption = option.WithCredentialsJSON(decodedJSON)
	default:
		// Application Default Credentials; common on GCE, GKE, Cloud Run.
		logger.Info("initializing Firebase using Application Default Credentials")
	}

	firebaseAppConfig := &firebase.Config{
		ProjectID:     appConfig.FirebaseProjectID,
		StorageBucket: appConfig.StorageBucket,
	}

	var app *firebase.App
	var err error
	if credsOption != nil {
		app, err = firebase.NewApp(ctx, firebaseAppConfig, credsOption)
	} else {
		app, err = firebase.NewApp(ctx, firebaseAppConfig)
	}
	if err != nil {
		return fmt.Errorf("firebase.NewApp: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("app.Firestore: %w", err)
	}
	fsClient = client

	authCl, err := app.Auth(ctx)
	if err != nil {
		fsClient.Close()
		return fmt.Errorf("app.Auth: %w", err)
	}
	fbAuthClient = authCl

	var stClient *gcs.Client
	if credsOption != nil {
		stClient, err = gcs.NewClient(ctx, credsOption)
	} else {
		stClient, err = gcs.NewClient(ctx)
	}
	if err != nil {
		fsClient.Close()
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	storageClient = stClient

	return nil
}

// GetFirestoreClient returns the global Firestore client. It is nil until
// InitFirebase succeeds.
func GetFirestoreClient() *firestore.Client {
	return fsClient
}

// GetFirebaseAuthClient returns the global Firebase Auth client. It is nil
// until InitFirebase succeeds.
func GetFirebaseAuthClient() *auth.Client {
	return fbAuthClient
}

// GetStorageClient returns the global Cloud Storage client. It is nil until
// InitFirebase succeeds.
func GetStorageClient() *gcs.Client {
	return storageClient
}
