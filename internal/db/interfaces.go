package db

import (
	"context"

	"procare-web-go/internal/models"
)

// ProfileRepository defines the interface for user-profile document storage.
// The document is keyed by the Firebase Auth UID.
type ProfileRepository interface {
	// Get retrieves the profile document for uid. Returns ErrNotFound when no
	// document exists.
	Get(ctx context.Context, uid string) (*models.UserProfile, error)
	// Set writes the profile document for uid, overwriting any prior content.
	Set(ctx context.Context, uid string, profile *models.UserProfile) error
}
