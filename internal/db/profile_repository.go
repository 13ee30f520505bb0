package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"procare-web-go/internal/models"
)

// usersCollection matches the collection the rest of the product reads and
// writes; the backend stores patient records alongside it.
const usersCollection = "users-procare"

// ErrNotFound is returned when a document is not found in Firestore.
var ErrNotFound = errors.New("document not found")

// firestoreProfileRepository implements ProfileRepository using Firestore.
type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository creates a ProfileRepository backed by the
// given Firestore client.
func NewFirestoreProfileRepository(client *firestore.Client) ProfileRepository {
	if client == nil {
		panic("Firestore client is not initialized for ProfileRepository")
	}
	return &firestoreProfileRepository{client: client}
}

// Get retrieves the profile document for uid.
func (r *firestoreProfileRepository) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty for Get operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile for uid '%s' not found: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile for uid '%s': %w", uid, err)
	}

	var profile models.UserProfile
	if err := docSnap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile for uid '%s': %w", uid, err)
	}
	return &profile, nil
}

// Set writes the profile document for uid. The document is created if it does
// not exist; sign-up completion relies on that.
func (r *firestoreProfileRepository) Set(ctx context.Context, uid string, profile *models.UserProfile) error {
	if uid == "" {
		return errors.New("uid cannot be empty for Set operation")
	}
	if profile == nil {
		return errors.New("profile cannot be nil for Set operation")
	}
	if _, err := r.client.Collection(usersCollection).Doc(uid).Set(ctx, profile); err != nil {
		return fmt.Errorf("failed to set profile for uid '%s': %w", uid, err)
	}
	return nil
}
