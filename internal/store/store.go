package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/telemedhq/telemed-api/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrGoogleMismatch is returned when a federated login's subject differs
	// from the Google id already linked to the account with that email.
	ErrGoogleMismatch = errors.New("google account already linked to a different identity")
)

// Store wraps the Mongo database holding the doctors and patients collections.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) collection(role models.Role) *mongo.Collection {
	return s.db.Collection(role.Collection())
}

// EnsureIndexes creates the unique constraints the auth flow relies on: one
// account per email per collection, and a googleId that can appear at most
// once. The googleId index is sparse because password-only accounts omit the
// field entirely.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, role := range []models.Role{models.RoleDoctor, models.RolePatient} {
		_, err := s.collection(role).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "googleId", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		})
		if err != nil {
			return fmt.Errorf("create indexes for %s: %w", role.Collection(), err)
		}
	}
	return nil
}

// mapWriteError translates a unique-index violation into ErrAlreadyExists so
// callers can treat a racing double-insert the same as a prior existence hit.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}
