package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/models"
)

// NormalizeEmail lowercases and trims an email. Emails are stored normalized
// so the unique index is effectively case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindAccountByEmail looks up the shared identity fields of a document in the
// role's collection.
func (s *Store) FindAccountByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error) {
	var acc models.Account
	err := s.collection(role).FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// FindAccountByID resolves a token's embedded id back to an account. A
// malformed id behaves like a missing document.
func (s *Store) FindAccountByID(ctx context.Context, role models.Role, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var acc models.Account
	err = s.collection(role).FindOne(ctx, bson.M{"_id": oid}).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// CreateUser inserts a new doctor or patient document, stamping timestamps
// and mapping a duplicate email to ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, role models.Role, doc any) error {
	if stamped, ok := doc.(interface{ Stamp(time.Time) }); ok {
		stamped.Stamp(time.Now().UTC())
	}
	_, err := s.collection(role).InsertOne(ctx, doc)
	return mapWriteError(err)
}

// googleInsertDoc builds the document created by a first federated login.
// It carries the same role-specific defaults a password signup gets, so a
// Google-created doctor starts with the standard slot length and a
// Google-created patient starts active.
func googleInsertDoc(role models.Role, ident *auth.GoogleIdentity, now time.Time) bson.M {
	doc := bson.M{
		"name":         ident.Name,
		"email":        NormalizeEmail(ident.Email),
		"googleId":     ident.Subject,
		"profileImage": ident.Picture,
		"isVerified":   true,
		"createdAt":    now,
		"updatedAt":    now,
	}
	switch role {
	case models.RoleDoctor:
		doc["slotDuration"] = models.DefaultSlotDuration
	case models.RolePatient:
		doc["isActive"] = true
	}
	return doc
}

// googleBackfillFilter matches the account only while it is still unlinked,
// so a concurrent federated login cannot overwrite an established subject.
func googleBackfillFilter(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"googleId": bson.M{"$exists": false}},
			bson.M{"googleId": ""},
		},
	}
}

// UpsertGoogleAccount resolves a verified Google identity to a local account
// in one atomic step keyed by email:
//
//   - no account with that email: create it, verified, with the Google
//     subject and avatar stored;
//   - account exists without a googleId: backfill subject and avatar once
//     (first federated login links the password account);
//   - already linked with the same subject: no mutation;
//   - already linked with a different subject: ErrGoogleMismatch.
//
// A racing double-create resolves through the unique email index: the loser's
// duplicate-key error falls through to the linked-account path.
func (s *Store) UpsertGoogleAccount(ctx context.Context, role models.Role, ident *auth.GoogleIdentity) (*models.Account, error) {
	email := NormalizeEmail(ident.Email)
	now := time.Now().UTC()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	insert := googleInsertDoc(role, ident, now)

	var acc models.Account
	err := s.collection(role).
		FindOneAndUpdate(ctx, bson.M{"email": email}, bson.M{"$setOnInsert": insert}, opts).
		Decode(&acc)
	if mapWriteError(err) == ErrAlreadyExists {
		// Lost the insert race; the document exists now.
		err = s.collection(role).FindOne(ctx, bson.M{"email": email}).Decode(&acc)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case acc.GoogleID == "":
		// First federated login against a password account: link it.
		update := bson.M{"$set": bson.M{
			"googleId":     ident.Subject,
			"profileImage": ident.Picture,
			"updatedAt":    now,
		}}
		res, err := s.collection(role).UpdateOne(ctx, googleBackfillFilter(acc.ID), update)
		if err != nil {
			return nil, mapWriteError(err)
		}
		if res.MatchedCount == 0 {
			// A concurrent login linked the account after our read. Re-read
			// and accept only if it linked to the same subject.
			if err := s.collection(role).FindOne(ctx, bson.M{"_id": acc.ID}).Decode(&acc); err != nil {
				return nil, err
			}
			if acc.GoogleID != ident.Subject {
				return nil, ErrGoogleMismatch
			}
			return &acc, nil
		}
		acc.GoogleID = ident.Subject
		acc.ProfileImage = ident.Picture
		acc.UpdatedAt = now
	case acc.GoogleID != ident.Subject:
		return nil, ErrGoogleMismatch
	}

	return &acc, nil
}
