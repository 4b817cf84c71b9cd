package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account holds the identity fields shared by doctors and patients. It is
// embedded inline in both documents so the auth flow can operate on either
// collection without caring which one it is.
//
// Password and GoogleID are hidden from JSON responses. Password is empty for
// accounts created through Google login; GoogleID is empty until the first
// federated login links it and is never changed afterwards.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Password     string             `bson:"password,omitempty" json:"-"`
	GoogleID     string             `bson:"googleId,omitempty" json:"-"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	IsVerified   bool               `bson:"isVerified" json:"isVerified"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Stamp assigns persistence timestamps. CreatedAt is only set once.
func (a *Account) Stamp(now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}
