package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/telemedhq/telemed-api/internal/models"
)

// GetPatient loads a full patient document by id.
func (s *Store) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc models.Patient
	err = s.collection(models.RolePatient).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// PatientProfileUpdate carries the onboarding fields a patient may change.
// Identity fields are absent by construction; age is derived from DOB and
// never settable on its own.
type PatientProfileUpdate struct {
	Name             *string
	Phone            *string
	DOB              *time.Time
	Gender           *string
	BloodGroup       *string
	Address          *string
	ProfileImage     *string
	MedicalHistory   *models.MedicalHistory
	EmergencyContact *models.EmergencyContact
}

func (u PatientProfileUpdate) setDoc(now time.Time) bson.M {
	set := bson.M{
		"isVerified": true,
		"updatedAt":  now,
	}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.DOB != nil {
		set["dob"] = *u.DOB
		set["age"] = models.AgeFromDOB(*u.DOB, now)
	}
	if u.Gender != nil {
		set["gender"] = *u.Gender
	}
	if u.BloodGroup != nil {
		set["bloodGroup"] = *u.BloodGroup
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.ProfileImage != nil {
		set["profileImage"] = *u.ProfileImage
	}
	if u.MedicalHistory != nil {
		set["medicalHistory"] = u.MedicalHistory
	}
	if u.EmergencyContact != nil {
		set["emergencyContact"] = u.EmergencyContact
	}
	return set
}

// UpdatePatientProfile applies an onboarding update and returns the updated
// document. Completing onboarding marks the patient verified, and a changed
// DOB recomputes the derived age.
func (s *Store) UpdatePatientProfile(ctx context.Context, id string, u PatientProfileUpdate) (*models.Patient, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc models.Patient
	err = s.collection(models.RolePatient).
		FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": u.setDoc(time.Now().UTC())}, opts).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
