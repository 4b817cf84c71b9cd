package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/telemedhq/telemed-api/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DoctorListQuery holds the filter/sort/pagination parameters of the public
// doctor listing. Only verified doctors are ever returned.
type DoctorListQuery struct {
	Search         string
	Specialization string
	City           string
	Category       string
	MinFees        *int
	MaxFees        *int
	SortBy         string
	SortOrder      string
	Page           int
	Limit          int
}

// Normalize applies defaults and clamps pagination. Sort keys are validated
// against an allow-list upstream; an unknown key falls back to createdAt here
// as a second line of defense.
func (q *DoctorListQuery) Normalize() {
	switch q.SortBy {
	case "fees", "experience", "name", "createdAt":
	default:
		q.SortBy = "createdAt"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
}

func exactInsensitive(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

func containsInsensitive(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

func doctorListFilter(q DoctorListQuery) bson.M {
	filter := bson.M{"isVerified": true}
	if q.Specialization != "" {
		filter["specialization"] = exactInsensitive(q.Specialization)
	}
	if q.City != "" {
		filter["hospitalInfo.city"] = exactInsensitive(q.City)
	}
	if q.Category != "" {
		filter["healthcareCategory"] = q.Category
	}
	if q.MinFees != nil || q.MaxFees != nil {
		fees := bson.M{}
		if q.MinFees != nil {
			fees["$gte"] = *q.MinFees
		}
		if q.MaxFees != nil {
			fees["$lte"] = *q.MaxFees
		}
		filter["fees"] = fees
	}
	if q.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": containsInsensitive(q.Search)},
			bson.M{"specialization": containsInsensitive(q.Search)},
			bson.M{"hospitalInfo.name": containsInsensitive(q.Search)},
		}
	}
	return filter
}

func doctorListSort(q DoctorListQuery) bson.D {
	order := -1
	if q.SortOrder == "asc" {
		order = 1
	}
	return bson.D{{Key: q.SortBy, Value: order}}
}

// ListDoctors returns one page of verified doctors plus the total match count.
func (s *Store) ListDoctors(ctx context.Context, q DoctorListQuery) ([]models.Doctor, int64, error) {
	q.Normalize()
	coll := s.collection(models.RoleDoctor)
	filter := doctorListFilter(q)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(doctorListSort(q)).
		SetSkip(int64(q.Page-1) * int64(q.Limit)).
		SetLimit(int64(q.Limit))
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var doctors []models.Doctor
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, 0, err
	}
	if doctors == nil {
		doctors = make([]models.Doctor, 0)
	}
	return doctors, total, nil
}

// GetDoctor loads a full doctor document by id.
func (s *Store) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc models.Doctor
	err = s.collection(models.RoleDoctor).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DoctorProfileUpdate carries the onboarding fields a doctor may change. The
// identity fields (email, password, googleId) are deliberately absent so a
// request body can never touch them.
type DoctorProfileUpdate struct {
	Name               *string
	Phone              *string
	HealthcareCategory *string
	Specialization     *string
	Qualification      *string
	Experience         *int
	About              *string
	HospitalInfo       *models.HospitalInfo
	Fees               *int
	Availability       []models.AvailabilityRange
	SlotDuration       *int
}

func (u DoctorProfileUpdate) setDoc(now time.Time) bson.M {
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
	if u.HealthcareCategory != nil {
		set["healthcareCategory"] = *u.HealthcareCategory
	}
	if u.Specialization != nil {
		set["specialization"] = *u.Specialization
	}
	if u.Qualification != nil {
		set["qualification"] = *u.Qualification
	}
	if u.Experience != nil {
		set["experience"] = *u.Experience
	}
	if u.About != nil {
		set["about"] = *u.About
	}
	if u.HospitalInfo != nil {
		set["hospitalInfo"] = u.HospitalInfo
	}
	if u.Fees != nil {
		set["fees"] = *u.Fees
	}
	if u.Availability != nil {
		set["availability"] = u.Availability
	}
	if u.SlotDuration != nil {
		set["slotDuration"] = *u.SlotDuration
	}
	return set
}

// UpdateDoctorProfile applies an onboarding update and returns the updated
// document. Completing onboarding marks the doctor verified.
func (s *Store) UpdateDoctorProfile(ctx context.Context, id string, u DoctorProfileUpdate) (*models.Doctor, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc models.Doctor
	err = s.collection(models.RoleDoctor).
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
