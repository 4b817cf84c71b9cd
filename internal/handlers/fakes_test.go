package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/models"
	"github.com/telemedhq/telemed-api/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore mimics the Mongo store over two in-memory collections.
type fakeStore struct {
	doctors  map[string]*models.Doctor  // by id hex
	patients map[string]*models.Patient // by id hex

	// googleMutations counts create/backfill events so idempotency of
	// federated re-login can be asserted.
	googleMutations int

	// listQuery records the last ListDoctors call; listResult/listTotal are
	// the canned reply.
	listQuery  *store.DoctorListQuery
	listResult []models.Doctor
	listTotal  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		doctors:  make(map[string]*models.Doctor),
		patients: make(map[string]*models.Patient),
	}
}

func (f *fakeStore) accountByEmail(role models.Role, email string) *models.Account {
	email = store.NormalizeEmail(email)
	if role == models.RoleDoctor {
		for _, d := range f.doctors {
			if d.Email == email {
				return &d.Account
			}
		}
		return nil
	}
	for _, p := range f.patients {
		if p.Email == email {
			return &p.Account
		}
	}
	return nil
}

func (f *fakeStore) FindAccountByEmail(_ context.Context, role models.Role, email string) (*models.Account, error) {
	if acc := f.accountByEmail(role, email); acc != nil {
		return acc, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindAccountByID(_ context.Context, role models.Role, id string) (*models.Account, error) {
	if role == models.RoleDoctor {
		if d, ok := f.doctors[id]; ok {
			return &d.Account, nil
		}
		return nil, store.ErrNotFound
	}
	if p, ok := f.patients[id]; ok {
		return &p.Account, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, role models.Role, doc any) error {
	now := time.Now().UTC()
	switch d := doc.(type) {
	case *models.Doctor:
		if f.accountByEmail(role, d.Email) != nil {
			return store.ErrAlreadyExists
		}
		d.Stamp(now)
		f.doctors[d.ID.Hex()] = d
	case *models.Patient:
		if f.accountByEmail(role, d.Email) != nil {
			return store.ErrAlreadyExists
		}
		d.Stamp(now)
		f.patients[d.ID.Hex()] = d
	}
	return nil
}

func (f *fakeStore) UpsertGoogleAccount(_ context.Context, role models.Role, ident *auth.GoogleIdentity) (*models.Account, error) {
	email := store.NormalizeEmail(ident.Email)
	acc := f.accountByEmail(role, email)
	if acc == nil {
		newAcc := models.Account{
			ID:           primitive.NewObjectID(),
			Name:         ident.Name,
			Email:        email,
			GoogleID:     ident.Subject,
			ProfileImage: ident.Picture,
			IsVerified:   true,
		}
		newAcc.Stamp(time.Now().UTC())
		if role == models.RoleDoctor {
			d := &models.Doctor{Account: newAcc, SlotDuration: models.DefaultSlotDuration}
			f.doctors[d.ID.Hex()] = d
			acc = &d.Account
		} else {
			p := &models.Patient{Account: newAcc, IsActive: true}
			f.patients[p.ID.Hex()] = p
			acc = &p.Account
		}
		f.googleMutations++
		return acc, nil
	}
	switch {
	case acc.GoogleID == "":
		acc.GoogleID = ident.Subject
		acc.ProfileImage = ident.Picture
		f.googleMutations++
	case acc.GoogleID != ident.Subject:
		return nil, store.ErrGoogleMismatch
	}
	return acc, nil
}

func (f *fakeStore) GetDoctor(_ context.Context, id string) (*models.Doctor, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateDoctorProfile(_ context.Context, id string, u store.DoctorProfileUpdate) (*models.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Phone != nil {
		d.Phone = *u.Phone
	}
	if u.HealthcareCategory != nil {
		d.HealthcareCategory = *u.HealthcareCategory
	}
	if u.Specialization != nil {
		d.Specialization = *u.Specialization
	}
	if u.Qualification != nil {
		d.Qualification = *u.Qualification
	}
	if u.Experience != nil {
		d.Experience = *u.Experience
	}
	if u.About != nil {
		d.About = *u.About
	}
	if u.HospitalInfo != nil {
		d.HospitalInfo = u.HospitalInfo
	}
	if u.Fees != nil {
		d.Fees = *u.Fees
	}
	if u.Availability != nil {
		d.Availability = u.Availability
	}
	if u.SlotDuration != nil {
		d.SlotDuration = *u.SlotDuration
	}
	d.IsVerified = true
	d.UpdatedAt = time.Now().UTC()
	return d, nil
}

func (f *fakeStore) ListDoctors(_ context.Context, q store.DoctorListQuery) ([]models.Doctor, int64, error) {
	f.listQuery = &q
	if f.listResult == nil {
		return []models.Doctor{}, f.listTotal, nil
	}
	return f.listResult, f.listTotal, nil
}

func (f *fakeStore) GetPatient(_ context.Context, id string) (*models.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdatePatientProfile(_ context.Context, id string, u store.PatientProfileUpdate) (*models.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	now := time.Now().UTC()
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.DOB != nil {
		p.DOB = u.DOB
		p.Age = models.AgeFromDOB(*u.DOB, now)
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.BloodGroup != nil {
		p.BloodGroup = *u.BloodGroup
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.ProfileImage != nil {
		p.ProfileImage = *u.ProfileImage
	}
	if u.MedicalHistory != nil {
		p.MedicalHistory = u.MedicalHistory
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = u.EmergencyContact
	}
	p.IsVerified = true
	p.UpdatedAt = now
	return p, nil
}

type fakeGoogle struct {
	ident *auth.GoogleIdentity
	err   error
}

func (f *fakeGoogle) Verify(context.Context, string) (*auth.GoogleIdentity, error) {
	return f.ident, f.err
}

type fakeLimiter struct {
	allow bool
}

func (f *fakeLimiter) Allow(context.Context, string) bool { return f.allow }

type testApp struct {
	store  *fakeStore
	tokens *auth.TokenManager
	google *fakeGoogle
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	fs := newFakeStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	google := &fakeGoogle{}
	logger := zap.NewNop()
	h := NewHandler(logger, fs, fs, fs, tokens, google, nil)
	return &testApp{
		store:  fs,
		tokens: tokens,
		google: google,
		router: NewRouter(logger, h, tokens, fs, nil),
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerUser drives the real endpoint and returns the issued token and id.
func (a *testApp) registerUser(t *testing.T, role models.Role, name, email, password string) (token, id string) {
	t.Helper()
	w := a.do(t, "POST", "/auth/"+string(role)+"/register", gin.H{
		"name":     name,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, 201, w.Code, w.Body.String())
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	return data["token"].(string), user["id"].(string)
}
