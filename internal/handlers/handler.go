package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/models"
	"github.com/telemedhq/telemed-api/internal/store"
)

// AccountStore is the role-generic slice of the store the auth flow needs.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error)
	CreateUser(ctx context.Context, role models.Role, doc any) error
	UpsertGoogleAccount(ctx context.Context, role models.Role, ident *auth.GoogleIdentity) (*models.Account, error)
}

// DoctorStore covers the doctor profile and listing operations.
type DoctorStore interface {
	GetDoctor(ctx context.Context, id string) (*models.Doctor, error)
	UpdateDoctorProfile(ctx context.Context, id string, u store.DoctorProfileUpdate) (*models.Doctor, error)
	ListDoctors(ctx context.Context, q store.DoctorListQuery) ([]models.Doctor, int64, error)
}

// PatientStore covers the patient profile operations.
type PatientStore interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	UpdatePatientProfile(ctx context.Context, id string, u store.PatientProfileUpdate) (*models.Patient, error)
}

// Handler carries the dependencies of every route. The Google verifier and
// the login limiter may be nil when not configured.
type Handler struct {
	logger   *zap.Logger
	accounts AccountStore
	doctors  DoctorStore
	patients PatientStore
	tokens   *auth.TokenManager
	google   auth.GoogleVerifier
	limiter  auth.LoginLimiter
}

func NewHandler(
	logger *zap.Logger,
	accounts AccountStore,
	doctors DoctorStore,
	patients PatientStore,
	tokens *auth.TokenManager,
	google auth.GoogleVerifier,
	limiter auth.LoginLimiter,
) *Handler {
	return &Handler{
		logger:   logger,
		accounts: accounts,
		doctors:  doctors,
		patients: patients,
		tokens:   tokens,
		google:   google,
		limiter:  limiter,
	}
}
