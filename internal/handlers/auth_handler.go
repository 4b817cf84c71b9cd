package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/models"
	"github.com/telemedhq/telemed-api/internal/store"
)

const dobLayout = "2006-01-02"

// registerRequest covers both roles; the role-specific fields are optional
// and only picked up by the matching collection's document builder.
type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`

	// doctor
	Specialization     string `json:"specialization"`
	HealthcareCategory string `json:"healthcareCategory"`

	// patient
	DOB    string `json:"dob" binding:"omitempty,datetime=2006-01-02"`
	Gender string `json:"gender" binding:"omitempty,oneof=male female other"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type googleLoginRequest struct {
	TokenID string `json:"tokenId" binding:"required"`
}

// newUserDoc builds the role-specific document for a fresh password signup.
func newUserDoc(role models.Role, acc models.Account, req registerRequest) any {
	switch role {
	case models.RoleDoctor:
		return &models.Doctor{
			Account:            acc,
			Specialization:     req.Specialization,
			HealthcareCategory: req.HealthcareCategory,
			SlotDuration:       models.DefaultSlotDuration,
		}
	default:
		p := &models.Patient{
			Account:  acc,
			Gender:   req.Gender,
			IsActive: true,
		}
		if req.DOB != "" {
			if dob, err := time.Parse(dobLayout, req.DOB); err == nil {
				p.DOB = &dob
				p.Age = models.AgeFromDOB(dob, time.Now())
			}
		}
		return p
	}
}

func tokenPayload(token string, id primitive.ObjectID, role models.Role) gin.H {
	return gin.H{
		"token": token,
		"user":  gin.H{"id": id.Hex(), "type": role},
	}
}

// Register handles POST /auth/{role}/register. A fresh password signup starts
// unverified; onboarding flips the flag later.
func (h *Handler) Register(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, bindingErrors(err))
			return
		}

		email := store.NormalizeEmail(req.Email)
		if _, err := h.accounts.FindAccountByEmail(c.Request.Context(), role, email); err == nil {
			respondError(c, http.StatusBadRequest, role.Title()+" already exists")
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("register lookup failed", zap.Error(err), zap.String("role", string(role)))
			respondError(c, http.StatusInternalServerError, "Registration failed")
			return
		}

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			h.logger.Error("password hash failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Registration failed")
			return
		}

		acc := models.Account{
			ID:       primitive.NewObjectID(),
			Name:     req.Name,
			Email:    email,
			Password: hashed,
		}
		doc := newUserDoc(role, acc, req)

		// The unique email index backstops the existence check above; a racing
		// double-registration surfaces here as ErrAlreadyExists.
		if err := h.accounts.CreateUser(c.Request.Context(), role, doc); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				respondError(c, http.StatusBadRequest, role.Title()+" already exists")
				return
			}
			h.logger.Error("register insert failed", zap.Error(err), zap.String("role", string(role)))
			respondError(c, http.StatusInternalServerError, "Registration failed")
			return
		}

		token, err := h.tokens.Issue(acc.ID.Hex(), role)
		if err != nil {
			h.logger.Error("token issue failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Registration failed")
			return
		}

		respondCreated(c, role.Title()+" registered successfully", tokenPayload(token, acc.ID, role))
	}
}

// Login handles POST /auth/{role}/login. Unknown email and wrong password get
// the same message; login does not depend on the verification flag.
func (h *Handler) Login(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, bindingErrors(err))
			return
		}

		email := store.NormalizeEmail(req.Email)
		if h.limiter != nil && !h.limiter.Allow(c.Request.Context(), email) {
			respondError(c, http.StatusTooManyRequests, "Too many login attempts, please try again later")
			return
		}

		acc, err := h.accounts.FindAccountByEmail(c.Request.Context(), role, email)
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusBadRequest, "Invalid email or password")
			return
		}
		if err != nil {
			h.logger.Error("login lookup failed", zap.Error(err), zap.String("role", string(role)))
			respondError(c, http.StatusInternalServerError, "Login failed")
			return
		}

		if acc.Password == "" {
			respondError(c, http.StatusBadRequest,
				role.Title()+" registered via Google. Please login with Google.")
			return
		}

		if !auth.CheckPasswordHash(req.Password, acc.Password) {
			respondError(c, http.StatusBadRequest, "Invalid email or password")
			return
		}

		token, err := h.tokens.Issue(acc.ID.Hex(), role)
		if err != nil {
			h.logger.Error("token issue failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Login failed")
			return
		}

		respondOK(c, role.Title()+" login successful", tokenPayload(token, acc.ID, role))
	}
}

// GoogleLogin handles POST /auth/{role}/google. The posted tokenId is a
// Google ID token; a verified assertion finds-or-creates the account and
// links the Google subject on first federated login.
func (h *Handler) GoogleLogin(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req googleLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, bindingErrors(err))
			return
		}

		if h.google == nil {
			respondError(c, http.StatusInternalServerError, "Google login is not configured")
			return
		}

		ident, err := h.google.Verify(c.Request.Context(), req.TokenID)
		if err != nil {
			h.logger.Error("google token verification failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Google login failed")
			return
		}
		if ident.Email == "" || !ident.EmailVerified {
			respondError(c, http.StatusBadRequest, auth.ErrMissingEmail.Error())
			return
		}

		acc, err := h.accounts.UpsertGoogleAccount(c.Request.Context(), role, ident)
		if errors.Is(err, store.ErrGoogleMismatch) {
			respondError(c, http.StatusBadRequest, "Google account does not match this profile")
			return
		}
		if err != nil {
			h.logger.Error("google account upsert failed", zap.Error(err), zap.String("role", string(role)))
			respondError(c, http.StatusInternalServerError, "Google login failed")
			return
		}

		token, err := h.tokens.Issue(acc.ID.Hex(), role)
		if err != nil {
			h.logger.Error("token issue failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Google login failed")
			return
		}

		respondOK(c, fmt.Sprintf("Google login successful (%s)", role), tokenPayload(token, acc.ID, role))
	}
}
