package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telemedhq/telemed-api/internal/middleware"
	"github.com/telemedhq/telemed-api/internal/models"
	"github.com/telemedhq/telemed-api/internal/store"
)

type doctorListRequest struct {
	Search         string `form:"search"`
	Specialization string `form:"specialization"`
	City           string `form:"city"`
	Category       string `form:"category"`
	MinFees        *int   `form:"minFees" binding:"omitempty,gte=0"`
	MaxFees        *int   `form:"maxFees" binding:"omitempty,gte=0"`
	SortBy         string `form:"sortBy" binding:"omitempty,oneof=fees experience name createdAt"`
	SortOrder      string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Page           int    `form:"page" binding:"omitempty,gte=1"`
	Limit          int    `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

// ListDoctors handles GET /doctor/list: public filter/sort/paginate over
// verified doctors.
func (h *Handler) ListDoctors(c *gin.Context) {
	var req doctorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondValidation(c, bindingErrors(err))
		return
	}

	q := store.DoctorListQuery{
		Search:         req.Search,
		Specialization: req.Specialization,
		City:           req.City,
		Category:       req.Category,
		MinFees:        req.MinFees,
		MaxFees:        req.MaxFees,
		SortBy:         req.SortBy,
		SortOrder:      req.SortOrder,
		Page:           req.Page,
		Limit:          req.Limit,
	}
	q.Normalize()

	doctors, total, err := h.doctors.ListDoctors(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("doctor list failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch doctors")
		return
	}

	respondOKMeta(c, "Doctors fetched", doctors, gin.H{
		"page":  q.Page,
		"limit": q.Limit,
		"total": total,
	})
}

// DoctorMe handles GET /doctor/me for the authenticated doctor.
func (h *Handler) DoctorMe(c *gin.Context) {
	acc, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Token missing")
		return
	}

	doc, err := h.doctors.GetDoctor(c.Request.Context(), acc.ID.Hex())
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Doctor profile not found")
		return
	}
	if err != nil {
		h.logger.Error("doctor profile fetch failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	respondOK(c, "Profile fetched", doc)
}

type doctorOnboardingRequest struct {
	Name               *string                    `json:"name" binding:"omitempty,min=1"`
	Phone              *string                    `json:"phone"`
	HealthcareCategory *string                    `json:"healthcareCategory"`
	Specialization     *string                    `json:"specialization"`
	Qualification      *string                    `json:"qualification"`
	Experience         *int                       `json:"experience" binding:"omitempty,gte=0"`
	About              *string                    `json:"about"`
	HospitalInfo       *models.HospitalInfo       `json:"hospitalInfo"`
	Fees               *int                       `json:"fees" binding:"omitempty,gte=0"`
	Availability       []models.AvailabilityRange `json:"availability"`
	SlotDuration       *int                       `json:"slotDuration" binding:"omitempty,gte=5,lte=180"`
}

// UpdateDoctorOnboarding handles PUT /doctor/onboarding/update. Identity
// fields in the body are ignored: the request shape simply has nowhere to
// put a password, email or googleId. Completing onboarding marks the doctor
// verified and visible in the listing.
func (h *Handler) UpdateDoctorOnboarding(c *gin.Context) {
	acc, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Token missing")
		return
	}

	var req doctorOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, bindingErrors(err))
		return
	}

	update := store.DoctorProfileUpdate{
		Name:               req.Name,
		Phone:              req.Phone,
		HealthcareCategory: req.HealthcareCategory,
		Specialization:     req.Specialization,
		Qualification:      req.Qualification,
		Experience:         req.Experience,
		About:              req.About,
		HospitalInfo:       req.HospitalInfo,
		Fees:               req.Fees,
		Availability:       req.Availability,
		SlotDuration:       req.SlotDuration,
	}

	doc, err := h.doctors.UpdateDoctorProfile(c.Request.Context(), acc.ID.Hex(), update)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Doctor profile not found")
		return
	}
	if err != nil {
		h.logger.Error("doctor profile update failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Update failed")
		return
	}

	respondOK(c, "Profile updated successfully", doc)
}
