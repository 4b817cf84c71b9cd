package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telemedhq/telemed-api/internal/middleware"
	"github.com/telemedhq/telemed-api/internal/models"
	"github.com/telemedhq/telemed-api/internal/store"
)

// PatientMe handles GET /patient/me for the authenticated patient.
func (h *Handler) PatientMe(c *gin.Context) {
	acc, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Token missing")
		return
	}

	doc, err := h.patients.GetPatient(c.Request.Context(), acc.ID.Hex())
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Patient profile not found")
		return
	}
	if err != nil {
		h.logger.Error("patient profile fetch failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	respondOK(c, "Profile fetched", doc)
}

type patientOnboardingRequest struct {
	Name             *string                  `json:"name" binding:"omitempty,min=1"`
	Phone            *string                  `json:"phone"`
	DOB              *string                  `json:"dob" binding:"omitempty,datetime=2006-01-02"`
	Gender           *string                  `json:"gender" binding:"omitempty,oneof=male female other"`
	BloodGroup       *string                  `json:"bloodGroup" binding:"omitempty,oneof=A+ A- B+ B- O+ O- AB+ AB-"`
	Address          *string                  `json:"address"`
	ProfileImage     *string                  `json:"profileImage"`
	MedicalHistory   *models.MedicalHistory   `json:"medicalHistory"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact"`
}

// UpdatePatientOnboarding handles PUT /patient/onboarding/update. A changed
// DOB recomputes the derived age in the store; identity fields in the body
// have nowhere to land and are ignored.
func (h *Handler) UpdatePatientOnboarding(c *gin.Context) {
	acc, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Token missing")
		return
	}

	var req patientOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, bindingErrors(err))
		return
	}

	update := store.PatientProfileUpdate{
		Name:             req.Name,
		Phone:            req.Phone,
		Gender:           req.Gender,
		BloodGroup:       req.BloodGroup,
		Address:          req.Address,
		ProfileImage:     req.ProfileImage,
		MedicalHistory:   req.MedicalHistory,
		EmergencyContact: req.EmergencyContact,
	}
	if req.DOB != nil {
		dob, err := time.Parse(dobLayout, *req.DOB)
		if err != nil {
			respondValidation(c, []string{"DOB must be a valid date (2006-01-02)"})
			return
		}
		update.DOB = &dob
	}

	doc, err := h.patients.UpdatePatientProfile(c.Request.Context(), acc.ID.Hex(), update)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Patient profile not found")
		return
	}
	if err != nil {
		h.logger.Error("patient profile update failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Update failed")
		return
	}

	respondOK(c, "Profile updated successfully", doc)
}
