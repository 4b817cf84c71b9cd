package models

import "time"

type MedicalHistory struct {
	Allergies          string `bson:"allergies,omitempty" json:"allergies,omitempty"`
	CurrentMedications string `bson:"currentMedications,omitempty" json:"currentMedications,omitempty"`
	ChronicConditions  string `bson:"chronicConditions,omitempty" json:"chronicConditions,omitempty"`
	Surgeries          string `bson:"surgeries,omitempty" json:"surgeries,omitempty"`
	FamilyHistory      string `bson:"familyHistory,omitempty" json:"familyHistory,omitempty"`
}

type EmergencyContact struct {
	Name         string `bson:"name" json:"name"`
	Phone        string `bson:"phone" json:"phone"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
}

// Patient is a document in the patients collection. Age is derived from DOB
// and is never accepted from a client.
type Patient struct {
	Account          `bson:",inline"`
	DOB              *time.Time        `bson:"dob,omitempty" json:"dob,omitempty"`
	Gender           string            `bson:"gender,omitempty" json:"gender,omitempty"`
	BloodGroup       string            `bson:"bloodGroup,omitempty" json:"bloodGroup,omitempty"`
	Age              int               `bson:"age,omitempty" json:"age,omitempty"`
	Address          string            `bson:"address,omitempty" json:"address,omitempty"`
	MedicalHistory   *MedicalHistory   `bson:"medicalHistory,omitempty" json:"medicalHistory,omitempty"`
	EmergencyContact *EmergencyContact `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
	IsActive         bool              `bson:"isActive" json:"isActive"`
}

// AgeFromDOB computes full years elapsed between dob and now.
func AgeFromDOB(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
