package models

import "time"

// DefaultSlotDuration is the consultation slot length in minutes assigned to
// newly registered doctors.
const DefaultSlotDuration = 30

type HospitalInfo struct {
	Name          string `bson:"name" json:"name"`
	Address       string `bson:"address" json:"address"`
	City          string `bson:"city" json:"city"`
	State         string `bson:"state" json:"state"`
	Pincode       string `bson:"pincode" json:"pincode"`
	ContactNumber string `bson:"contactNumber,omitempty" json:"contactNumber,omitempty"`
}

type DailyTimeRange struct {
	Day       string `bson:"day" json:"day"`
	StartTime string `bson:"startTime" json:"startTime"`
	EndTime   string `bson:"endTime" json:"endTime"`
}

type AvailabilityRange struct {
	FromDate   time.Time        `bson:"fromDate" json:"fromDate"`
	ToDate     time.Time        `bson:"toDate" json:"toDate"`
	DailySlots []DailyTimeRange `bson:"dailySlots" json:"dailySlots"`
}

// Doctor is a document in the doctors collection. IsVerified gates visibility
// in the public listing and flips to true once onboarding completes.
type Doctor struct {
	Account            `bson:",inline"`
	HealthcareCategory string              `bson:"healthcareCategory,omitempty" json:"healthcareCategory,omitempty"`
	Specialization     string              `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Qualification      string              `bson:"qualification,omitempty" json:"qualification,omitempty"`
	Experience         int                 `bson:"experience" json:"experience"`
	About              string              `bson:"about,omitempty" json:"about,omitempty"`
	HospitalInfo       *HospitalInfo       `bson:"hospitalInfo,omitempty" json:"hospitalInfo,omitempty"`
	Fees               int                 `bson:"fees" json:"fees"`
	Availability       []AvailabilityRange `bson:"availability,omitempty" json:"availability,omitempty"`
	SlotDuration       int                 `bson:"slotDuration" json:"slotDuration"`
}
