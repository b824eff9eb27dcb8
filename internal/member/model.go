package member

import (
	"time"
)

// Member statuses
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Compare actions returned by the membership comparison endpoint
const (
	CompareNone              = "NONE"
	CompareAddToCompass      = "ADD_TO_COMPASS"
	CompareRemoveFromCompass = "REMOVE_FROM_COMPASS"
)

// Member represents the members table. The membership number is assigned by
// the national body and is the primary key throughout the portal.
type Member struct {
	MembershipNumber          string     `gorm:"primaryKey;size:16" json:"membershipNumber"`
	FirstName                 string     `gorm:"size:100;not null" json:"firstName"`
	PreferredName             string     `gorm:"size:100" json:"preferredName"`
	Surname                   string     `gorm:"size:100;not null" json:"surname"`
	DateOfBirth               time.Time  `gorm:"type:date;not null" json:"dateOfBirth"`
	JoinDate                  time.Time  `gorm:"type:date;not null" json:"joinDate"`
	Email                     string     `gorm:"size:255;not null;index" json:"email"`
	Telephone                 string     `gorm:"size:32" json:"telephone"`
	Address                   string     `gorm:"size:500" json:"address"`
	Postcode                  string     `gorm:"size:16" json:"postcode"`
	EmergencyContactName      string     `gorm:"size:200" json:"emergencyContactName"`
	EmergencyContactTelephone string     `gorm:"size:32" json:"emergencyContactTelephone"`
	MedicalInformation        string     `gorm:"type:text" json:"medicalInformation"`
	DietaryRequirements       string     `gorm:"type:text" json:"dietaryRequirements"`
	Role                      string     `gorm:"size:50" json:"role"`
	Status                    string     `gorm:"size:16;not null;default:ACTIVE;index" json:"status"`
	MembershipExpires         time.Time  `gorm:"type:date;not null" json:"membershipExpires"`
	Suspended                 bool       `gorm:"not null;default:false" json:"suspended"`
	QSAReceived               bool       `gorm:"column:qsa_received;not null;default:false" json:"qsaReceived"`
	LastUpdated               time.Time  `gorm:"autoUpdateTime" json:"lastUpdated"`
	CreatedAt                 time.Time  `gorm:"autoCreateTime" json:"-"`
	DeletedAt                 *time.Time `gorm:"index" json:"-"`
}

// TableName overrides table name for Member
func (Member) TableName() string {
	return "members"
}

// DisplayName prefers the preferred name when one is set.
func (m *Member) DisplayName() string {
	name := m.PreferredName
	if name == "" {
		name = m.FirstName
	}
	return name + " " + m.Surname
}

// Active reports whether the membership has not lapsed.
func (m *Member) Active() bool {
	return m.Status == StatusActive
}

// MemberSummary is the trimmed listing row. E-mail is only populated for
// committee callers.
type MemberSummary struct {
	MembershipNumber string `json:"membershipNumber"`
	FirstName        string `json:"firstName"`
	PreferredName    string `json:"preferredName"`
	Surname          string `json:"surname"`
	Role             string `json:"role"`
	Status           string `json:"status"`
	Email            string `json:"email,omitempty"`
}

// UpdateMemberRequest carries the self-service editable fields
type UpdateMemberRequest struct {
	FirstName                 string `json:"firstName" binding:"required"`
	Surname                   string `json:"surname" binding:"required"`
	PreferredName             string `json:"preferredName"`
	Email                     string `json:"email" binding:"required"`
	Telephone                 string `json:"telephone" binding:"required"`
	Address                   string `json:"address" binding:"required"`
	Postcode                  string `json:"postcode" binding:"required"`
	EmergencyContactName      string `json:"emergencyContactName" binding:"required"`
	EmergencyContactTelephone string `json:"emergencyContactTelephone" binding:"required"`
	MedicalInformation        string `json:"medicalInformation"`
	DietaryRequirements       string `json:"dietaryRequirements"`
}

// CompareRequest carries the membership numbers exported from the national
// database for comparison against the portal
type CompareRequest struct {
	Members []string `json:"members" binding:"required"`
}

// CompareResult pairs a membership number with the sync action required
type CompareResult struct {
	MembershipNumber string  `json:"membershipNumber"`
	Name             *string `json:"name"`
	Action           string  `json:"action"`
}

// MemberReport aggregates membership demographics for the committee dashboard
type MemberReport struct {
	Counts struct {
		Status map[string]int `json:"status"`
		Time   map[int]int    `json:"time"`
		Age    map[string]int `json:"age"`
	} `json:"counts"`
}

// AwardCandidate is a member meeting the good service award criteria
type AwardCandidate struct {
	MembershipNumber string `json:"membershipNumber"`
	FirstName        string `json:"firstName"`
	Surname          string `json:"surname"`
}
