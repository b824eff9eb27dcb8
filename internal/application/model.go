package application

import (
	"time"
)

// Reference relationships
const (
	RelationshipScouting    = "scouting"
	RelationshipNonScouting = "nonScouting"
)

// Application represents the applications table. Applications are keyed by
// the membership number the applicant was assigned by the national body; an
// approved application becomes the member record and the row is removed.
type Application struct {
	MembershipNumber string    `gorm:"primaryKey;size:16" json:"membershipNumber"`
	FirstName        string    `gorm:"size:100;not null" json:"firstName"`
	Surname          string    `gorm:"size:100;not null" json:"surname"`
	DateOfBirth      time.Time `gorm:"type:date;not null" json:"dateOfBirth"`
	Email            string    `gorm:"size:255;not null" json:"email"`
	Telephone        string    `gorm:"size:32;not null" json:"telephone"`
	Address          string    `gorm:"size:500;not null" json:"address"`
	Postcode         string    `gorm:"size:16;not null" json:"postcode"`
	QSAReceived      string    `gorm:"column:qsa_received;size:7;not null" json:"qsaReceived"` // YYYY-MM
	SubmittedAt      time.Time `gorm:"autoCreateTime" json:"submittedAt"`
}

// TableName overrides table name for Application
func (Application) TableName() string {
	return "applications"
}

// Reference represents the application_references table. A row is created for
// each referee when the application is submitted, holding only their name,
// e-mail and the bcrypt hash of the token mailed to them. The remaining
// fields are filled in when the referee submits.
type Reference struct {
	MembershipNumber string `gorm:"primaryKey;size:16" json:"membershipNumber"`
	ReferenceEmail   string `gorm:"primaryKey;size:255" json:"referenceEmail"`
	ReferenceName    string `gorm:"size:200;not null" json:"referenceName"`
	TokenHash        string `gorm:"size:72;not null" json:"-"`

	Relationship       string     `gorm:"size:16" json:"relationship,omitempty"`
	CapacityKnown      string     `gorm:"size:200" json:"capacityKnown,omitempty"`
	HowLong            string     `gorm:"size:16" json:"howLong,omitempty"` // lessThan5/moreThan5
	NotConsidered      bool       `json:"notConsidered"`
	StatementOfSupport string     `gorm:"type:text" json:"statementOfSupport,omitempty"`
	Maturity           int        `json:"maturity,omitempty"`
	Responsibility     int        `json:"responsibility,omitempty"`
	SelfMotivation     int        `json:"selfMotivation,omitempty"`
	MotivateOthers     int        `json:"motivateOthers,omitempty"`
	Commitment         int        `json:"commitment,omitempty"`
	Trustworthiness    int        `json:"trustworthiness,omitempty"`
	WorkWithAdults     int        `json:"workWithAdults,omitempty"`
	RespectForOthers   int        `json:"respectForOthers,omitempty"`
	Accepted           bool       `json:"accepted"`
	SubmittedAt        *time.Time `json:"submittedAt,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"-"`
}

// TableName overrides table name for Reference
func (Reference) TableName() string {
	return "application_references"
}

// Submitted reports whether the referee has returned their reference
func (r *Reference) Submitted() bool {
	return r.SubmittedAt != nil
}

// SubmitApplicationRequest is the public intake payload
type SubmitApplicationRequest struct {
	FirstName   string `json:"firstName"`
	Surname     string `json:"surname"`
	DateOfBirth string `json:"dateOfBirth"`
	Email       string `json:"email"`
	Telephone   string `json:"telephone"`
	Address     string `json:"address"`
	Postcode    string `json:"postcode"`
	QSAReceived string `json:"qsaReceived"`

	// Two referees: one Scouting, one not
	SRName   string `json:"srName"`
	SREmail  string `json:"srEmail"`
	NSRName  string `json:"nsrName"`
	NSREmail string `json:"nsrEmail"`
}

// SubmitReferenceRequest is the referee's submission. The token came from the
// link mailed to them when the application was received.
type SubmitReferenceRequest struct {
	Email              string `json:"email"`
	Token              string `json:"token"`
	Name               string `json:"name"`
	Relationship       string `json:"relationship"`
	CapacityKnown      string `json:"capacityKnown"`
	HowLong            string `json:"howLong"`
	NotConsidered      string `json:"notConsidered"` // yes/no
	StatementOfSupport string `json:"statementOfSupport"`
	Maturity           int    `json:"maturity"`
	Responsibility     int    `json:"responsibility"`
	SelfMotivation     int    `json:"selfMotivation"`
	MotivateOthers     int    `json:"motivateOthers"`
	Commitment         int    `json:"commitment"`
	Trustworthiness    int    `json:"trustworthiness"`
	WorkWithAdults     int    `json:"workWithAdults"`
	RespectForOthers   int    `json:"respectForOthers"`
}

// StatusRequest asks for the progress of an application. Date of birth is
// required so the response does not leak whether an application exists.
type StatusRequest struct {
	DateOfBirth string `json:"dateOfBirth" binding:"required"`
}

// Status summarises reference progress for an applicant. Values are nil
// (nothing received), SUBMITTED or ACCEPTED.
type Status struct {
	MembershipNumber string  `json:"membershipNumber"`
	SubmittedAt      int64   `json:"submittedAt"`
	Scouting         *string `json:"scouting"`
	NonScouting      *string `json:"nonScouting"`
	FiveYears        *string `json:"fiveYears"`
}

// AcceptReferenceRequest marks a submitted reference as reviewed
type AcceptReferenceRequest struct {
	Email string `json:"email" binding:"required"`
}

// Report is the applications overview for the membership team
type Report struct {
	Count      int            `json:"count"`
	Postcodes  map[string]int `json:"postcodes"`
	Newest     string         `json:"newest"`
	NewestDays int            `json:"newestDays"`
	Oldest     string         `json:"oldest"`
	OldestDays int            `json:"oldestDays"`
}
