package events

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Event series types. Social and no-impact series are excluded from the
// dropped-out and no-show weighting counts.
const (
	TypeEvent    = "event"
	TypeSocial   = "social"
	TypeNoImpact = "no_impact"
)

// Location types
const (
	LocationPhysical = "physical"
	LocationVirtual  = "virtual"
)

// EventSeries represents the event_series table
type EventSeries struct {
	EventSeriesID string    `gorm:"primaryKey;size:20;column:event_series_id" json:"eventSeriesId"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Type          string    `gorm:"size:16;not null;default:event" json:"type"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName overrides table name for EventSeries
func (EventSeries) TableName() string {
	return "event_series"
}

// EventInstance represents one scheduled occurrence of a series. The pair
// (event_series_id, event_id) is the primary key; the combined id
// "{seriesId}/{eventId}" identifies the instance everywhere else.
type EventInstance struct {
	EventSeriesID      string         `gorm:"primaryKey;size:20;column:event_series_id" json:"eventSeriesId"`
	EventID            string         `gorm:"primaryKey;size:20;column:event_id" json:"eventId"`
	Details            string         `gorm:"type:text;not null" json:"details"`
	Location           string         `gorm:"size:200;not null" json:"location"`
	LocationType       string         `gorm:"size:16;not null" json:"locationType"`
	Postcode           string         `gorm:"size:16" json:"postcode"`
	RegistrationDate   time.Time      `gorm:"type:date;not null" json:"registrationDate"`
	StartDate          time.Time      `gorm:"not null;index" json:"startDate"`
	EndDate            time.Time      `gorm:"not null" json:"endDate"`
	EventURL           string         `gorm:"size:500" json:"eventUrl"`
	Cost               int            `gorm:"not null;default:0" json:"cost"` // pence
	AttendanceLimit    int            `gorm:"not null;default:0" json:"attendanceLimit"`
	AttendanceCriteria datatypes.JSON `gorm:"type:jsonb" json:"attendanceCriteria"`
	WeightingCriteria  datatypes.JSON `gorm:"type:jsonb" json:"weightingCriteria"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"-"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"-"`
}

// TableName overrides table name for EventInstance
func (EventInstance) TableName() string {
	return "event_instances"
}

// CombinedEventID returns the "{seriesId}/{eventId}" key for this instance
func (e *EventInstance) CombinedEventID() string {
	return e.EventSeriesID + "/" + e.EventID
}

// Criteria decodes the attendance criteria list. A missing or malformed
// column reads as no criteria.
func (e *EventInstance) Criteria() []string {
	var criteria []string
	if len(e.AttendanceCriteria) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.AttendanceCriteria, &criteria); err != nil {
		return nil
	}
	return criteria
}

// Weights decodes the weighting criteria map (criterion token to weight).
func (e *EventInstance) Weights() map[string]float64 {
	weights := map[string]float64{}
	if len(e.WeightingCriteria) == 0 {
		return weights
	}
	if err := json.Unmarshal(e.WeightingCriteria, &weights); err != nil {
		return map[string]float64{}
	}
	return weights
}

// RegistrationOpen reports whether self-registration is still allowed on the
// given day. The deadline day itself is inclusive.
func (e *EventInstance) RegistrationOpen(today time.Time) bool {
	deadline := time.Date(e.RegistrationDate.Year(), e.RegistrationDate.Month(), e.RegistrationDate.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return !day.After(deadline)
}

// CreateSeriesRequest carries a new or updated event series
type CreateSeriesRequest struct {
	EventSeriesID string `json:"eventSeriesId" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	Type          string `json:"type" binding:"required"`
}

// CreateInstanceRequest carries a new or updated event instance
type CreateInstanceRequest struct {
	EventID            string             `json:"eventId" binding:"required"`
	Details            string             `json:"details" binding:"required"`
	Location           string             `json:"location" binding:"required"`
	LocationType       string             `json:"locationType" binding:"required"`
	Postcode           string             `json:"postcode"`
	RegistrationDate   string             `json:"registrationDate" binding:"required"` // YYYY-MM-DD
	StartDate          string             `json:"startDate" binding:"required"`        // RFC 3339
	EndDate            string             `json:"endDate" binding:"required"`          // RFC 3339
	EventURL           string             `json:"eventUrl"`
	Cost               int                `json:"cost"`
	AttendanceLimit    int                `json:"attendanceLimit"`
	AttendanceCriteria []string           `json:"attendanceCriteria"`
	WeightingCriteria  map[string]float64 `json:"weightingCriteria"`

	// AllowPastDates skips the no-past-dates check, for back-filling
	// historical events.
	AllowPastDates bool `json:"_allowPastDates"`
}
