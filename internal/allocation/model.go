package allocation

import (
	"fmt"
	"time"

	"github.com/kswpuk/portal-api/internal/apperr"
)

// Allocation states. UNREGISTERED is implicit: no record exists.
const (
	StateUnregistered = "UNREGISTERED"
	StateRegistered   = "REGISTERED"
	StateAllocated    = "ALLOCATED"
	StateReserve      = "RESERVE"
	StateNotAllocated = "NOT_ALLOCATED"
	StateDroppedOut   = "DROPPED_OUT"
	StateNoShow       = "NO_SHOW"
	StateAttended     = "ATTENDED"
)

// validStates are the states an administrator may write
var validStates = map[string]bool{
	StateRegistered:   true,
	StateAllocated:    true,
	StateReserve:      true,
	StateNotAllocated: true,
	StateDroppedOut:   true,
	StateNoShow:       true,
	StateAttended:     true,
}

// notifyingStates are the transitions that trigger a member notification.
// Self-service registration, marking attendance after the fact and record
// deletion stay silent.
var notifyingStates = map[string]bool{
	StateAllocated:    true,
	StateReserve:      true,
	StateNotAllocated: true,
	StateDroppedOut:   true,
	StateNoShow:       true,
}

// Notifies reports whether writing the state should notify the member
func Notifies(state string) bool {
	return notifyingStates[state]
}

// Self-service registration errors
var (
	ErrRegistrationClosed = fmt.Errorf("registration deadline has already passed: %w", apperr.ErrConflict)
	ErrNotEligible        = fmt.Errorf("eligibility criteria not met: %w", apperr.ErrValidation)
	ErrInvalidTransition  = fmt.Errorf("not authorized to change existing allocation status: %w", apperr.ErrConflict)
)

// Allocation represents the event_allocations table. At most one record
// exists per (event, member) pair; the composite primary key enforces it.
type Allocation struct {
	CombinedEventID  string    `gorm:"primaryKey;size:41;column:combined_event_id" json:"combinedEventId"`
	MembershipNumber string    `gorm:"primaryKey;size:16;index" json:"membershipNumber"`
	Allocation       string    `gorm:"size:16;not null" json:"allocation"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName overrides table name for Allocation
func (Allocation) TableName() string {
	return "event_allocations"
}

// RegisterResult reports which way the registration toggle went
type RegisterResult struct {
	CombinedEventID  string `json:"combinedEventId"`
	MembershipNumber string `json:"membershipNumber"`
	Allocation       string `json:"allocation"` // REGISTERED or UNREGISTERED
}

// AllocationGroup assigns one state to a batch of members
type AllocationGroup struct {
	Allocation        string   `json:"allocation"`
	MembershipNumbers []string `json:"membershipNumbers"`
}

// SetAllocationsRequest is the bulk administrative write
type SetAllocationsRequest struct {
	Allocations []AllocationGroup `json:"allocations" binding:"required"`
}

// SetAllocationsResult summarises a bulk write. Individual failures do not
// abort the batch; they are reported here.
type SetAllocationsResult struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// MemberAllocation is an allocation joined with its event for display
type MemberAllocation struct {
	CombinedEventID string    `json:"combinedEventId"`
	Allocation      string    `json:"allocation"`
	SeriesName      string    `json:"seriesName"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
}
