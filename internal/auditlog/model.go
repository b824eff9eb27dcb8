package auditlog

import (
	"time"
)

// Portal audit actions
const (
	ActionApplicationSubmitted = "APPLICATION_SUBMITTED"
	ActionApplicationApproved  = "APPLICATION_APPROVED"
	ActionApplicationDeleted   = "APPLICATION_DELETED"
	ActionReferenceSubmitted   = "REFERENCE_SUBMITTED"
	ActionMemberUpdated        = "MEMBER_UPDATED"
	ActionMemberSuspended      = "MEMBER_SUSPENDED"
	ActionMemberDeleted        = "MEMBER_DELETED"
	ActionEventCreated         = "EVENT_CREATED"
	ActionEventUpdated         = "EVENT_UPDATED"
	ActionEventDeleted         = "EVENT_DELETED"
	ActionAllocationRegister   = "ALLOCATION_REGISTER"
	ActionAllocationSet        = "ALLOCATION_SET"
	ActionAllocationSuggest    = "ALLOCATION_SUGGEST"
	ActionPaymentCreated       = "PAYMENT_CREATED"
	ActionPaymentVerified      = "PAYMENT_VERIFIED"
	ActionNotificationSent     = "NOTIFICATION_SENT"
	ActionReportExported       = "REPORT_EXPORTED"
)

// AuditLog represents the audit_logs table
type AuditLog struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MembershipNumber *string   `gorm:"size:16;index" json:"membership_number"` // nullable (e.g. applicant, scheduled job)
	Target           *string   `gorm:"size:64;index" json:"target"`            // membership number or combined event id
	Action           string    `gorm:"size:100;not null;index" json:"action"`
	Details          string    `gorm:"type:jsonb" json:"details"` // freeform JSON details
	IPAddress        string    `gorm:"size:45" json:"ip_address"`
	Status           string    `gorm:"size:20;not null;index" json:"status"` // success/failure
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName overrides table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	MembershipNumber string     `json:"membership_number"`
	Target           string     `json:"target"`
	Action           string     `json:"action"`
	Status           string     `json:"status"`
	FromDate         *time.Time `json:"from_date"`
	ToDate           *time.Time `json:"to_date"`
	Page             int        `json:"page"`
	Limit            int        `json:"limit"`
}

// PaginatedAuditLogs represents the paginated audit log response
type PaginatedAuditLogs struct {
	Data       []AuditLog `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}
