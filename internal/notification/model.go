package notification

import (
	"time"
)

// AllocationMessage is the payload published to the allocations topic for
// every notifying state change. MessageID makes redelivery detectable.
type AllocationMessage struct {
	MessageID        string    `json:"messageId"`
	MembershipNumber string    `json:"membershipNumber"`
	CombinedEventID  string    `json:"combinedEventId"`
	Allocation       string    `json:"allocation"`
	Timestamp        time.Time `json:"timestamp"`
}

// allocationText is the member-facing wording for one allocation state
type allocationText struct {
	Title string
	Body  string
}

// allocationTexts maps the notifying states to their wording. States not
// listed here never reach the topic.
var allocationTexts = map[string]allocationText{
	"ALLOCATED": {
		Title: "Allocated",
		Body:  "You have been selected to attend the above event, and will receive further details in due course.",
	},
	"RESERVE": {
		Title: "Reserve list",
		Body:  "You have been placed on the reserve list to attend the above event. Please keep the date free if possible.",
	},
	"NOT_ALLOCATED": {
		Title: "Not allocated",
		Body:  "You have not been selected to attend the above event. Thank you for offering your time.",
	},
	"DROPPED_OUT": {
		Title: "Dropped out",
		Body:  "You have notified us that you will no longer be able to attend this event.",
	},
	"NO_SHOW": {
		Title: "No show",
		Body:  "You were due to attend this event, but did not attend without giving us prior notice (or without giving us sufficient notice).",
	},
}

// DeviceToken represents the device_tokens table for push notifications
type DeviceToken struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MembershipNumber string    `gorm:"size:16;not null;index" json:"membershipNumber"`
	Token            string    `gorm:"size:512;not null;uniqueIndex" json:"token"`
	DeviceType       string    `gorm:"size:32" json:"deviceType"` // android/ios/web
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName overrides table name for DeviceToken
func (DeviceToken) TableName() string {
	return "device_tokens"
}

// NotificationLog represents the notification_logs table
type NotificationLog struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MembershipNumber string    `gorm:"size:16;not null;index" json:"membershipNumber"`
	CombinedEventID  string    `gorm:"size:41;index" json:"combinedEventId"`
	Allocation       string    `gorm:"size:16" json:"allocation"`
	Channel          string    `gorm:"size:16;not null" json:"channel"` // email/push
	Status           string    `gorm:"size:16;not null" json:"status"`  // sent/failed
	Error            string    `gorm:"size:500" json:"error,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// TableName overrides table name for NotificationLog
func (NotificationLog) TableName() string {
	return "notification_logs"
}

// RegisterDeviceRequest registers a device token for push notifications
type RegisterDeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceType string `json:"deviceType"`
}
