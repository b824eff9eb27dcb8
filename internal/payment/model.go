package payment

import (
	"time"
)

// Payment statuses
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Payment represents the payments table. One row per renewal attempt; the
// Razorpay order id ties the gateway callback back to the row.
type Payment struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	MembershipNumber string     `gorm:"size:16;not null;index" json:"membershipNumber"`
	Amount           int        `gorm:"not null" json:"amount"` // pence
	Currency         string     `gorm:"size:3;not null;default:GBP" json:"currency"`
	OrderID          string     `gorm:"size:64;not null;uniqueIndex" json:"orderId"`
	PaymentID        *string    `gorm:"size:64" json:"paymentId,omitempty"`
	Method           string     `gorm:"size:32" json:"method,omitempty"`
	Status           string     `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"-"`
}

// TableName overrides table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// StartRenewalResponse carries what the frontend needs to open the Razorpay
// checkout.
type StartRenewalResponse struct {
	OrderID     string `json:"orderId"`
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
	RazorpayKey string `json:"razorpayKey"`
}

// VerifyPaymentRequest is the gateway callback relayed by the frontend
type VerifyPaymentRequest struct {
	OrderID     string `json:"orderId" binding:"required"`
	PaymentID   string `json:"paymentId" binding:"required"`
	RazorpaySig string `json:"razorpaySignature" binding:"required"`
}

// RenewalResult reports the outcome of a verified payment
type RenewalResult struct {
	Status            string     `json:"status"`
	MembershipExpires *time.Time `json:"membershipExpires,omitempty"`
}

// updatePaymentParams carries the fields written after gateway verification
type updatePaymentParams struct {
	Status    string
	PaymentID *string
	Method    string
	PaidAt    *time.Time
}
