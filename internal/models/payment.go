package models

import (
	"time"
)

// Payment records money moving under an active contract
type Payment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	ContractID string    `gorm:"not null;size:36;index" json:"contractId" bson:"contractId"`
	Date       time.Time `gorm:"not null;index" json:"date" bson:"date"`
	Amount     float64   `gorm:"not null" json:"amount" bson:"amount"`
	Status     string    `gorm:"default:pending;not null;index" json:"status" bson:"status"`
	Method     string    `json:"method,omitempty" bson:"method,omitempty"`
	Reference  string    `json:"reference,omitempty" bson:"reference,omitempty"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPartial   = "partial"
	PaymentStatusCompleted = "completed"
	PaymentStatusOverdue   = "overdue"
)

// IsValidPaymentStatus reports whether s is a known payment status
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusCompleted, PaymentStatusOverdue:
		return true
	}
	return false
}

// CountsAsPaid returns true if the amount is included in the paid total
func (p *Payment) CountsAsPaid() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusPartial
}

// PaymentPatch is a partial update of a payment
type PaymentPatch struct {
	Status    *string
	Amount    *float64
	Method    *string
	Reference *string
	Notes     *string
}

// Apply merges the patch into p
func (pp PaymentPatch) Apply(p *Payment) {
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.Amount != nil {
		p.Amount = *pp.Amount
	}
	if pp.Method != nil {
		p.Method = *pp.Method
	}
	if pp.Reference != nil {
		p.Reference = *pp.Reference
	}
	if pp.Notes != nil {
		p.Notes = *pp.Notes
	}
}
