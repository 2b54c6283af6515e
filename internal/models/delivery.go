package models

import (
	"time"
)

// Delivery records a shipment made under an active contract
type Delivery struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	ContractID string    `gorm:"not null;size:36;index" json:"contractId" bson:"contractId"`
	Date       time.Time `gorm:"not null;index" json:"date" bson:"date"`
	Status     string    `gorm:"default:pending;not null;index" json:"status" bson:"status"`
	Quantity   float64   `json:"quantity" bson:"quantity"`
	TrackingID string    `json:"trackingId,omitempty" bson:"trackingId,omitempty"`
	Location   string    `json:"location,omitempty" bson:"location,omitempty"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// TableName specifies the table name for Delivery
func (Delivery) TableName() string {
	return "deliveries"
}

// Delivery status constants
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusInTransit = "in_transit"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusCancelled = "cancelled"
)

// IsValidDeliveryStatus reports whether s is a known delivery status
func IsValidDeliveryStatus(s string) bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusInTransit, DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	}
	return false
}

// IsDelivered returns true once the shipment reached the receiver
func (d *Delivery) IsDelivered() bool {
	return d.Status == DeliveryStatusDelivered
}

// DeliveryPatch is a partial update of a delivery
type DeliveryPatch struct {
	Status     *string
	Quantity   *float64
	TrackingID *string
	Location   *string
	Notes      *string
}

// Apply merges the patch into d
func (dp DeliveryPatch) Apply(d *Delivery) {
	if dp.Status != nil {
		d.Status = *dp.Status
	}
	if dp.Quantity != nil {
		d.Quantity = *dp.Quantity
	}
	if dp.TrackingID != nil {
		d.TrackingID = *dp.TrackingID
	}
	if dp.Location != nil {
		d.Location = *dp.Location
	}
	if dp.Notes != nil {
		d.Notes = *dp.Notes
	}
}
