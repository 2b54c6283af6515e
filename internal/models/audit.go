package models

import (
	"time"
)

// AuditLog represents a lifecycle audit entry
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    string    `gorm:"not null;index" json:"actorId"`
	Action     string    `gorm:"size:50;not null" json:"action"` // CREATE, PUBLISH, BID, ACCEPT, REJECT, STATUS, EXPIRE, DELETE
	Entity     string    `gorm:"size:50;not null" json:"entity"` // Contract, Bid, Delivery, Payment
	EntityID   string    `gorm:"size:36;index" json:"entityId"`
	ContractID string    `gorm:"size:36;index" json:"contractId"`
	Details    string    `gorm:"type:text" json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditCreate  = "CREATE"
	AuditPublish = "PUBLISH"
	AuditBid     = "BID"
	AuditAccept  = "ACCEPT"
	AuditReject  = "REJECT"
	AuditStatus  = "STATUS"
	AuditExpire  = "EXPIRE"
	AuditDelete  = "DELETE"
	AuditRecord  = "RECORD"
)
