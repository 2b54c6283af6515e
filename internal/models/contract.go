package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Contract is an agreement between a creator and a second party. A tender is
// a contract still open for bids, so it has no second party yet.
type Contract struct {
	ID          string  `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Title       string  `gorm:"not null" json:"title" bson:"title"`
	Type        string  `gorm:"not null;index" json:"type" bson:"type"`
	IsTender    bool    `gorm:"index" json:"isTender" bson:"isTender"`
	CreatorID   string  `gorm:"not null;index" json:"creatorId" bson:"creatorId"`
	CreatorRole string  `json:"creatorRole" bson:"creatorRole"`
	Parties     Parties `gorm:"embedded" json:"parties" bson:"parties"`

	StartDate     time.Time  `gorm:"not null" json:"startDate" bson:"startDate"`
	EndDate       time.Time  `gorm:"not null" json:"endDate" bson:"endDate"`
	TenderEndDate *time.Time `json:"tenderEndDate,omitempty" bson:"tenderEndDate,omitempty"`

	Value        float64  `gorm:"not null" json:"value" bson:"value"`
	Quantity     *float64 `json:"quantity,omitempty" bson:"quantity,omitempty"`
	Unit         string   `json:"unit,omitempty" bson:"unit,omitempty"`
	PricePerUnit *float64 `json:"pricePerUnit,omitempty" bson:"pricePerUnit,omitempty"`

	Description      string                      `gorm:"type:text;not null" json:"description" bson:"description"`
	Terms            datatypes.JSONSlice[string] `json:"terms" bson:"terms"`
	QualityStandards string                      `gorm:"type:text" json:"qualityStandards,omitempty" bson:"qualityStandards,omitempty"`
	PaymentTerms     string                      `gorm:"type:text" json:"paymentTerms,omitempty" bson:"paymentTerms,omitempty"`
	DeliveryTerms    string                      `gorm:"type:text" json:"deliveryTerms,omitempty" bson:"deliveryTerms,omitempty"`

	FarmingDetails    *FarmingDetails    `gorm:"serializer:json" json:"farmingDetails,omitempty" bson:"farmingDetails,omitempty"`
	StructuredBidding *StructuredBidding `gorm:"serializer:json" json:"structuredBidding,omitempty" bson:"structuredBidding,omitempty"`

	Bids BidSet `gorm:"-" json:"bids" bson:"bids"`

	Status          string     `gorm:"not null;index" json:"status" bson:"status"`
	ChatID          string     `json:"chatId,omitempty" bson:"chatId,omitempty"`
	ChatAnnouncedAt *time.Time `json:"chatAnnouncedAt,omitempty" bson:"chatAnnouncedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	ExpiredAt       *time.Time `json:"expiredAt,omitempty" bson:"expiredAt,omitempty"`
	Version         int        `gorm:"not null;default:1" json:"version" bson:"version"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime:false" json:"updatedAt" bson:"updatedAt"`
}

// TableName specifies the table name for Contract
func (Contract) TableName() string {
	return "contracts"
}

// Parties holds both sides of the agreement. The second party is empty
// until a tender is resolved or a direct contract names one.
type Parties struct {
	FirstPartyID        string `gorm:"column:first_party_id;index" json:"firstPartyId" bson:"firstPartyId"`
	FirstPartyUsername  string `gorm:"column:first_party_username" json:"firstPartyUsername" bson:"firstPartyUsername"`
	FirstPartyVerified  bool   `gorm:"column:first_party_verified" json:"firstPartyVerified" bson:"firstPartyVerified"`
	SecondPartyID       string `gorm:"column:second_party_id;index" json:"secondPartyId,omitempty" bson:"secondPartyId,omitempty"`
	SecondPartyUsername string `gorm:"column:second_party_username" json:"secondPartyUsername,omitempty" bson:"secondPartyUsername,omitempty"`
	SecondPartyVerified bool   `gorm:"column:second_party_verified" json:"secondPartyVerified" bson:"secondPartyVerified"`
}

// Contract type constants
const (
	ContractTypeSupply   = "supply"
	ContractTypePurchase = "purchase"
	ContractTypeRental   = "rental"
	ContractTypeService  = "service"
	ContractTypeLabor    = "labor"
	ContractTypeFarming  = "farming"
)

// Contract status constants
const (
	ContractStatusDraft     = "draft"
	ContractStatusPending   = "pending"
	ContractStatusActive    = "active"
	ContractStatusCompleted = "completed"
	ContractStatusCancelled = "cancelled"
	ContractStatusExpired   = "expired"
)

// ContractTypes lists every accepted contract type
var ContractTypes = []string{
	ContractTypeSupply, ContractTypePurchase, ContractTypeRental,
	ContractTypeService, ContractTypeLabor, ContractTypeFarming,
}

// IsValidContractType reports whether t is a known contract type
func IsValidContractType(t string) bool {
	for _, known := range ContractTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasSecondParty returns true once the second party is known
func (c *Contract) HasSecondParty() bool {
	return c.Parties.SecondPartyID != ""
}

// IsParty returns true if userID is the creator or either party
func (c *Contract) IsParty(userID string) bool {
	if userID == "" {
		return false
	}
	return c.CreatorID == userID ||
		c.Parties.FirstPartyID == userID ||
		c.Parties.SecondPartyID == userID
}

// IsFarming returns true for farming contracts
func (c *Contract) IsFarming() bool {
	return c.Type == ContractTypeFarming
}

// IsOpenTender returns true if the contract is listed for bidding
func (c *Contract) IsOpenTender() bool {
	return c.IsTender && c.Status == ContractStatusPending
}

// TenderClosed evaluates tender expiry lazily against now
func (c *Contract) TenderClosed(now time.Time) bool {
	return c.TenderEndDate != nil && !now.Before(*c.TenderEndDate)
}

// MayComplete returns true if contract can be marked completed
func (c *Contract) MayComplete() bool {
	return c.Status == ContractStatusActive
}

// MayCancel returns true if contract can be cancelled
func (c *Contract) MayCancel() bool {
	return c.Status == ContractStatusActive
}

// MayReactivate returns true if a completed or cancelled contract can be reopened
func (c *Contract) MayReactivate() bool {
	return c.Status == ContractStatusCompleted || c.Status == ContractStatusCancelled
}

// MayExpire returns true if the caller's expiry policy may expire the contract
func (c *Contract) MayExpire() bool {
	return c.Status == ContractStatusPending || c.Status == ContractStatusActive
}

// MayPublish returns true for drafts
func (c *Contract) MayPublish() bool {
	return c.Status == ContractStatusDraft
}

// ErrInvalidContract is wrapped by ValidateBasic failures
var ErrInvalidContract = errors.New("invalid contract")

// ValidateBasic checks the fields every stored contract must carry. The
// lifecycle engine runs the full rule set before it reaches the store.
func (c *Contract) ValidateBasic() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return invalid("title is required")
	case strings.TrimSpace(c.Description) == "":
		return invalid("description is required")
	case c.Value <= 0:
		return invalid("value must be greater than 0")
	case !hasNonEmptyTerm(c.Terms):
		return invalid("at least one term is required")
	case c.StartDate.IsZero() || c.EndDate.IsZero():
		return invalid("startDate and endDate are required")
	case !c.StartDate.Before(c.EndDate):
		return invalid("startDate must be before endDate")
	case c.IsTender && c.TenderEndDate != nil && c.TenderEndDate.After(c.StartDate):
		return invalid("tenderEndDate must not be after startDate")
	}
	return nil
}

func hasNonEmptyTerm(terms []string) bool {
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

type validationError struct{ reason string }

func (e *validationError) Error() string { return e.reason }
func (e *validationError) Unwrap() error { return ErrInvalidContract }

func invalid(reason string) error {
	return &validationError{reason: reason}
}

// ContractPatch is a partial update; nil fields are left untouched
type ContractPatch struct {
	Title            *string
	Description      *string
	Terms            []string
	QualityStandards *string
	PaymentTerms     *string
	DeliveryTerms    *string
	Status           *string
	ChatID           *string
	ChatAnnouncedAt  *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	ExpiredAt        *time.Time
}

// Apply merges the patch into c
func (p ContractPatch) Apply(c *Contract) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Terms != nil {
		c.Terms = p.Terms
	}
	if p.QualityStandards != nil {
		c.QualityStandards = *p.QualityStandards
	}
	if p.PaymentTerms != nil {
		c.PaymentTerms = *p.PaymentTerms
	}
	if p.DeliveryTerms != nil {
		c.DeliveryTerms = *p.DeliveryTerms
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.ChatID != nil {
		c.ChatID = *p.ChatID
	}
	if p.ChatAnnouncedAt != nil {
		c.ChatAnnouncedAt = p.ChatAnnouncedAt
	}
	if p.CompletedAt != nil {
		c.CompletedAt = p.CompletedAt
	}
	if p.CancelledAt != nil {
		c.CancelledAt = p.CancelledAt
	}
	if p.ExpiredAt != nil {
		c.ExpiredAt = p.ExpiredAt
	}
}

// Columns returns the patch as a column map for SQL stores
func (p ContractPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Terms != nil {
		cols["terms"] = datatypes.JSONSlice[string](p.Terms)
	}
	if p.QualityStandards != nil {
		cols["quality_standards"] = *p.QualityStandards
	}
	if p.PaymentTerms != nil {
		cols["payment_terms"] = *p.PaymentTerms
	}
	if p.DeliveryTerms != nil {
		cols["delivery_terms"] = *p.DeliveryTerms
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.ChatID != nil {
		cols["chat_id"] = *p.ChatID
	}
	if p.ChatAnnouncedAt != nil {
		cols["chat_announced_at"] = *p.ChatAnnouncedAt
	}
	if p.CompletedAt != nil {
		cols["completed_at"] = *p.CompletedAt
	}
	if p.CancelledAt != nil {
		cols["cancelled_at"] = *p.CancelledAt
	}
	if p.ExpiredAt != nil {
		cols["expired_at"] = *p.ExpiredAt
	}
	return cols
}
