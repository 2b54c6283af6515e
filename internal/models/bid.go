package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// ContractBid is an offer submitted against an open tender
type ContractBid struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id" bson:"id"`
	ContractID     string  `gorm:"not null;size:36;uniqueIndex:idx_bid_contract_bidder" json:"contractId" bson:"contractId"`
	BidderID       string  `gorm:"not null;uniqueIndex:idx_bid_contract_bidder" json:"bidderId" bson:"bidderId"`
	BidderUsername string  `json:"bidderUsername" bson:"bidderUsername"`
	BidderRole     string  `json:"bidderRole" bson:"bidderRole"`
	BidAmount      float64 `gorm:"not null" json:"bidAmount" bson:"bidAmount"`

	Profile CompanyProfile `gorm:"embedded;embeddedPrefix:profile_" json:"companyProfile" bson:"companyProfile"`

	Notes           string                      `gorm:"type:text" json:"notes,omitempty" bson:"notes,omitempty"`
	ParameterValues datatypes.JSONMap           `json:"parameterValues,omitempty" bson:"parameterValues,omitempty"`
	BidScore        *float64                    `json:"bidScore,omitempty" bson:"bidScore,omitempty"`
	Documents       datatypes.JSONSlice[string] `json:"documents,omitempty" bson:"documents,omitempty"`

	Status    string    `gorm:"not null;index" json:"status" bson:"status"`
	BidDate   time.Time `gorm:"not null;index" json:"bidDate" bson:"bidDate"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// TableName specifies the table name for ContractBid
func (ContractBid) TableName() string {
	return "contract_bids"
}

// CompanyProfile is the bidder's self-declared business profile
type CompanyProfile struct {
	Name            string `gorm:"column:name" json:"name" bson:"name"`
	Address         string `gorm:"column:address" json:"address,omitempty" bson:"address,omitempty"`
	ContactPerson   string `gorm:"column:contact_person" json:"contactPerson,omitempty" bson:"contactPerson,omitempty"`
	Phone           string `gorm:"column:phone" json:"phone,omitempty" bson:"phone,omitempty"`
	Email           string `gorm:"column:email" json:"email,omitempty" bson:"email,omitempty"`
	GSTNumber       string `gorm:"column:gst_number" json:"gstNumber,omitempty" bson:"gstNumber,omitempty"`
	ExperienceYears *int   `gorm:"column:experience_years" json:"experienceYears,omitempty" bson:"experienceYears,omitempty"`
}

// Bid status constants
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// Bidder role constants
const (
	RoleFarmer     = "farmer"
	RoleBuyer      = "buyer"
	RoleLandowner  = "landowner"
	RoleVendor     = "vendor"
	RoleConsultant = "consultant"
	RoleAdmin      = "admin"
)

// IsPending returns true while the bid awaits a decision
func (b *ContractBid) IsPending() bool {
	return b.Status == BidStatusPending
}

// MayAccept returns true if bid can transition to accepted
func (b *ContractBid) MayAccept() bool {
	return b.Status == BidStatusPending
}

// MayReject returns true if bid can transition to rejected
func (b *ContractBid) MayReject() bool {
	return b.Status == BidStatusPending
}

// BidSet holds a contract's bids keyed by bid id
type BidSet map[string]*ContractBid

// Sorted returns bids ordered by submission time, ties broken by id
func (s BidSet) Sorted() []*ContractBid {
	out := make([]*ContractBid, 0, len(s))
	for _, b := range s {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BidDate.Equal(out[j].BidDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].BidDate.Before(out[j].BidDate)
	})
	return out
}

// ByBidder finds the bid submitted by bidderID
func (s BidSet) ByBidder(bidderID string) (*ContractBid, bool) {
	for _, b := range s {
		if b.BidderID == bidderID {
			return b, true
		}
	}
	return nil, false
}

// HasPending returns true while any bid awaits the creator's decision
func (s BidSet) HasPending() bool {
	for _, b := range s {
		if b.IsPending() {
			return true
		}
	}
	return false
}

// MarshalJSON renders the set as a list in submission order
func (s BidSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON accepts the list form produced by MarshalJSON
func (s *BidSet) UnmarshalJSON(data []byte) error {
	var list []*ContractBid
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	set := make(BidSet, len(list))
	for _, b := range list {
		set[b.ID] = b
	}
	*s = set
	return nil
}

// BidPatch is a partial update of a bid
type BidPatch struct {
	Status   *string
	BidScore *float64
	Notes    *string
}

// Apply merges the patch into b
func (p BidPatch) Apply(b *ContractBid) {
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.BidScore != nil {
		b.BidScore = p.BidScore
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
}
