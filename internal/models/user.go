package models

import (
	"time"
)

// User is the directory record the engine consults for identity, role,
// verification and land holdings. Accounts are managed elsewhere.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id" bson:"_id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username" bson:"username"`
	Role      string    `gorm:"not null;default:farmer" json:"role" bson:"role"`
	Verified  bool      `gorm:"default:false" json:"verified" bson:"verified"`
	LandArea  *float64  `json:"landArea,omitempty" bson:"landArea,omitempty"`
	LandUnit  string    `json:"landUnit,omitempty" bson:"landUnit,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin returns true if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LandIn returns the user's declared land in unit, or false if none is on record
func (u *User) LandIn(unit string) (float64, bool) {
	if u.LandArea == nil || u.LandUnit == "" {
		return 0, false
	}
	v, err := ConvertLandArea(*u.LandArea, u.LandUnit, unit)
	if err != nil {
		return 0, false
	}
	return v, true
}
