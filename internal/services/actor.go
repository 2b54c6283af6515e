package services

import "github.com/farmconnect/contracts-api/internal/models"

// Actor is the already-authenticated caller of an operation
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin returns true for administrators
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
