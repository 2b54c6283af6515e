package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
)

// UserInput registers or refreshes a directory record
type UserInput struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Verified bool     `json:"verified"`
	LandArea *float64 `json:"landArea,omitempty"`
	LandUnit string   `json:"landUnit,omitempty"`
}

var knownRoles = map[string]bool{
	models.RoleFarmer:     true,
	models.RoleBuyer:      true,
	models.RoleLandowner:  true,
	models.RoleVendor:     true,
	models.RoleConsultant: true,
	models.RoleAdmin:      true,
}

// UserService maintains the directory records the engine reads
type UserService struct {
	repo     repository.UserRepository
	auditSvc *AuditService
}

func NewUserService(repo repository.UserRepository, auditSvc *AuditService) *UserService {
	return &UserService{
		repo:     repo,
		auditSvc: auditSvc,
	}
}

func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("user", err)
	}
	return user, nil
}

// Register creates the record or replaces an existing one with the same id
func (s *UserService) Register(ctx context.Context, in UserInput, actor Actor) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	switch {
	case blank(in.ID):
		return nil, validationErr("id is required")
	case in.Username == "":
		return nil, validationErr("username is required")
	case !knownRoles[in.Role]:
		return nil, validationErr("unknown role %q", in.Role)
	case in.LandArea != nil && *in.LandArea < 0:
		return nil, validationErr("landArea must not be negative")
	case in.LandArea != nil && !models.IsValidLandUnit(in.LandUnit):
		return nil, validationErr("landUnit must be acre or hectare")
	}

	user := &models.User{
		ID:       in.ID,
		Username: in.Username,
		Role:     in.Role,
		Verified: in.Verified,
		LandArea: in.LandArea,
		LandUnit: in.LandUnit,
	}

	existing, err := s.repo.FindByID(ctx, user.ID)
	switch {
	case repository.IsNotFound(err):
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, storeErr("user", err)
		}
	case err != nil:
		return nil, storeErr("user", err)
	default:
		user.CreatedAt = existing.CreatedAt
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, storeErr("user", err)
		}
	}

	s.auditSvc.Log(ctx, actor.ID, models.AuditCreate, "User", user.ID, "",
		fmt.Sprintf("Directory record %s (%s) registered", user.Username, user.Role))
	return user, nil
}

// SetVerified flips the verification flag of a user
func (s *UserService) SetVerified(ctx context.Context, id string, verified bool, actor Actor) error {
	if err := s.repo.SetVerified(ctx, id, verified); err != nil {
		return storeErr("user", err)
	}
	s.auditSvc.Log(ctx, actor.ID, models.AuditStatus, "User", id, "",
		fmt.Sprintf("Verification set to %t", verified))
	return nil
}
