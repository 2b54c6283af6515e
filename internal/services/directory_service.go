package services

import (
	"context"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
)

// Directory resolves identities, verification and land holdings
type Directory interface {
	IsVerified(ctx context.Context, userID string) (bool, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
}

// DirectoryService is the Directory backed by the users table
type DirectoryService struct {
	repo repository.UserRepository
}

// NewDirectoryService creates a directory over the user repository
func NewDirectoryService(repo repository.UserRepository) *DirectoryService {
	return &DirectoryService{repo: repo}
}

// IsVerified reports whether the user is verified; unknown users are not
func (s *DirectoryService) IsVerified(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.Verified, nil
}

// FindByUsername looks a user up by username, case-insensitively
func (s *DirectoryService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// FindByID looks a user up by id
func (s *DirectoryService) FindByID(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.FindByID(ctx, userID)
}
