package services

import (
	"context"

	"github.com/farmconnect/contracts-api/internal/jobs"
	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/farmconnect/contracts-api/pkg/logger"
)

// Enqueuer runs jobs off the request path
type Enqueuer interface {
	EnqueueAsync(job jobs.Job)
}

type AuditService struct {
	repo     repository.AuditRepository
	enqueuer Enqueuer
}

// NewAuditService creates an audit trail writer. With a nil enqueuer entries
// are written synchronously.
func NewAuditService(repo repository.AuditRepository, enqueuer Enqueuer) *AuditService {
	return &AuditService{repo: repo, enqueuer: enqueuer}
}

// Log records an audit entry in the background
func (s *AuditService) Log(ctx context.Context, actorID, action, entity, entityID, contractID, details string) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		ContractID: contractID,
		Details:    details,
	}

	write := func(ctx context.Context) error {
		return s.repo.Create(ctx, entry)
	}
	if s.enqueuer == nil {
		if err := write(ctx); err != nil {
			logger.Warn("audit write failed", "action", action, "entity_id", entityID, "error", err)
		}
		return
	}
	s.enqueuer.EnqueueAsync(write)
}

// List retrieves the audit trail of a contract
func (s *AuditService) List(ctx context.Context, contractID string) ([]models.AuditLog, error) {
	entries, err := s.repo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, storeErr("audit log", err)
	}
	return entries, nil
}
