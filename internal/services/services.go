package services

import (
	"github.com/farmconnect/contracts-api/internal/config"
	"github.com/farmconnect/contracts-api/internal/jobs"
	"github.com/farmconnect/contracts-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Directory *DirectoryService
	User      *UserService
	Chat      *ChatService
	Audit     *AuditService
	Contract  *ContractService
	Ledger    *LedgerService
	Export    *ExportService
	Job       *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config, clock Clock) *Services {
	var enqueuer Enqueuer
	if worker != nil {
		enqueuer = worker
	}
	auditSvc := NewAuditService(repos.Audit, enqueuer)
	directorySvc := NewDirectoryService(repos.User)
	chatSvc := NewChatService(repos.Chat)

	contractSvc := NewContractService(repos.Contracts, directorySvc, chatSvc, clock, auditSvc, EngineOptions{
		Timeout:              cfg.DependencyTimeout,
		ChannelRetryAttempts: cfg.ChannelRetryAttempts,
		ChannelRetryBackoff:  cfg.ChannelRetryBackoff,
	})
	ledgerSvc := NewLedgerService(repos.Contracts, clock, auditSvc, cfg.DependencyTimeout)

	return &Services{
		Directory: directorySvc,
		User:      NewUserService(repos.User, auditSvc),
		Chat:      chatSvc,
		Audit:     auditSvc,
		Contract:  contractSvc,
		Ledger:    ledgerSvc,
		Export:    NewExportService(ledgerSvc),
		Job:       NewJobService(worker, contractSvc),
	}
}
