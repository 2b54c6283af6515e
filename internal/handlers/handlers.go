package handlers

import (
	"github.com/farmconnect/contracts-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health   *HealthHandler
	Contract *ContractHandler
	Bid      *BidHandler
	Ledger   *LedgerHandler
	User     *UserHandler
	Audit    *AuditHandler
	Chat     *ChatHandler
	Job      *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(),
		Contract: NewContractHandler(svcs.Contract),
		Bid:      NewBidHandler(svcs.Contract),
		Ledger:   NewLedgerHandler(svcs.Ledger, svcs.Export),
		User:     NewUserHandler(svcs.User),
		Audit:    NewAuditHandler(svcs.Audit, svcs.Contract),
		Chat:     NewChatHandler(svcs.Chat, svcs.Contract),
		Job:      NewJobHandler(svcs.Job),
	}
}
