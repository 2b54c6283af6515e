package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Contracts ContractStore
	User      UserRepository
	Chat      ChatRepository
	Audit     AuditRepository
}

// NewRepositories creates all repository instances on the relational store
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Contracts: NewContractStore(db),
		User:      NewUserRepository(db),
		Chat:      NewChatRepository(db),
		Audit:     NewAuditRepository(db),
	}
}

// WithContractStore swaps the contract store, e.g. for the MongoDB backend
func (r *Repositories) WithContractStore(store ContractStore) *Repositories {
	r.Contracts = store
	return r
}
