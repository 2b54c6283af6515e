package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/farmconnect/contracts-api/internal/statemachine"
	"github.com/farmconnect/contracts-api/pkg/logger"
	"github.com/google/uuid"
)

// Steps reported by partial failures
const (
	StepContractCreated = "contract_created"
	StepBidAccepted     = "bid_accepted"
	StepChatLinked      = "chat_linked"
	StepSummaryPosted   = "summary_posted"
)

const maxVersionRetries = 3

// EngineOptions tunes dependency handling of the lifecycle engine
type EngineOptions struct {
	// Timeout bounds every store, directory and chat call. Zero disables it.
	Timeout              time.Duration
	ChannelRetryAttempts int
	ChannelRetryBackoff  time.Duration
}

// ContractService is the contract lifecycle engine. Every mutation of one
// contract is serialized in-process and guarded by the store's version
// token across processes.
type ContractService struct {
	store     repository.ContractStore
	directory Directory
	chat      ChatBridge
	clock     Clock
	auditSvc  *AuditService
	locks     *keyedMutex
	opts      EngineOptions
}

func NewContractService(
	store repository.ContractStore,
	directory Directory,
	chat ChatBridge,
	clock Clock,
	auditSvc *AuditService,
	opts EngineOptions,
) *ContractService {
	if clock == nil {
		clock = SystemClock()
	}
	if opts.ChannelRetryAttempts < 1 {
		opts.ChannelRetryAttempts = 1
	}
	if opts.ChannelRetryBackoff <= 0 {
		opts.ChannelRetryBackoff = 100 * time.Millisecond
	}
	return &ContractService{
		store:     store,
		directory: directory,
		chat:      chat,
		clock:     clock,
		auditSvc:  auditSvc,
		locks:     newKeyedMutex(),
		opts:      opts,
	}
}

// call runs fn under the dependency timeout
func (s *ContractService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTimeout(ctx, s.opts.Timeout, fn)
}

// withTimeout runs fn with a deadline of d; zero means no deadline
func withTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func (s *ContractService) load(ctx context.Context, id string) (*models.Contract, error) {
	var contract *models.Contract
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		contract, err = s.store.GetContract(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeErr("contract", err)
	}
	if contract.Bids == nil {
		contract.Bids = models.BidSet{}
	}
	return contract, nil
}

func (s *ContractService) save(ctx context.Context, contract *models.Contract, expectedVersion int, bids ...*models.ContractBid) error {
	return storeErr("contract", s.call(ctx, func(ctx context.Context) error {
		return s.store.SaveContractState(ctx, contract, expectedVersion, bids...)
	}))
}

func (s *ContractService) isVerified(ctx context.Context, userID string) (bool, error) {
	var verified bool
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		verified, err = s.directory.IsVerified(ctx, userID)
		return err
	})
	if err != nil {
		return false, dependencyErr("identity lookup", err)
	}
	return verified, nil
}

func isVersionConflict(err error) bool {
	return errors.Is(err, CodeError(KindConflict, CodeVersionConflict))
}

// mutate loads the contract, lets fn change it and saves it under the
// version token. A concurrent write from another process reloads and
// re-runs fn, so its checks always see the latest state.
func (s *ContractService) mutate(ctx context.Context, id string, fn func(c *models.Contract) ([]*models.ContractBid, error)) (*models.Contract, error) {
	for attempt := 0; ; attempt++ {
		contract, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := contract.Version

		bids, err := fn(contract)
		if err != nil {
			return nil, err
		}

		err = s.save(ctx, contract, expected, bids...)
		if err == nil {
			return contract, nil
		}
		if !isVersionConflict(err) || attempt >= maxVersionRetries {
			return nil, err
		}
		logger.Debug("contract changed concurrently, retrying", "contract_id", id, "attempt", attempt+1)
	}
}

// CreateContract validates the input and persists a new contract. Tenders
// start pending, direct contracts start active with their chat channel
// already open; drafts wait for PublishContract.
func (s *ContractService) CreateContract(ctx context.Context, in ContractInput, actor Actor) (*models.Contract, error) {
	if err := validateContractInput(&in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	contract := &models.Contract{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Type:              in.Type,
		IsTender:          in.IsTender,
		CreatorID:         actor.ID,
		CreatorRole:       actor.Role,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		TenderEndDate:     in.TenderEndDate,
		Value:             in.Value,
		Quantity:          in.Quantity,
		Unit:              in.Unit,
		PricePerUnit:      in.PricePerUnit,
		Description:       in.Description,
		Terms:             in.Terms,
		QualityStandards:  in.QualityStandards,
		PaymentTerms:      in.PaymentTerms,
		DeliveryTerms:     in.DeliveryTerms,
		FarmingDetails:    in.FarmingDetails,
		StructuredBidding: in.StructuredBidding,
		Bids:              models.BidSet{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	contract.Parties.FirstPartyID = actor.ID
	contract.Parties.FirstPartyUsername = actor.Username

	if !in.IsTender {
		if err := s.resolveSecondParty(ctx, contract, in.SecondPartyUsername, actor); err != nil {
			return nil, err
		}
	}

	verified, err := s.isVerified(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	contract.Parties.FirstPartyVerified = verified

	switch {
	case in.Draft:
		contract.Status = models.ContractStatusDraft
	case in.IsTender:
		contract.Status = models.ContractStatusPending
	default:
		contract.Status = models.ContractStatusActive
		chatID, err := s.openChannel(ctx, contract.CreatorID, contract.Parties.SecondPartyID, contract.ID)
		if err != nil {
			return nil, dependencyErr("chat bridge", err)
		}
		contract.ChatID = chatID
	}

	if err := s.call(ctx, func(ctx context.Context) error {
		return s.store.CreateContract(ctx, contract)
	}); err != nil {
		return nil, storeErr("contract", err)
	}

	logger.Info("contract created", "contract_id", contract.ID, "type", contract.Type,
		"tender", contract.IsTender, "status", contract.Status)
	s.auditSvc.Log(ctx, actor.ID, models.AuditCreate, "Contract", contract.ID, contract.ID,
		fmt.Sprintf("Contract %q created as %s", contract.Title, contract.Status))

	if contract.ChatID != "" {
		if err := s.announce(ctx, contract, contract.Value); err != nil {
			return contract, partialFailureErr([]string{StepContractCreated, StepChatLinked}, err)
		}
	}
	return contract, nil
}

func (s *ContractService) resolveSecondParty(ctx context.Context, contract *models.Contract, username string, actor Actor) error {
	username = strings.TrimSpace(username)
	if strings.EqualFold(username, actor.Username) {
		return conflictErr(CodeSelfContract, "a contract cannot name its creator as second party")
	}

	var user *models.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.directory.FindByUsername(ctx, username)
		return err
	})
	if repository.IsNotFound(err) {
		return notFoundErr("second party username")
	}
	if err != nil {
		return dependencyErr("identity lookup", err)
	}
	if user.ID == actor.ID {
		return conflictErr(CodeSelfContract, "a contract cannot name its creator as second party")
	}

	verified, err := s.isVerified(ctx, user.ID)
	if err != nil {
		return err
	}
	contract.Parties.SecondPartyID = user.ID
	contract.Parties.SecondPartyUsername = user.Username
	contract.Parties.SecondPartyVerified = verified
	return nil
}

// PublishContract lists a draft tender or activates a draft direct contract
func (s *ContractService) PublishContract(ctx context.Context, id string, actor Actor) (*models.Contract, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.CreatorID != actor.ID {
		return nil, unauthorizedErr("only the contract creator can publish it")
	}

	expected := contract.Version
	cfsm := statemachine.NewContractFSM(contract)
	if contract.IsTender {
		if err := cfsm.Publish(ctx); err != nil {
			return nil, invalidTransitionErr(err)
		}
	} else {
		if err := cfsm.Activate(ctx); err != nil {
			return nil, invalidTransitionErr(err)
		}
		chatID, err := s.openChannel(ctx, contract.CreatorID, contract.Parties.SecondPartyID, contract.ID)
		if err != nil {
			return nil, dependencyErr("chat bridge", err)
		}
		contract.ChatID = chatID
	}
	contract.UpdatedAt = s.clock.Now()

	if err := s.save(ctx, contract, expected); err != nil {
		return nil, err
	}

	logger.Info("contract published", "contract_id", contract.ID, "status", contract.Status)
	s.auditSvc.Log(ctx, actor.ID, models.AuditPublish, "Contract", contract.ID, contract.ID,
		"Contract published as "+contract.Status)

	if contract.ChatID != "" {
		if err := s.announce(ctx, contract, contract.Value); err != nil {
			return contract, partialFailureErr([]string{StepChatLinked}, err)
		}
	}
	return contract, nil
}

// UpdateContractStatus applies an owner status change. Only
// active→completed, active→cancelled and completed|cancelled→active exist.
func (s *ContractService) UpdateContractStatus(ctx context.Context, id string, actor Actor, status string) (*models.Contract, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var from string
	contract, err := s.mutate(ctx, id, func(c *models.Contract) ([]*models.ContractBid, error) {
		if !c.IsParty(actor.ID) && !actor.IsAdmin() {
			return nil, unauthorizedErr("only the contract parties can change its status")
		}
		from = c.Status
		now := s.clock.Now()
		if err := statemachine.NewContractFSM(c).TransitionTo(ctx, status, now); err != nil {
			return nil, invalidTransitionErr(err)
		}
		c.UpdatedAt = now
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("contract status changed", "contract_id", id, "from", from, "to", contract.Status)
	s.auditSvc.Log(ctx, actor.ID, models.AuditStatus, "Contract", id, id,
		fmt.Sprintf("Status changed from %s to %s", from, contract.Status))
	return contract, nil
}

// ExpireContract applies the caller's expiry policy to a pending or active
// contract
func (s *ContractService) ExpireContract(ctx context.Context, id string) (*models.Contract, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	contract, err := s.mutate(ctx, id, func(c *models.Contract) ([]*models.ContractBid, error) {
		now := s.clock.Now()
		if err := statemachine.NewContractFSM(c).Expire(ctx, now); err != nil {
			return nil, invalidTransitionErr(err)
		}
		c.UpdatedAt = now
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, models.SystemSender, models.AuditExpire, "Contract", id, id, "Contract expired")
	return contract, nil
}

// ExpireOverdueTenders expires every open tender whose bidding window has
// closed and that holds no pending bid. Tenders with pending bids stay open
// for the creator's decision. Failures on one tender do not stop the sweep.
func (s *ContractService) ExpireOverdueTenders(ctx context.Context) (int, error) {
	var overdue []*models.Contract
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		overdue, err = s.store.ListExpiredTenders(ctx, s.clock.Now())
		return err
	})
	if err != nil {
		return 0, storeErr("contract", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, c := range overdue {
		if c.Bids.HasPending() {
			continue
		}
		if _, err := s.ExpireContract(ctx, c.ID); err != nil {
			// accepted in the meantime
			if errors.Is(err, ErrInvalidState) {
				continue
			}
			errs = append(errs, fmt.Errorf("contract %s: %w", c.ID, err))
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.Info("expired overdue tenders", "count", expired)
	}
	return expired, errors.Join(errs...)
}

// GetContract returns a contract visible to the actor. Bidders on an open
// tender only see their own bid.
func (s *ContractService) GetContract(ctx context.Context, id string, actor Actor) (*models.Contract, error) {
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(contract, actor) {
		return nil, unauthorizedErr("contract is not visible to this user")
	}
	contract.Bids = visibleBids(contract, actor)
	return contract, nil
}

// ListContractsForUser returns the actor's contracts plus every open tender
func (s *ContractService) ListContractsForUser(ctx context.Context, actor Actor) ([]*models.Contract, error) {
	var contracts []*models.Contract
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		contracts, err = s.store.ListContractsForUser(ctx, actor.ID)
		return err
	})
	if err != nil {
		return nil, storeErr("contract", err)
	}
	for _, c := range contracts {
		c.Bids = visibleBids(c, actor)
	}
	return contracts, nil
}

// DeleteContract removes a contract and its sub-collections. Admin only.
func (s *ContractService) DeleteContract(ctx context.Context, id string, actor Actor) error {
	if !actor.IsAdmin() {
		return unauthorizedErr("only administrators can delete contracts")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.call(ctx, func(ctx context.Context) error {
		return s.store.DeleteContract(ctx, id)
	}); err != nil {
		return storeErr("contract", err)
	}

	logger.Warn("contract deleted", "contract_id", id, "actor_id", actor.ID)
	s.auditSvc.Log(ctx, actor.ID, models.AuditDelete, "Contract", id, id, "Contract deleted")
	return nil
}

func (s *ContractService) canView(c *models.Contract, actor Actor) bool {
	return c.IsParty(actor.ID) || actor.IsAdmin() || c.IsOpenTender() || hasBidFrom(c, actor.ID)
}

func hasBidFrom(c *models.Contract, userID string) bool {
	_, ok := c.Bids.ByBidder(userID)
	return ok
}

func visibleBids(c *models.Contract, actor Actor) models.BidSet {
	if c.CreatorID == actor.ID || actor.IsAdmin() {
		return c.Bids
	}
	own := models.BidSet{}
	if b, ok := c.Bids.ByBidder(actor.ID); ok {
		own[b.ID] = b
	}
	return own
}

// openChannel asks the chat bridge for the pair's channel, retrying with
// exponential backoff. The bridge is idempotent per pair.
func (s *ContractService) openChannel(ctx context.Context, partyA, partyB, contextID string) (string, error) {
	var channelID string
	err := retryChannel(ctx, s.opts.ChannelRetryAttempts, s.opts.ChannelRetryBackoff, func(ctx context.Context) error {
		return s.call(ctx, func(ctx context.Context) error {
			var err error
			channelID, err = s.chat.GetOrCreateChannel(ctx, partyA, partyB, contextID)
			if err != nil {
				logger.Warn("chat channel request failed", "contract_id", contextID, "error", err)
			}
			return err
		})
	})
	return channelID, err
}

// announce posts the agreement summary and records that it was posted
func (s *ContractService) announce(ctx context.Context, contract *models.Contract, amount float64) error {
	text := agreementSummary(contract, amount)
	if err := s.call(ctx, func(ctx context.Context) error {
		return s.chat.PostSystemMessage(ctx, contract.ChatID, text)
	}); err != nil {
		return dependencyErr("chat bridge", err)
	}

	expected := contract.Version
	now := s.clock.Now()
	contract.ChatAnnouncedAt = &now
	contract.UpdatedAt = now
	if err := s.save(ctx, contract, expected); err != nil {
		contract.ChatAnnouncedAt = nil
		return err
	}
	return nil
}

func agreementSummary(c *models.Contract, amount float64) string {
	return fmt.Sprintf("Contract %q (%s) agreed between %s and %s for %.2f, running %s to %s.",
		c.Title, c.Type,
		c.Parties.FirstPartyUsername, c.Parties.SecondPartyUsername,
		amount,
		c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
}
