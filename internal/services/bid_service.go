package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/farmconnect/contracts-api/internal/statemachine"
	"github.com/farmconnect/contracts-api/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SubmitBid appends a pending bid to an open tender. Eligibility is checked
// in a fixed order so the caller always sees the same reason.
func (s *ContractService) SubmitBid(ctx context.Context, contractID string, actor Actor, in BidInput) (*models.ContractBid, error) {
	unlock := s.locks.Lock(contractID)
	defer unlock()

	var bid *models.ContractBid
	_, err := s.mutate(ctx, contractID, func(c *models.Contract) ([]*models.ContractBid, error) {
		now := s.clock.Now()
		if err := s.checkBidEligibility(ctx, c, actor, now); err != nil {
			return nil, err
		}
		if err := validateBidInput(&in); err != nil {
			return nil, err
		}
		if err := s.checkQualifications(ctx, c, actor, &in); err != nil {
			return nil, err
		}
		if err := validateParameterValues(c.StructuredBidding, in.ParameterValues); err != nil {
			return nil, err
		}

		bid = &models.ContractBid{
			ID:             uuid.NewString(),
			ContractID:     c.ID,
			BidderID:       actor.ID,
			BidderUsername: actor.Username,
			BidderRole:     actor.Role,
			BidAmount:      in.BidAmount,
			Profile:        in.CompanyProfile,
			Notes:          strings.TrimSpace(in.Notes),
			BidScore:       scoreBid(c.StructuredBidding, in.ParameterValues),
			Status:         models.BidStatusPending,
			BidDate:        now,
			UpdatedAt:      now,
		}
		if len(in.ParameterValues) > 0 {
			bid.ParameterValues = datatypes.JSONMap(in.ParameterValues)
		}
		if len(in.Documents) > 0 {
			bid.Documents = datatypes.JSONSlice[string](in.Documents)
		}
		c.UpdatedAt = now
		return []*models.ContractBid{bid}, nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflictErr(CodeAlreadyBid, "bidder has already submitted a bid on this contract")
	}
	if err != nil {
		return nil, err
	}

	logger.Info("bid submitted", "contract_id", contractID, "bid_id", bid.ID, "bidder_id", actor.ID)
	s.auditSvc.Log(ctx, actor.ID, models.AuditBid, "Bid", bid.ID, contractID,
		fmt.Sprintf("Bid of %.2f submitted", bid.BidAmount))
	return bid, nil
}

// AcceptBid awards the tender to one bid and opens the chat channel between
// creator and bidder. Calling it again for the same bid after a partial
// failure resumes the missing steps.
func (s *ContractService) AcceptBid(ctx context.Context, contractID, bidID string, actor Actor) (string, error) {
	unlock := s.locks.Lock(contractID)
	defer unlock()

	contract, err := s.load(ctx, contractID)
	if err != nil {
		return "", err
	}
	if contract.CreatorID != actor.ID {
		return "", unauthorizedErr("only the contract creator can accept bids")
	}
	bid, ok := contract.Bids[bidID]
	if !ok {
		return "", notFoundErr("bid")
	}

	if bid.Status == models.BidStatusAccepted && contract.Parties.SecondPartyID == bid.BidderID {
		logger.Info("resuming bid acceptance", "contract_id", contractID, "bid_id", bidID)
		return s.completeAcceptance(ctx, contract, bid)
	}

	switch {
	case contract.HasSecondParty():
		return "", conflictErr(CodeSecondPartyAlreadySet, "contract already has a second party")
	case !contract.IsTender:
		return "", conflictErr(CodeNotATender, "contract is not a tender")
	case contract.Status != models.ContractStatusPending:
		return "", invalidTransitionErr(fmt.Errorf("%w: contract is %s", statemachine.ErrInvalidTransition, contract.Status))
	case !bid.MayAccept():
		return "", invalidTransitionErr(fmt.Errorf("%w: bid is %s", statemachine.ErrInvalidTransition, bid.Status))
	}

	verified, err := s.isVerified(ctx, bid.BidderID)
	if err != nil {
		return "", err
	}

	// Step 1: one guarded write for bid, parties and status
	expected := contract.Version
	now := s.clock.Now()
	if err := statemachine.NewContractFSM(contract).Award(ctx); err != nil {
		return "", invalidTransitionErr(err)
	}
	if err := statemachine.NewBidFSM(bid).Accept(ctx); err != nil {
		return "", invalidTransitionErr(err)
	}
	bid.UpdatedAt = now
	contract.Parties.SecondPartyID = bid.BidderID
	contract.Parties.SecondPartyUsername = bid.BidderUsername
	contract.Parties.SecondPartyVerified = verified
	contract.UpdatedAt = now

	if err := s.save(ctx, contract, expected, bid); err != nil {
		return "", err
	}

	logger.Info("bid accepted", "contract_id", contractID, "bid_id", bidID, "bidder_id", bid.BidderID)
	s.auditSvc.Log(ctx, actor.ID, models.AuditAccept, "Bid", bidID, contractID,
		fmt.Sprintf("Bid of %.2f by %s accepted", bid.BidAmount, bid.BidderUsername))

	return s.completeAcceptance(ctx, contract, bid)
}

// completeAcceptance runs the chat steps that follow an accepted bid,
// skipping the ones already recorded on the contract
func (s *ContractService) completeAcceptance(ctx context.Context, contract *models.Contract, bid *models.ContractBid) (string, error) {
	steps := []string{StepBidAccepted}

	if contract.ChatID == "" {
		// Step 2: channel
		chatID, err := s.openChannel(ctx, contract.CreatorID, bid.BidderID, contract.ID)
		if err != nil {
			if rerr := s.revertAcceptance(ctx, contract, bid); rerr != nil {
				logger.Error("failed to revert bid acceptance", "contract_id", contract.ID, "bid_id", bid.ID, "error", rerr)
				return "", partialFailureErr(steps, fmt.Errorf("open chat channel: %w; revert: %v", err, rerr))
			}
			logger.Warn("bid acceptance reverted, chat channel unavailable", "contract_id", contract.ID, "bid_id", bid.ID)
			return "", dependencyErr("chat bridge", err)
		}

		// Step 3: link
		expected := contract.Version
		contract.ChatID = chatID
		contract.UpdatedAt = s.clock.Now()
		if err := s.save(ctx, contract, expected); err != nil {
			contract.ChatID = ""
			return "", partialFailureErr(steps, err)
		}
	}
	steps = append(steps, StepChatLinked)

	// Step 4: summary
	if contract.ChatAnnouncedAt == nil {
		if err := s.announce(ctx, contract, bid.BidAmount); err != nil {
			return "", partialFailureErr(steps, err)
		}
	}
	return contract.ChatID, nil
}

// revertAcceptance undoes step 1 once the chat channel cannot be opened.
// It runs detached from the caller's cancellation.
func (s *ContractService) revertAcceptance(ctx context.Context, contract *models.Contract, bid *models.ContractBid) error {
	ctx = context.WithoutCancel(ctx)

	expected := contract.Version
	if err := statemachine.NewBidFSM(bid).Revert(ctx); err != nil {
		return err
	}
	if err := statemachine.NewContractFSM(contract).Reopen(ctx); err != nil {
		return err
	}
	now := s.clock.Now()
	bid.UpdatedAt = now
	contract.Parties.SecondPartyID = ""
	contract.Parties.SecondPartyUsername = ""
	contract.Parties.SecondPartyVerified = false
	contract.UpdatedAt = now
	return s.save(ctx, contract, expected, bid)
}

// RejectBid marks a pending bid rejected. Nothing else changes.
func (s *ContractService) RejectBid(ctx context.Context, contractID, bidID string, actor Actor) (*models.ContractBid, error) {
	unlock := s.locks.Lock(contractID)
	defer unlock()

	var bid *models.ContractBid
	_, err := s.mutate(ctx, contractID, func(c *models.Contract) ([]*models.ContractBid, error) {
		if c.CreatorID != actor.ID {
			return nil, unauthorizedErr("only the contract creator can reject bids")
		}
		var ok bool
		if bid, ok = c.Bids[bidID]; !ok {
			return nil, notFoundErr("bid")
		}
		if err := statemachine.NewBidFSM(bid).Reject(ctx); err != nil {
			return nil, invalidTransitionErr(err)
		}
		now := s.clock.Now()
		bid.UpdatedAt = now
		c.UpdatedAt = now
		return []*models.ContractBid{bid}, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("bid rejected", "contract_id", contractID, "bid_id", bidID)
	s.auditSvc.Log(ctx, actor.ID, models.AuditReject, "Bid", bidID, contractID, "Bid rejected")
	return bid, nil
}

// ListBids returns the bids visible to the actor ordered by submission
// time. The creator sees every bid, bidders only their own.
func (s *ContractService) ListBids(ctx context.Context, contractID string, actor Actor) ([]*models.ContractBid, error) {
	contract, err := s.load(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !s.canView(contract, actor) {
		return nil, unauthorizedErr("contract is not visible to this user")
	}
	return visibleBids(contract, actor).Sorted(), nil
}
