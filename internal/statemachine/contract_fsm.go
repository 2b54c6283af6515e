package statemachine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/looplab/fsm"
)

// ErrInvalidTransition is returned when the requested event is not allowed
// from the current state
var ErrInvalidTransition = errors.New("invalid transition")

// Contract events
const (
	EventPublish    = "publish"
	EventActivate   = "activate"
	EventAward      = "award"
	EventComplete   = "complete"
	EventCancel     = "cancel"
	EventReactivate = "reactivate"
	EventExpire     = "expire"
	EventReopen     = "reopen"
)

// ContractFSM wraps a contract with its state machine
type ContractFSM struct {
	contract *models.Contract
	fsm      *fsm.FSM
}

// NewContractFSM creates a new contract state machine
func NewContractFSM(contract *models.Contract) *ContractFSM {
	cfsm := &ContractFSM{
		contract: contract,
	}

	cfsm.fsm = fsm.NewFSM(
		contract.Status,
		fsm.Events{
			// draft → pending (tender listed for bids)
			{Name: EventPublish, Src: []string{models.ContractStatusDraft}, Dst: models.ContractStatusPending},

			// draft → active (direct contract with both parties known)
			{Name: EventActivate, Src: []string{models.ContractStatusDraft}, Dst: models.ContractStatusActive},

			// pending → active (tender bid accepted)
			{Name: EventAward, Src: []string{models.ContractStatusPending}, Dst: models.ContractStatusActive},

			// active → completed
			{Name: EventComplete, Src: []string{models.ContractStatusActive}, Dst: models.ContractStatusCompleted},

			// active → cancelled
			{Name: EventCancel, Src: []string{models.ContractStatusActive}, Dst: models.ContractStatusCancelled},

			// completed/cancelled → active
			{Name: EventReactivate, Src: []string{models.ContractStatusCompleted, models.ContractStatusCancelled}, Dst: models.ContractStatusActive},

			// pending/active → expired (caller-side expiry policy)
			{Name: EventExpire, Src: []string{models.ContractStatusPending, models.ContractStatusActive}, Dst: models.ContractStatusExpired},

			// active → pending (undo of an award whose chat channel could not be opened)
			{Name: EventReopen, Src: []string{models.ContractStatusActive}, Dst: models.ContractStatusPending},
		},
		fsm.Callbacks{
			"enter_" + models.ContractStatusCompleted: func(_ context.Context, e *fsm.Event) {
				at := eventTime(e)
				cfsm.contract.CompletedAt = &at
			},
			"enter_" + models.ContractStatusCancelled: func(_ context.Context, e *fsm.Event) {
				at := eventTime(e)
				cfsm.contract.CancelledAt = &at
			},
			"enter_" + models.ContractStatusExpired: func(_ context.Context, e *fsm.Event) {
				at := eventTime(e)
				cfsm.contract.ExpiredAt = &at
			},
			EventReactivate: func(_ context.Context, _ *fsm.Event) {
				cfsm.contract.CompletedAt = nil
				cfsm.contract.CancelledAt = nil
			},
		},
	)

	return cfsm
}

func eventTime(e *fsm.Event) time.Time {
	if len(e.Args) > 0 {
		if t, ok := e.Args[0].(time.Time); ok {
			return t
		}
	}
	return time.Now()
}

func (c *ContractFSM) fire(ctx context.Context, event string, allowed bool, at time.Time) error {
	if !allowed || !c.fsm.Can(event) {
		return fmt.Errorf("%w: cannot %s contract in state %s", ErrInvalidTransition, event, c.contract.Status)
	}

	if err := c.fsm.Event(ctx, event, at); err != nil {
		return fmt.Errorf("failed to %s contract: %w", event, err)
	}

	c.contract.Status = c.fsm.Current()
	return nil
}

// Publish lists a draft tender for bidding
func (c *ContractFSM) Publish(ctx context.Context) error {
	return c.fire(ctx, EventPublish, c.contract.MayPublish() && c.contract.IsTender, time.Now())
}

// Activate starts a draft direct contract
func (c *ContractFSM) Activate(ctx context.Context) error {
	return c.fire(ctx, EventActivate, c.contract.MayPublish() && !c.contract.IsTender && c.contract.HasSecondParty(), time.Now())
}

// Award turns an open tender into an active bilateral contract
func (c *ContractFSM) Award(ctx context.Context) error {
	if err := c.fire(ctx, EventAward, c.contract.IsOpenTender() && !c.contract.HasSecondParty(), time.Now()); err != nil {
		return err
	}
	c.contract.IsTender = false
	return nil
}

// Reopen reverts an award back to an open tender
func (c *ContractFSM) Reopen(ctx context.Context) error {
	if err := c.fire(ctx, EventReopen, c.contract.ChatID == "", time.Now()); err != nil {
		return err
	}
	c.contract.IsTender = true
	return nil
}

// Complete transitions contract to completed state
func (c *ContractFSM) Complete(ctx context.Context, at time.Time) error {
	return c.fire(ctx, EventComplete, c.contract.MayComplete(), at)
}

// Cancel transitions contract to cancelled state
func (c *ContractFSM) Cancel(ctx context.Context, at time.Time) error {
	return c.fire(ctx, EventCancel, c.contract.MayCancel(), at)
}

// Reactivate moves a completed or cancelled contract back to active
func (c *ContractFSM) Reactivate(ctx context.Context, at time.Time) error {
	return c.fire(ctx, EventReactivate, c.contract.MayReactivate(), at)
}

// Expire transitions contract to expired state
func (c *ContractFSM) Expire(ctx context.Context, at time.Time) error {
	return c.fire(ctx, EventExpire, c.contract.MayExpire(), at)
}

// TransitionTo applies an owner-requested status change. Only
// active→completed, active→cancelled and completed|cancelled→active exist.
func (c *ContractFSM) TransitionTo(ctx context.Context, status string, at time.Time) error {
	switch status {
	case models.ContractStatusCompleted:
		return c.Complete(ctx, at)
	case models.ContractStatusCancelled:
		return c.Cancel(ctx, at)
	case models.ContractStatusActive:
		return c.Reactivate(ctx, at)
	default:
		return fmt.Errorf("%w: %s → %s is not allowed", ErrInvalidTransition, c.contract.Status, status)
	}
}

// Current returns the current state
func (c *ContractFSM) Current() string {
	return c.fsm.Current()
}

// Can checks if a transition is possible
func (c *ContractFSM) Can(event string) bool {
	return c.fsm.Can(event)
}
