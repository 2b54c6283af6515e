package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/looplab/fsm"
)

// Bid events
const (
	EventAccept = "accept"
	EventReject = "reject"
	EventRevert = "revert"
)

// BidFSM wraps a bid with its state machine
type BidFSM struct {
	bid *models.ContractBid
	fsm *fsm.FSM
}

// NewBidFSM creates a new bid state machine
func NewBidFSM(bid *models.ContractBid) *BidFSM {
	bfsm := &BidFSM{
		bid: bid,
	}

	bfsm.fsm = fsm.NewFSM(
		bid.Status,
		fsm.Events{
			// pending → accepted
			{Name: EventAccept, Src: []string{models.BidStatusPending}, Dst: models.BidStatusAccepted},

			// pending → rejected
			{Name: EventReject, Src: []string{models.BidStatusPending}, Dst: models.BidStatusRejected},

			// accepted → pending (compensation only, never exposed to callers)
			{Name: EventRevert, Src: []string{models.BidStatusAccepted}, Dst: models.BidStatusPending},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				bfsm.bid.UpdatedAt = eventTime(e)
			},
		},
	)

	return bfsm
}

func (b *BidFSM) fire(ctx context.Context, event string, allowed bool) error {
	if !allowed || !b.fsm.Can(event) {
		return fmt.Errorf("%w: cannot %s bid in state %s", ErrInvalidTransition, event, b.bid.Status)
	}

	if err := b.fsm.Event(ctx, event, time.Now()); err != nil {
		return fmt.Errorf("failed to %s bid: %w", event, err)
	}

	b.bid.Status = b.fsm.Current()
	return nil
}

// Accept transitions bid to accepted state
func (b *BidFSM) Accept(ctx context.Context) error {
	return b.fire(ctx, EventAccept, b.bid.MayAccept())
}

// Reject transitions bid to rejected state
func (b *BidFSM) Reject(ctx context.Context) error {
	return b.fire(ctx, EventReject, b.bid.MayReject())
}

// Revert puts an accepted bid back to pending
func (b *BidFSM) Revert(ctx context.Context) error {
	return b.fire(ctx, EventRevert, b.bid.Status == models.BidStatusAccepted)
}

// Current returns the current state
func (b *BidFSM) Current() string {
	return b.fsm.Current()
}
