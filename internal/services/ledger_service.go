package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/farmconnect/contracts-api/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// DeliveryInput is a new delivery entry
type DeliveryInput struct {
	Date       *time.Time `json:"date,omitempty"`
	Status     string     `json:"status,omitempty"`
	Quantity   float64    `json:"quantity"`
	TrackingID string     `json:"trackingId,omitempty"`
	Location   string     `json:"location,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// DeliveryMetadata is merged into a delivery on status updates
type DeliveryMetadata struct {
	Quantity   *float64 `json:"quantity,omitempty"`
	TrackingID *string  `json:"trackingId,omitempty"`
	Location   *string  `json:"location,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// PaymentInput is a new payment entry
type PaymentInput struct {
	Date      *time.Time `json:"date,omitempty"`
	Amount    float64    `json:"amount"`
	Status    string     `json:"status,omitempty"`
	Method    string     `json:"method"`
	Reference string     `json:"reference,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// PaymentMetadata is merged into a payment on status updates
type PaymentMetadata struct {
	Method    *string `json:"method,omitempty"`
	Reference *string `json:"reference,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// PaymentSummary aggregates a contract's payments. Remaining is not
// clamped; Overpaid flags a negative remainder.
type PaymentSummary struct {
	ContractValue float64 `json:"contractValue"`
	TotalPaid     float64 `json:"totalPaid"`
	Remaining     float64 `json:"remaining"`
	PendingAmount float64 `json:"pendingAmount"`
	OverdueAmount float64 `json:"overdueAmount"`
	Overpaid      bool    `json:"overpaid"`
}

// LedgerSummary is the read-only overview of one contract's ledger
type LedgerSummary struct {
	ContractID        string         `json:"contractId"`
	Title             string         `json:"title"`
	Status            string         `json:"status"`
	Progress          float64        `json:"progress"`
	Payments          PaymentSummary `json:"payments"`
	DeliveredQuantity float64        `json:"deliveredQuantity"`
	DeliveryCount     int            `json:"deliveryCount"`
	PaymentCount      int            `json:"paymentCount"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}

// LedgerService records deliveries and payments of bilateral contracts.
// Appends take no contract lock; entries of different contracts never
// contend.
type LedgerService struct {
	store    repository.ContractStore
	clock    Clock
	auditSvc *AuditService
	timeout  time.Duration
}

func NewLedgerService(store repository.ContractStore, clock Clock, auditSvc *AuditService, timeout time.Duration) *LedgerService {
	if clock == nil {
		clock = SystemClock()
	}
	return &LedgerService{store: store, clock: clock, auditSvc: auditSvc, timeout: timeout}
}

// contractFor loads the contract and checks the actor may touch its ledger
func (s *LedgerService) contractFor(ctx context.Context, contractID string, actor Actor) (*models.Contract, error) {
	var contract *models.Contract
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		contract, err = s.store.GetContract(ctx, contractID)
		return err
	})
	if err != nil {
		return nil, storeErr("contract", err)
	}
	if !contract.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, unauthorizedErr("only the contract parties can access its ledger")
	}
	return contract, nil
}

func (s *LedgerService) writableContract(ctx context.Context, contractID string, actor Actor) (*models.Contract, error) {
	contract, err := s.contractFor(ctx, contractID, actor)
	if err != nil {
		return nil, err
	}
	if !contract.HasSecondParty() {
		return nil, conflictErr(CodeNotBilateral, "ledger entries need a contract with both parties")
	}
	return contract, nil
}

// AddDelivery appends a delivery entry
func (s *LedgerService) AddDelivery(ctx context.Context, contractID string, actor Actor, in DeliveryInput) (*models.Delivery, error) {
	if in.Quantity <= 0 {
		return nil, validationErr("quantity must be greater than 0")
	}
	if in.Status == "" {
		in.Status = models.DeliveryStatusPending
	}
	if !models.IsValidDeliveryStatus(in.Status) {
		return nil, validationErr("unknown delivery status %q", in.Status)
	}
	if _, err := s.writableContract(ctx, contractID, actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	delivery := &models.Delivery{
		ContractID: contractID,
		Date:       now,
		Status:     in.Status,
		Quantity:   in.Quantity,
		TrackingID: strings.TrimSpace(in.TrackingID),
		Location:   strings.TrimSpace(in.Location),
		Notes:      in.Notes,
		CreatedAt:  now,
	}
	if in.Date != nil {
		delivery.Date = *in.Date
	}

	if err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		return s.store.AddDelivery(ctx, delivery)
	}); err != nil {
		return nil, storeErr("contract", err)
	}

	logger.Debug("delivery recorded", "contract_id", contractID, "delivery_id", delivery.ID)
	s.auditSvc.Log(ctx, actor.ID, models.AuditRecord, "Delivery", delivery.ID, contractID,
		fmt.Sprintf("Delivery of %.2f recorded as %s", delivery.Quantity, delivery.Status))
	return delivery, nil
}

// UpdateDeliveryStatus sets any status and merges the metadata
func (s *LedgerService) UpdateDeliveryStatus(ctx context.Context, contractID, deliveryID string, actor Actor, status string, meta DeliveryMetadata) (*models.Delivery, error) {
	if !models.IsValidDeliveryStatus(status) {
		return nil, validationErr("unknown delivery status %q", status)
	}
	if meta.Quantity != nil && *meta.Quantity <= 0 {
		return nil, validationErr("quantity must be greater than 0")
	}
	if _, err := s.writableContract(ctx, contractID, actor); err != nil {
		return nil, err
	}

	patch := models.DeliveryPatch{
		Status:     &status,
		Quantity:   meta.Quantity,
		TrackingID: meta.TrackingID,
		Location:   meta.Location,
		Notes:      meta.Notes,
	}
	var delivery *models.Delivery
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		delivery, err = s.store.UpdateDelivery(ctx, contractID, deliveryID, patch)
		return err
	})
	if err != nil {
		return nil, storeErr("delivery", err)
	}

	s.auditSvc.Log(ctx, actor.ID, models.AuditStatus, "Delivery", deliveryID, contractID, "Delivery status set to "+status)
	return delivery, nil
}

// AddPayment appends a payment entry
func (s *LedgerService) AddPayment(ctx context.Context, contractID string, actor Actor, in PaymentInput) (*models.Payment, error) {
	if in.Amount <= 0 {
		return nil, validationErr("amount must be greater than 0")
	}
	if blank(in.Method) {
		return nil, validationErr("method is required")
	}
	if in.Status == "" {
		in.Status = models.PaymentStatusPending
	}
	if !models.IsValidPaymentStatus(in.Status) {
		return nil, validationErr("unknown payment status %q", in.Status)
	}
	if _, err := s.writableContract(ctx, contractID, actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	payment := &models.Payment{
		ContractID: contractID,
		Date:       now,
		Amount:     in.Amount,
		Status:     in.Status,
		Method:     strings.TrimSpace(in.Method),
		Reference:  strings.TrimSpace(in.Reference),
		Notes:      in.Notes,
		CreatedAt:  now,
	}
	if in.Date != nil {
		payment.Date = *in.Date
	}

	if err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		return s.store.AddPayment(ctx, payment)
	}); err != nil {
		return nil, storeErr("contract", err)
	}

	logger.Debug("payment recorded", "contract_id", contractID, "payment_id", payment.ID)
	s.auditSvc.Log(ctx, actor.ID, models.AuditRecord, "Payment", payment.ID, contractID,
		fmt.Sprintf("Payment of %.2f recorded as %s", payment.Amount, payment.Status))
	return payment, nil
}

// UpdatePaymentStatus sets any status and merges the metadata
func (s *LedgerService) UpdatePaymentStatus(ctx context.Context, contractID, paymentID string, actor Actor, status string, meta PaymentMetadata) (*models.Payment, error) {
	if !models.IsValidPaymentStatus(status) {
		return nil, validationErr("unknown payment status %q", status)
	}
	if _, err := s.writableContract(ctx, contractID, actor); err != nil {
		return nil, err
	}

	patch := models.PaymentPatch{
		Status:    &status,
		Method:    meta.Method,
		Reference: meta.Reference,
		Notes:     meta.Notes,
	}
	var payment *models.Payment
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		payment, err = s.store.UpdatePayment(ctx, contractID, paymentID, patch)
		return err
	})
	if err != nil {
		return nil, storeErr("payment", err)
	}

	s.auditSvc.Log(ctx, actor.ID, models.AuditStatus, "Payment", paymentID, contractID, "Payment status set to "+status)
	return payment, nil
}

// ListDeliveries returns the contract's deliveries in creation order
func (s *LedgerService) ListDeliveries(ctx context.Context, contractID string, actor Actor) ([]*models.Delivery, error) {
	if _, err := s.contractFor(ctx, contractID, actor); err != nil {
		return nil, err
	}
	return s.deliveries(ctx, contractID)
}

// ListPayments returns the contract's payments in creation order
func (s *LedgerService) ListPayments(ctx context.Context, contractID string, actor Actor) ([]*models.Payment, error) {
	if _, err := s.contractFor(ctx, contractID, actor); err != nil {
		return nil, err
	}
	return s.payments(ctx, contractID)
}

func (s *LedgerService) deliveries(ctx context.Context, contractID string) ([]*models.Delivery, error) {
	var out []*models.Delivery
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		out, err = s.store.ListDeliveries(ctx, contractID)
		return err
	})
	return out, storeErr("delivery", err)
}

func (s *LedgerService) payments(ctx context.Context, contractID string) ([]*models.Payment, error) {
	var out []*models.Payment
	err := withTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		out, err = s.store.ListPayments(ctx, contractID)
		return err
	})
	return out, storeErr("payment", err)
}

// ledgerSnapshot is everything the summary and the exports render
type ledgerSnapshot struct {
	Contract   *models.Contract
	Deliveries []*models.Delivery
	Payments   []*models.Payment
	Summary    *LedgerSummary
}

func (s *LedgerService) snapshot(ctx context.Context, contractID string, actor Actor) (*ledgerSnapshot, error) {
	contract, err := s.contractFor(ctx, contractID, actor)
	if err != nil {
		return nil, err
	}

	snap := &ledgerSnapshot{Contract: contract}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Deliveries, err = s.deliveries(gctx, contractID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Payments, err = s.payments(gctx, contractID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	summary := &LedgerSummary{
		ContractID:    contract.ID,
		Title:         contract.Title,
		Status:        contract.Status,
		Progress:      ComputeProgress(contract, now),
		Payments:      ComputePaymentSummary(contract.Value, snap.Payments),
		DeliveryCount: len(snap.Deliveries),
		PaymentCount:  len(snap.Payments),
		GeneratedAt:   now,
	}
	for _, d := range snap.Deliveries {
		if d.IsDelivered() {
			summary.DeliveredQuantity += d.Quantity
		}
	}
	snap.Summary = summary
	return snap, nil
}

// Summary combines progress, the payment summary and delivered quantity
func (s *LedgerService) Summary(ctx context.Context, contractID string, actor Actor) (*LedgerSummary, error) {
	snap, err := s.snapshot(ctx, contractID, actor)
	if err != nil {
		return nil, err
	}
	if snap.Summary.Payments.Overpaid {
		logger.Warn("contract overpaid", "contract_id", contractID,
			"value", snap.Summary.Payments.ContractValue, "paid", snap.Summary.Payments.TotalPaid)
	}
	return snap.Summary, nil
}

// ComputeProgress returns the elapsed share of the contract period as a
// percentage in [0,100]. Completed contracts are 100; cancelled and expired
// ones freeze at the moment they stopped.
func ComputeProgress(c *models.Contract, now time.Time) float64 {
	switch c.Status {
	case models.ContractStatusCompleted:
		return 100
	case models.ContractStatusActive:
		return elapsedPercent(c.StartDate, c.EndDate, now)
	case models.ContractStatusCancelled:
		if c.CancelledAt != nil {
			now = *c.CancelledAt
		}
		return elapsedPercent(c.StartDate, c.EndDate, now)
	case models.ContractStatusExpired:
		if c.ExpiredAt != nil {
			now = *c.ExpiredAt
		}
		return elapsedPercent(c.StartDate, c.EndDate, now)
	}
	return 0
}

func elapsedPercent(start, end, at time.Time) float64 {
	total := end.Sub(start)
	if total <= 0 || !at.After(start) {
		return 0
	}
	if !at.Before(end) {
		return 100
	}
	pct := float64(at.Sub(start)) / float64(total) * 100
	return math.Round(pct*100) / 100
}

// ComputePaymentSummary totals completed and partial payments against the
// contract value
func ComputePaymentSummary(contractValue float64, payments []*models.Payment) PaymentSummary {
	summary := PaymentSummary{ContractValue: contractValue}
	for _, p := range payments {
		switch {
		case p.CountsAsPaid():
			summary.TotalPaid += p.Amount
		case p.Status == models.PaymentStatusOverdue:
			summary.OverdueAmount += p.Amount
		default:
			summary.PendingAmount += p.Amount
		}
	}
	summary.Remaining = contractValue - summary.TotalPaid
	summary.Overpaid = summary.Remaining < 0
	return summary
}
