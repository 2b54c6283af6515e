package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func activeSupply(t *testing.T, f *fixture) *models.Contract {
	t.Helper()
	c, err := f.engine.CreateContract(context.Background(), supplyInput("ravi"), actorOf(buyerUser))
	require.NoError(t, err)
	require.Equal(t, models.ContractStatusActive, c.Status)
	return c
}

func TestComputePaymentSummary(t *testing.T) {
	payments := []*models.Payment{
		{Amount: 2000, Status: models.PaymentStatusCompleted},
		{Amount: 1000, Status: models.PaymentStatusPartial},
		{Amount: 500, Status: models.PaymentStatusPending},
		{Amount: 250, Status: models.PaymentStatusOverdue},
	}

	summary := ComputePaymentSummary(10000, payments)
	assert.Equal(t, 3000.0, summary.TotalPaid)
	assert.Equal(t, 7000.0, summary.Remaining)
	assert.Equal(t, 500.0, summary.PendingAmount)
	assert.Equal(t, 250.0, summary.OverdueAmount)
	assert.False(t, summary.Overpaid)

	over := ComputePaymentSummary(1000, payments)
	assert.Equal(t, -2000.0, over.Remaining)
	assert.True(t, over.Overpaid)

	empty := ComputePaymentSummary(500, nil)
	assert.Equal(t, 500.0, empty.Remaining)
}

func TestComputeProgress(t *testing.T) {
	start := baseTime
	end := baseTime.Add(100 * 24 * time.Hour)
	quarter := baseTime.Add(25 * 24 * time.Hour)
	half := baseTime.Add(50 * 24 * time.Hour)

	tests := []struct {
		name   string
		status string
		now    time.Time
		mutate func(c *models.Contract)
		want   float64
	}{
		{"active quarter", models.ContractStatusActive, quarter, nil, 25},
		{"active before start", models.ContractStatusActive, start.Add(-time.Hour), nil, 0},
		{"active after end", models.ContractStatusActive, end.Add(time.Hour), nil, 100},
		{"completed early", models.ContractStatusCompleted, quarter, nil, 100},
		{"pending", models.ContractStatusPending, half, nil, 0},
		{"draft", models.ContractStatusDraft, half, nil, 0},
		{"cancelled freezes", models.ContractStatusCancelled, end, func(c *models.Contract) { c.CancelledAt = &quarter }, 25},
		{"expired freezes", models.ContractStatusExpired, end, func(c *models.Contract) { c.ExpiredAt = &half }, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Contract{Status: tt.status, StartDate: start, EndDate: end}
			if tt.mutate != nil {
				tt.mutate(c)
			}
			assert.Equal(t, tt.want, ComputeProgress(c, tt.now))
		})
	}
}

func TestLedger_RequiresBilateralContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender, err := f.engine.CreateContract(ctx, farmingTenderInput(5), actorOf(buyerUser))
	require.NoError(t, err)

	_, err = f.ledger.AddDelivery(ctx, tender.ID, actorOf(buyerUser), DeliveryInput{Quantity: 10})
	assert.ErrorIs(t, err, CodeError(KindConflict, CodeNotBilateral))

	_, err = f.ledger.AddPayment(ctx, tender.ID, actorOf(buyerUser), PaymentInput{Amount: 10, Method: "upi"})
	assert.ErrorIs(t, err, CodeError(KindConflict, CodeNotBilateral))

	_, err = f.ledger.AddDelivery(ctx, "missing", actorOf(buyerUser), DeliveryInput{Quantity: 10})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)

	_, err := f.ledger.AddDelivery(ctx, c.ID, actorOf(vendorUser), DeliveryInput{Quantity: 10})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.ListPayments(ctx, c.ID, actorOf(farmerThree))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.Summary(ctx, c.ID, actorOf(vendorUser))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.AddDelivery(ctx, c.ID, actorOf(farmerSix), DeliveryInput{Quantity: 10})
	assert.NoError(t, err)

	_, err = f.ledger.Summary(ctx, c.ID, actorOf(adminUser))
	assert.NoError(t, err)
}

func TestLedger_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)
	buyer := actorOf(buyerUser)

	_, err := f.ledger.AddDelivery(ctx, c.ID, buyer, DeliveryInput{Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.AddDelivery(ctx, c.ID, buyer, DeliveryInput{Quantity: 5, Status: "lost"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.AddPayment(ctx, c.ID, buyer, PaymentInput{Amount: -1, Method: "upi"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.AddPayment(ctx, c.ID, buyer, PaymentInput{Amount: 100, Method: " "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.AddPayment(ctx, c.ID, buyer, PaymentInput{Amount: 100, Method: "upi", Status: "refunded"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedger_DeliveryLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)
	buyer := actorOf(buyerUser)

	d, err := f.ledger.AddDelivery(ctx, c.ID, buyer, DeliveryInput{Quantity: 20, TrackingID: " TRK-1 "})
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusPending, d.Status)
	assert.Equal(t, "TRK-1", d.TrackingID)
	assert.Equal(t, baseTime, d.Date)

	updated, err := f.ledger.UpdateDeliveryStatus(ctx, c.ID, d.ID, buyer, models.DeliveryStatusDelivered,
		DeliveryMetadata{Location: ptr("Warehouse 3")})
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusDelivered, updated.Status)
	assert.Equal(t, "Warehouse 3", updated.Location)
	assert.Equal(t, "TRK-1", updated.TrackingID)

	// any status may follow any other
	back, err := f.ledger.UpdateDeliveryStatus(ctx, c.ID, d.ID, buyer, models.DeliveryStatusPending, DeliveryMetadata{})
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusPending, back.Status)

	_, err = f.ledger.UpdateDeliveryStatus(ctx, c.ID, "missing", buyer, models.DeliveryStatusDelivered, DeliveryMetadata{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.ledger.UpdateDeliveryStatus(ctx, c.ID, d.ID, buyer, "teleported", DeliveryMetadata{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedger_PaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)
	buyer := actorOf(buyerUser)

	p, err := f.ledger.AddPayment(ctx, c.ID, buyer, PaymentInput{Amount: 3000, Method: "bank_transfer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)

	updated, err := f.ledger.UpdatePaymentStatus(ctx, c.ID, p.ID, actorOf(farmerSix), models.PaymentStatusCompleted,
		PaymentMetadata{Reference: ptr("UTR-991")})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Status)
	assert.Equal(t, "UTR-991", updated.Reference)
	assert.Equal(t, "bank_transfer", updated.Method)

	payments, err := f.ledger.ListPayments(ctx, c.ID, buyer)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusCompleted, payments[0].Status)
}

func TestLedger_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)
	buyer := actorOf(buyerUser)

	_, err := f.ledger.AddPayment(ctx, c.ID, buyer, PaymentInput{Amount: 3000, Method: "upi", Status: models.PaymentStatusCompleted})
	require.NoError(t, err)
	_, err = f.ledger.AddPayment(ctx, c.ID, buyer, PaymentInput{Amount: 1500, Method: "upi"})
	require.NoError(t, err)
	_, err = f.ledger.AddDelivery(ctx, c.ID, buyer, DeliveryInput{Quantity: 10, Status: models.DeliveryStatusDelivered})
	require.NoError(t, err)
	_, err = f.ledger.AddDelivery(ctx, c.ID, buyer, DeliveryInput{Quantity: 5, Status: models.DeliveryStatusInTransit})
	require.NoError(t, err)

	f.clock.Advance(25 * 24 * time.Hour)
	summary, err := f.ledger.Summary(ctx, c.ID, actorOf(farmerSix))
	require.NoError(t, err)

	assert.Equal(t, c.ID, summary.ContractID)
	assert.Equal(t, 25.0, summary.Progress)
	assert.Equal(t, 3000.0, summary.Payments.TotalPaid)
	assert.Equal(t, 7000.0, summary.Payments.Remaining)
	assert.Equal(t, 1500.0, summary.Payments.PendingAmount)
	assert.Equal(t, 10.0, summary.DeliveredQuantity)
	assert.Equal(t, 2, summary.DeliveryCount)
	assert.Equal(t, 2, summary.PaymentCount)
	assert.Equal(t, f.clock.Now(), summary.GeneratedAt)

	_, err = f.engine.UpdateContractStatus(ctx, c.ID, buyer, models.ContractStatusCompleted)
	require.NoError(t, err)
	summary, err = f.ledger.Summary(ctx, c.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.Progress)
}

func TestLedger_SummaryOverpaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)

	_, err := f.ledger.AddPayment(ctx, c.ID, actorOf(buyerUser), PaymentInput{Amount: 12000, Method: "upi", Status: models.PaymentStatusCompleted})
	require.NoError(t, err)

	summary, err := f.ledger.Summary(ctx, c.ID, actorOf(buyerUser))
	require.NoError(t, err)
	assert.True(t, summary.Payments.Overpaid)
	assert.Equal(t, -2000.0, summary.Payments.Remaining)
}

func TestLedger_CancelledProgressFreezes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)

	f.clock.Advance(25 * 24 * time.Hour)
	_, err := f.engine.UpdateContractStatus(ctx, c.ID, actorOf(farmerSix), models.ContractStatusCancelled)
	require.NoError(t, err)

	f.clock.Advance(50 * 24 * time.Hour)
	summary, err := f.ledger.Summary(ctx, c.ID, actorOf(buyerUser))
	require.NoError(t, err)
	assert.Equal(t, 25.0, summary.Progress)
}

func TestLedger_ConcurrentAppendsAcrossContracts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := activeSupply(t, f)
	second := activeSupply(t, f)

	const perContract = 20
	var wg sync.WaitGroup
	for _, c := range []*models.Contract{first, second} {
		for i := 0; i < perContract; i++ {
			wg.Add(2)
			go func(id string, n int) {
				defer wg.Done()
				_, err := f.ledger.AddDelivery(ctx, id, actorOf(buyerUser), DeliveryInput{Quantity: float64(n + 1)})
				assert.NoError(t, err)
			}(c.ID, i)
			go func(id string) {
				defer wg.Done()
				_, err := f.ledger.AddPayment(ctx, id, actorOf(farmerSix), PaymentInput{Amount: 10, Method: "cash"})
				assert.NoError(t, err)
			}(c.ID)
		}
	}
	wg.Wait()

	for _, c := range []*models.Contract{first, second} {
		deliveries, err := f.ledger.ListDeliveries(ctx, c.ID, actorOf(buyerUser))
		require.NoError(t, err)
		assert.Len(t, deliveries, perContract)

		payments, err := f.ledger.ListPayments(ctx, c.ID, actorOf(buyerUser))
		require.NoError(t, err)
		assert.Len(t, payments, perContract)
	}
}

func TestExportService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := activeSupply(t, f)
	buyer := actorOf(buyerUser)

	_, err := f.ledger.AddDelivery(ctx, c.ID, buyer, DeliveryInput{Quantity: 12, Status: models.DeliveryStatusDelivered, TrackingID: "TRK-7"})
	require.NoError(t, err)
	_, err = f.ledger.AddPayment(ctx, c.ID, buyer, PaymentInput{Amount: 2500, Method: "upi", Reference: "UTR-1", Status: models.PaymentStatusCompleted})
	require.NoError(t, err)

	export := NewExportService(f.ledger)

	t.Run("csv", func(t *testing.T) {
		data, name, err := export.ExportCSV(ctx, c.ID, buyer)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ledger_%s_2026-03-01.csv", c.ID), name)

		text := string(data)
		assert.True(t, strings.HasPrefix(text, "Contract Ledger,Fertilizer supply"))
		assert.Contains(t, text, "Total Paid,2500.00")
		assert.Contains(t, text, "Remaining,7500.00")
		assert.Contains(t, text, "TRK-7")
		assert.Contains(t, text, "UTR-1")
	})

	t.Run("xlsx", func(t *testing.T) {
		data, name, err := export.ExportXLSX(ctx, c.ID, buyer)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ledger_%s_2026-03-01.xlsx", c.ID), name)

		wb, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer wb.Close()

		assert.Equal(t, []string{"Summary", "Deliveries", "Payments"}, wb.GetSheetList())

		title, err := wb.GetCellValue("Summary", "B1")
		require.NoError(t, err)
		assert.Equal(t, "Fertilizer supply", title)

		rows, err := wb.GetRows("Deliveries")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "TRK-7", rows[1][3])

		rows, err = wb.GetRows("Payments")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "upi", rows[1][3])
	})

	t.Run("unauthorized", func(t *testing.T) {
		_, _, err := export.ExportXLSX(ctx, c.ID, actorOf(vendorUser))
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
