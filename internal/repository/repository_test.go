package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farmconnect/contracts-api/internal/database"
	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

var baseTime = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func sampleContract(creator string, tender bool) *models.Contract {
	c := &models.Contract{
		Title:       "Basmati supply",
		Type:        models.ContractTypeSupply,
		IsTender:    tender,
		CreatorID:   creator,
		CreatorRole: models.RoleBuyer,
		Parties:     models.Parties{FirstPartyID: creator, FirstPartyUsername: creator},
		StartDate:   baseTime.AddDate(0, 0, 10),
		EndDate:     baseTime.AddDate(0, 3, 0),
		Value:       10000,
		Description: "500 quintal of basmati",
		Terms:       []string{"Moisture below 14%"},
		Status:      models.ContractStatusActive,
		CreatedAt:   baseTime,
	}
	if tender {
		end := baseTime.AddDate(0, 0, 7)
		c.TenderEndDate = &end
		c.Status = models.ContractStatusPending
	}
	return c
}

func TestContractStore_CreateAndGet(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	c := sampleContract("buyer-1", true)
	c.FarmingDetails = &models.FarmingDetails{CropType: "rice", LandArea: 5, LandUnit: models.LandUnitAcre}
	require.NoError(t, store.CreateContract(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Title, got.Title)
	assert.Equal(t, []string{"Moisture below 14%"}, []string(got.Terms))
	require.NotNil(t, got.FarmingDetails)
	assert.Equal(t, 5.0, got.FarmingDetails.LandArea)
	assert.Empty(t, got.Bids)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))

	_, err = store.GetContract(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContractStore_CreateRejectsInvalid(t *testing.T) {
	store := NewContractStore(newTestDB(t))

	c := sampleContract("buyer-1", false)
	c.Terms = nil
	err := store.CreateContract(context.Background(), c)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestContractStore_UpdateContract(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	c := sampleContract("buyer-1", false)
	require.NoError(t, store.CreateContract(ctx, c))

	title := "Basmati supply (revised)"
	require.NoError(t, store.UpdateContract(ctx, c.ID, models.ContractPatch{Title: &title}))

	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, 2, got.Version)

	err = store.UpdateContract(ctx, "missing", models.ContractPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContractStore_SaveContractStateChecksVersion(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	c := sampleContract("buyer-1", true)
	require.NoError(t, store.CreateContract(ctx, c))

	bid := &models.ContractBid{
		ID: "bid-1", BidderID: "farmer-1", BidAmount: 9000,
		Status: models.BidStatusPending, BidDate: baseTime.Add(time.Hour),
	}
	require.NoError(t, store.SaveContractState(ctx, c, 1, bid))
	assert.Equal(t, 2, c.Version)
	assert.Contains(t, c.Bids, "bid-1")

	stale := *c
	stale.Title = "stale write"
	err := store.SaveContractState(ctx, &stale, 1)
	assert.True(t, IsVersionConflict(err))
	assert.Equal(t, 1, stale.Version)

	c.Status = models.ContractStatusActive
	c.IsTender = false
	c.Parties.SecondPartyID = "farmer-1"
	bid.Status = models.BidStatusAccepted
	require.NoError(t, store.SaveContractState(ctx, c, 2, bid))

	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "farmer-1", got.Parties.SecondPartyID)
	assert.False(t, got.IsTender)
	assert.Equal(t, models.BidStatusAccepted, got.Bids["bid-1"].Status)

	dup := &models.ContractBid{ID: "bid-2", BidderID: "farmer-1", BidAmount: 1, Status: models.BidStatusPending, BidDate: baseTime}
	err = store.SaveContractState(ctx, got, 3, dup)
	assert.ErrorIs(t, err, ErrDuplicate)

	missing := sampleContract("x", false)
	missing.ID = "missing"
	err = store.SaveContractState(ctx, missing, 1)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsVersionConflict(err))
}

func TestContractStore_ConcurrentSavesOnlyOneWins(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	c := sampleContract("buyer-1", true)
	require.NoError(t, store.CreateContract(ctx, c))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			copyOf := *c
			copyOf.Parties.SecondPartyID = fmt.Sprintf("farmer-%d", i)
			errs[i] = store.SaveContractState(ctx, &copyOf, 1)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrVersionConflict)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestContractStore_ListContractsForUser(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	own := sampleContract("buyer-1", false)
	own.Parties.SecondPartyID = "farmer-2"
	own.CreatedAt = baseTime
	require.NoError(t, store.CreateContract(ctx, own))

	ownTender := sampleContract("buyer-1", true)
	ownTender.CreatedAt = baseTime.Add(time.Hour)
	require.NoError(t, store.CreateContract(ctx, ownTender))

	otherTender := sampleContract("buyer-2", true)
	otherTender.CreatedAt = baseTime.Add(2 * time.Hour)
	require.NoError(t, store.CreateContract(ctx, otherTender))

	unrelated := sampleContract("buyer-3", false)
	unrelated.Parties.SecondPartyID = "farmer-9"
	require.NoError(t, store.CreateContract(ctx, unrelated))

	list, err := store.ListContractsForUser(ctx, "buyer-1")
	require.NoError(t, err)
	ids := []string{}
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{otherTender.ID, ownTender.ID, own.ID}, ids)

	list, err = store.ListContractsForUser(ctx, "farmer-2")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestContractStore_ListExpiredTenders(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	tender := sampleContract("buyer-1", true)
	require.NoError(t, store.CreateContract(ctx, tender))
	require.NoError(t, store.CreateContract(ctx, sampleContract("buyer-1", false)))

	list, err := store.ListExpiredTenders(ctx, baseTime.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = store.ListExpiredTenders(ctx, baseTime.AddDate(0, 0, 8))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tender.ID, list[0].ID)
}

func TestContractStore_ListExpiredTendersSkipsPendingBids(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	tender := sampleContract("buyer-1", true)
	require.NoError(t, store.CreateContract(ctx, tender))
	bid := &models.ContractBid{ContractID: tender.ID, BidderID: "farmer-1", BidAmount: 9000, BidDate: baseTime.Add(time.Hour)}
	require.NoError(t, store.AddBid(ctx, bid))

	list, err := store.ListExpiredTenders(ctx, baseTime.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.Empty(t, list)

	status := models.BidStatusRejected
	_, err = store.UpdateBid(ctx, tender.ID, bid.ID, models.BidPatch{Status: &status})
	require.NoError(t, err)

	list, err = store.ListExpiredTenders(ctx, baseTime.AddDate(0, 0, 8))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tender.ID, list[0].ID)
}

func TestContractStore_Bids(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	c := sampleContract("buyer-1", true)
	require.NoError(t, store.CreateContract(ctx, c))

	late := &models.ContractBid{ContractID: c.ID, BidderID: "farmer-2", BidAmount: 9500, BidDate: baseTime.Add(2 * time.Hour)}
	early := &models.ContractBid{ContractID: c.ID, BidderID: "farmer-1", BidAmount: 9000, BidDate: baseTime.Add(time.Hour)}
	require.NoError(t, store.AddBid(ctx, late))
	require.NoError(t, store.AddBid(ctx, early))
	assert.Equal(t, models.BidStatusPending, early.Status)

	err := store.AddBid(ctx, &models.ContractBid{ContractID: c.ID, BidderID: "farmer-1", BidAmount: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = store.AddBid(ctx, &models.ContractBid{ContractID: "missing", BidderID: "farmer-1", BidAmount: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	bids, err := store.ListBids(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, early.ID, bids[0].ID)
	assert.Equal(t, late.ID, bids[1].ID)

	status := models.BidStatusRejected
	updated, err := store.UpdateBid(ctx, c.ID, late.ID, models.BidPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusRejected, updated.Status)

	_, err = store.UpdateBid(ctx, c.ID, "missing", models.BidPatch{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContractStore_Ledger(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	c := sampleContract("buyer-1", false)
	require.NoError(t, store.CreateContract(ctx, c))

	d := &models.Delivery{ContractID: c.ID, Date: baseTime, Quantity: 100}
	require.NoError(t, store.AddDelivery(ctx, d))
	assert.Equal(t, models.DeliveryStatusPending, d.Status)

	status := models.DeliveryStatusDelivered
	loc := "Karnal mandi"
	updated, err := store.UpdateDelivery(ctx, c.ID, d.ID, models.DeliveryPatch{Status: &status, Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, status, updated.Status)
	assert.Equal(t, loc, updated.Location)

	first := &models.Payment{ContractID: c.ID, Date: baseTime, Amount: 3000, Status: models.PaymentStatusCompleted, CreatedAt: baseTime}
	second := &models.Payment{ContractID: c.ID, Date: baseTime, Amount: 2000, CreatedAt: baseTime.Add(time.Minute)}
	require.NoError(t, store.AddPayment(ctx, second))
	require.NoError(t, store.AddPayment(ctx, first))

	payments, err := store.ListPayments(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, first.ID, payments[0].ID)
	assert.Equal(t, models.PaymentStatusPending, payments[1].Status)

	err = store.AddPayment(ctx, &models.Payment{ContractID: "missing", Amount: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.UpdatePayment(ctx, "other-contract", first.ID, models.PaymentPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContractStore_DeleteContract(t *testing.T) {
	store := NewContractStore(newTestDB(t))
	ctx := context.Background()

	c := sampleContract("buyer-1", false)
	require.NoError(t, store.CreateContract(ctx, c))
	require.NoError(t, store.AddPayment(ctx, &models.Payment{ContractID: c.ID, Amount: 10, Date: baseTime}))

	require.NoError(t, store.DeleteContract(ctx, c.ID))
	_, err := store.GetContract(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	payments, err := store.ListPayments(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	assert.ErrorIs(t, store.DeleteContract(ctx, c.ID), ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	area := 6.0
	require.NoError(t, repo.Create(ctx, &models.User{ID: "farmer-1", Username: "Ravi", LandArea: &area, LandUnit: models.LandUnitAcre}))

	u, err := repo.FindByUsername(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", u.ID)
	assert.Equal(t, models.RoleFarmer, u.Role)

	err = repo.Create(ctx, &models.User{ID: "farmer-2", Username: "Ravi"})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, repo.SetVerified(ctx, "farmer-1", true))
	u, err = repo.FindByID(ctx, "farmer-1")
	require.NoError(t, err)
	assert.True(t, u.Verified)

	assert.ErrorIs(t, repo.SetVerified(ctx, "nobody", true), ErrNotFound)
	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChatRepository_CreateChannelIsIdempotentPerPair(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	first, err := repo.CreateChannel(ctx, &models.ChatChannel{UserA: "buyer-1", UserB: "farmer-1"})
	require.NoError(t, err)

	second, err := repo.CreateChannel(ctx, &models.ChatChannel{UserA: "farmer-1", UserB: "buyer-1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, repo.AddMessage(ctx, &models.ChatMessage{ChannelID: first.ID, SenderID: models.SystemSender, Type: models.MessageTypeSystem, Content: "hello"}))
	messages, err := repo.ListMessages(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)
}

func TestAuditRepository(t *testing.T) {
	repo := NewAuditRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.AuditLog{ActorID: "buyer-1", Action: models.AuditCreate, Entity: "Contract", EntityID: "c-1", ContractID: "c-1"}))
	entries, err := repo.ListByContract(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditCreate, entries[0].Action)
}
