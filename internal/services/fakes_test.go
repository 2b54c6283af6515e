package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/google/uuid"
)

var errChatDown = errors.New("chat bridge unreachable")

// fakeStore is an in-memory ContractStore honoring the version token
type fakeStore struct {
	repository.ContractStore

	mu         sync.Mutex
	contracts  map[string]*models.Contract
	deliveries map[string][]*models.Delivery
	payments   map[string][]*models.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contracts:  map[string]*models.Contract{},
		deliveries: map[string][]*models.Delivery{},
		payments:   map[string][]*models.Payment{},
	}
}

func cloneContract(c *models.Contract) *models.Contract {
	cp := *c
	cp.Bids = make(models.BidSet, len(c.Bids))
	for id, b := range c.Bids {
		bc := *b
		cp.Bids[id] = &bc
	}
	return &cp
}

func (s *fakeStore) CreateContract(ctx context.Context, c *models.Contract) error {
	if err := c.ValidateBasic(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalid, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	c.Version = 1
	if c.Bids == nil {
		c.Bids = models.BidSet{}
	}
	s.contracts[c.ID] = cloneContract(c)
	return nil
}

func (s *fakeStore) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneContract(c), nil
}

func (s *fakeStore) SaveContractState(ctx context.Context, c *models.Contract, expected int, bids ...*models.ContractBid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.contracts[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != expected {
		return repository.ErrVersionConflict
	}
	for _, b := range bids {
		if existing, ok := stored.Bids.ByBidder(b.BidderID); ok && existing.ID != b.ID {
			return repository.ErrDuplicate
		}
	}

	c.Version = expected + 1
	next := cloneContract(c)
	for _, b := range bids {
		bc := *b
		next.Bids[b.ID] = &bc
	}
	s.contracts[c.ID] = next

	if c.Bids == nil {
		c.Bids = models.BidSet{}
	}
	for _, b := range bids {
		c.Bids[b.ID] = b
	}
	return nil
}

func (s *fakeStore) ListContractsForUser(ctx context.Context, userID string) ([]*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Contract
	for _, c := range s.contracts {
		if c.IsParty(userID) || c.IsOpenTender() {
			out = append(out, cloneContract(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeStore) ListExpiredTenders(ctx context.Context, now time.Time) ([]*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Contract
	for _, c := range s.contracts {
		if c.IsOpenTender() && c.TenderClosed(now) && !c.Bids.HasPending() {
			out = append(out, cloneContract(c))
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteContract(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.contracts, id)
	delete(s.deliveries, id)
	delete(s.payments, id)
	return nil
}

func (s *fakeStore) AddDelivery(ctx context.Context, d *models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[d.ContractID]; !ok {
		return repository.ErrNotFound
	}
	d.ID = uuid.NewString()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	s.deliveries[d.ContractID] = append(s.deliveries[d.ContractID], &cp)
	return nil
}

func (s *fakeStore) UpdateDelivery(ctx context.Context, contractID, id string, patch models.DeliveryPatch) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries[contractID] {
		if d.ID == id {
			patch.Apply(d)
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) ListDeliveries(ctx context.Context, contractID string) ([]*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Delivery, 0, len(s.deliveries[contractID]))
	for _, d := range s.deliveries[contractID] {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) AddPayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[p.ContractID]; !ok {
		return repository.ErrNotFound
	}
	p.ID = uuid.NewString()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.payments[p.ContractID] = append(s.payments[p.ContractID], &cp)
	return nil
}

func (s *fakeStore) UpdatePayment(ctx context.Context, contractID, id string, patch models.PaymentPatch) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments[contractID] {
		if p.ID == id {
			patch.Apply(p)
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) ListPayments(ctx context.Context, contractID string) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Payment, 0, len(s.payments[contractID]))
	for _, p := range s.payments[contractID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// fakeDirectory serves users from a map. With block set every call waits
// for the context to end.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]*models.User
	block bool
}

func newFakeDirectory(users ...*models.User) *fakeDirectory {
	d := &fakeDirectory{users: map[string]*models.User{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) wait(ctx context.Context) error {
	d.mu.Lock()
	block := d.block
	d.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (d *fakeDirectory) IsVerified(ctx context.Context, userID string) (bool, error) {
	if err := d.wait(ctx); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	return ok && u.Verified, nil
}

func (d *fakeDirectory) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *fakeDirectory) FindByID(ctx context.Context, userID string) (*models.User, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// fakeChat keys channels by unordered pair. failOpen makes the next calls
// fail; a negative value fails forever.
type fakeChat struct {
	mu        sync.Mutex
	channels  map[string]string
	messages  map[string][]string
	failOpen  int
	postErr   error
	openCalls int
	// hang blocks channel requests until the caller's context ends
	hang bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{channels: map[string]string{}, messages: map[string][]string{}}
}

func (f *fakeChat) GetOrCreateChannel(ctx context.Context, a, b, contextID string) (string, error) {
	f.mu.Lock()
	f.openCalls++
	if f.hang {
		f.mu.Unlock()
		<-ctx.Done()
		return "", ctx.Err()
	}
	defer f.mu.Unlock()
	if f.failOpen != 0 {
		if f.failOpen > 0 {
			f.failOpen--
		}
		return "", errChatDown
	}
	key := models.PairKey(a, b)
	if id, ok := f.channels[key]; ok {
		return id, nil
	}
	id := fmt.Sprintf("chat-%d", len(f.channels)+1)
	f.channels[key] = id
	return id, nil
}

func (f *fakeChat) PostSystemMessage(ctx context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.messages[channelID] = append(f.messages[channelID], text)
	return nil
}

func (f *fakeChat) set(fn func(f *fakeChat)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeChat) messageCount(channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[channelID])
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func user(id, username, role string, verified bool, land float64, unit string) *models.User {
	u := &models.User{ID: id, Username: username, Role: role, Verified: verified}
	if unit != "" {
		u.LandArea = ptr(land)
		u.LandUnit = unit
	}
	return u
}

func actorOf(u *models.User) Actor {
	return Actor{ID: u.ID, Username: u.Username, Role: u.Role}
}

var (
	buyerUser      = user("u-buyer", "greenmart", models.RoleBuyer, true, 0, "")
	farmerSix      = user("u-ravi", "ravi", models.RoleFarmer, true, 6, models.LandUnitAcre)
	farmerThree    = user("u-sita", "sita", models.RoleFarmer, false, 3, models.LandUnitAcre)
	farmerHectares = user("u-arjun", "arjun", models.RoleFarmer, true, 15, models.LandUnitHectare)
	vendorUser     = user("u-vendor", "agrisupply", models.RoleVendor, false, 0, "")
	consultantUser = user("u-consult", "advisor", models.RoleConsultant, true, 0, "")
	adminUser      = user("u-admin", "root", models.RoleAdmin, true, 0, "")
)

type fixture struct {
	store  *fakeStore
	dir    *fakeDirectory
	chat   *fakeChat
	clock  *FixedClock
	engine *ContractService
	ledger *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newFakeStore(),
		dir:   newFakeDirectory(buyerUser, farmerSix, farmerThree, farmerHectares, vendorUser, consultantUser, adminUser),
		chat:  newFakeChat(),
		clock: NewFixedClock(baseTime),
	}
	f.engine = f.newEngine(EngineOptions{Timeout: time.Second, ChannelRetryAttempts: 3, ChannelRetryBackoff: time.Millisecond})
	f.ledger = NewLedgerService(f.store, f.clock, nil, time.Second)
	return f
}

// newEngine builds a second engine over the same collaborators, like
// another process sharing the store
func (f *fixture) newEngine(opts EngineOptions) *ContractService {
	return NewContractService(f.store, f.dir, f.chat, f.clock, nil, opts)
}

func farmingTenderInput(landAcres float64) ContractInput {
	return ContractInput{
		Title:         "Kharif wheat 2026",
		Type:          models.ContractTypeFarming,
		IsTender:      true,
		TenderEndDate: ptr(baseTime.Add(7 * 24 * time.Hour)),
		StartDate:     baseTime.Add(10 * 24 * time.Hour),
		EndDate:       baseTime.Add(190 * 24 * time.Hour),
		Value:         50000,
		Description:   "Contract farming of wheat on bidder land",
		Terms:         []string{"Buyer collects at farm gate", "  "},
		FarmingDetails: &models.FarmingDetails{
			CropType:         "wheat",
			LandArea:         landAcres,
			LandUnit:         models.LandUnitAcre,
			ExpectedYield:    20,
			YieldUnit:        "quintal",
			FarmingPractices: []string{"organic"},
			SeedsProvided:    true,
			PaymentSchedule: []models.PaymentMilestone{
				{Milestone: "sowing", Percentage: 30},
				{Milestone: "harvest", Percentage: 70},
			},
		},
	}
}

func supplyInput(secondParty string) ContractInput {
	return ContractInput{
		Title:               "Fertilizer supply",
		Type:                models.ContractTypeSupply,
		SecondPartyUsername: secondParty,
		StartDate:           baseTime,
		EndDate:             baseTime.Add(100 * 24 * time.Hour),
		Value:               10000,
		Quantity:            ptr(40.0),
		Unit:                "bags",
		Description:         "Monthly fertilizer delivery",
		Terms:               []string{"Net 30"},
	}
}

func bidInput(amount float64) BidInput {
	return BidInput{
		BidAmount: amount,
		CompanyProfile: models.CompanyProfile{
			Name:          "Green Acres",
			Address:       "Village road 4",
			ContactPerson: "Ravi",
			Phone:         "+91 98450 00000",
		},
	}
}
