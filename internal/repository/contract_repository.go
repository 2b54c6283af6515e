package repository

import (
	"context"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContractStore defines durable storage for contracts and their bid,
// delivery and payment sub-collections
type ContractStore interface {
	CreateContract(ctx context.Context, contract *models.Contract) error
	GetContract(ctx context.Context, id string) (*models.Contract, error)
	UpdateContract(ctx context.Context, id string, patch models.ContractPatch) error
	SaveContractState(ctx context.Context, contract *models.Contract, expectedVersion int, bids ...*models.ContractBid) error
	ListContractsForUser(ctx context.Context, userID string) ([]*models.Contract, error)
	ListExpiredTenders(ctx context.Context, now time.Time) ([]*models.Contract, error)
	DeleteContract(ctx context.Context, id string) error

	AddBid(ctx context.Context, bid *models.ContractBid) error
	UpdateBid(ctx context.Context, contractID, bidID string, patch models.BidPatch) (*models.ContractBid, error)
	ListBids(ctx context.Context, contractID string) ([]*models.ContractBid, error)

	AddDelivery(ctx context.Context, delivery *models.Delivery) error
	UpdateDelivery(ctx context.Context, contractID, deliveryID string, patch models.DeliveryPatch) (*models.Delivery, error)
	ListDeliveries(ctx context.Context, contractID string) ([]*models.Delivery, error)

	AddPayment(ctx context.Context, payment *models.Payment) error
	UpdatePayment(ctx context.Context, contractID, paymentID string, patch models.PaymentPatch) (*models.Payment, error)
	ListPayments(ctx context.Context, contractID string) ([]*models.Payment, error)
}

type contractRepository struct {
	db *gorm.DB
}

// NewContractStore creates a gorm-backed contract store
func NewContractStore(db *gorm.DB) ContractStore {
	return &contractRepository{db: db}
}

func (r *contractRepository) CreateContract(ctx context.Context, contract *models.Contract) error {
	if err := contract.ValidateBasic(); err != nil {
		return translateError(err)
	}
	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = time.Now().UTC()
	}
	contract.UpdatedAt = contract.CreatedAt
	contract.Version = 1
	if contract.Bids == nil {
		contract.Bids = models.BidSet{}
	}
	return translateError(r.db.WithContext(ctx).Create(contract).Error)
}

func (r *contractRepository) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error; err != nil {
		return nil, translateError(err)
	}
	if err := r.attachBids(ctx, r.db, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) UpdateContract(ctx context.Context, id string, patch models.ContractPatch) error {
	cols := patch.Columns()
	cols["updated_at"] = time.Now().UTC()
	cols["version"] = gorm.Expr("version + 1")

	res := r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveContractState writes every contract field and the given bids in one
// transaction, guarded by the optimistic version token
func (r *contractRepository) SaveContractState(ctx context.Context, contract *models.Contract, expectedVersion int, bids ...*models.ContractBid) error {
	if err := contract.ValidateBasic(); err != nil {
		return translateError(err)
	}

	updatedAt := contract.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract.Version = expectedVersion + 1
		contract.UpdatedAt = updatedAt

		res := tx.Model(&models.Contract{}).
			Where("id = ? AND version = ?", contract.ID, expectedVersion).
			Select("*").
			Omit("id", "created_at").
			Updates(contract)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Contract{}).Where("id = ?", contract.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		for _, bid := range bids {
			bid.ContractID = contract.ID
			if err := tx.Save(bid).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		contract.Version = expectedVersion
		return translateError(err)
	}

	if contract.Bids == nil {
		contract.Bids = models.BidSet{}
	}
	for _, bid := range bids {
		contract.Bids[bid.ID] = bid
	}
	return nil
}

func (r *contractRepository) ListContractsForUser(ctx context.Context, userID string) ([]*models.Contract, error) {
	var contracts []*models.Contract
	err := r.db.WithContext(ctx).
		Where("creator_id = ? OR first_party_id = ? OR second_party_id = ?", userID, userID, userID).
		Or("is_tender = ? AND status = ?", true, models.ContractStatusPending).
		Order("created_at DESC, id ASC").
		Find(&contracts).Error
	if err != nil {
		return nil, translateError(err)
	}
	if err := r.attachBids(ctx, r.db, contracts...); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *contractRepository) ListExpiredTenders(ctx context.Context, now time.Time) ([]*models.Contract, error) {
	var contracts []*models.Contract
	// Tenders still holding pending bids wait for the creator's decision.
	pending := r.db.Model(&models.ContractBid{}).Select("1").
		Where("contract_bids.contract_id = contracts.id AND contract_bids.status = ?", models.BidStatusPending)
	err := r.db.WithContext(ctx).
		Where("is_tender = ? AND status = ? AND tender_end_date IS NOT NULL AND tender_end_date <= ?",
			true, models.ContractStatusPending, now).
		Where("NOT EXISTS (?)", pending).
		Order("tender_end_date ASC, id ASC").
		Find(&contracts).Error
	if err != nil {
		return nil, translateError(err)
	}
	if err := r.attachBids(ctx, r.db, contracts...); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *contractRepository) DeleteContract(ctx context.Context, id string) error {
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&models.ContractBid{}, &models.Delivery{}, &models.Payment{}} {
			if err := tx.Where("contract_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Contract{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

// attachBids loads the bid sub-collection of every contract in one query
func (r *contractRepository) attachBids(ctx context.Context, db *gorm.DB, contracts ...*models.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(contracts))
	byID := make(map[string]*models.Contract, len(contracts))
	for _, c := range contracts {
		c.Bids = models.BidSet{}
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	var bids []*models.ContractBid
	if err := db.WithContext(ctx).Where("contract_id IN ?", ids).Find(&bids).Error; err != nil {
		return translateError(err)
	}
	for _, b := range bids {
		if c, ok := byID[b.ContractID]; ok {
			c.Bids[b.ID] = b
		}
	}
	return nil
}

func (r *contractRepository) contractExists(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contractRepository) AddBid(ctx context.Context, bid *models.ContractBid) error {
	if err := r.contractExists(ctx, bid.ContractID); err != nil {
		return err
	}
	if bid.ID == "" {
		bid.ID = uuid.NewString()
	}
	if bid.BidDate.IsZero() {
		bid.BidDate = time.Now().UTC()
	}
	bid.UpdatedAt = bid.BidDate
	if bid.Status == "" {
		bid.Status = models.BidStatusPending
	}
	return translateError(r.db.WithContext(ctx).Create(bid).Error)
}

func (r *contractRepository) UpdateBid(ctx context.Context, contractID, bidID string, patch models.BidPatch) (*models.ContractBid, error) {
	var bid models.ContractBid
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND contract_id = ?", bidID, contractID).First(&bid).Error; err != nil {
			return err
		}
		patch.Apply(&bid)
		bid.UpdatedAt = time.Now().UTC()
		return tx.Save(&bid).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &bid, nil
}

func (r *contractRepository) ListBids(ctx context.Context, contractID string) ([]*models.ContractBid, error) {
	if err := r.contractExists(ctx, contractID); err != nil {
		return nil, err
	}
	var bids []*models.ContractBid
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("bid_date ASC, id ASC").
		Find(&bids).Error
	return bids, translateError(err)
}

func (r *contractRepository) AddDelivery(ctx context.Context, delivery *models.Delivery) error {
	if err := r.contractExists(ctx, delivery.ContractID); err != nil {
		return err
	}
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	stampCreated(&delivery.CreatedAt, &delivery.UpdatedAt)
	if delivery.Status == "" {
		delivery.Status = models.DeliveryStatusPending
	}
	return translateError(r.db.WithContext(ctx).Create(delivery).Error)
}

func (r *contractRepository) UpdateDelivery(ctx context.Context, contractID, deliveryID string, patch models.DeliveryPatch) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND contract_id = ?", deliveryID, contractID).First(&delivery).Error; err != nil {
			return err
		}
		patch.Apply(&delivery)
		delivery.UpdatedAt = time.Now().UTC()
		return tx.Save(&delivery).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &delivery, nil
}

func (r *contractRepository) ListDeliveries(ctx context.Context, contractID string) ([]*models.Delivery, error) {
	var deliveries []*models.Delivery
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC, id ASC").
		Find(&deliveries).Error
	return deliveries, translateError(err)
}

func (r *contractRepository) AddPayment(ctx context.Context, payment *models.Payment) error {
	if err := r.contractExists(ctx, payment.ContractID); err != nil {
		return err
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	stampCreated(&payment.CreatedAt, &payment.UpdatedAt)
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	return translateError(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *contractRepository) UpdatePayment(ctx context.Context, contractID, paymentID string, patch models.PaymentPatch) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND contract_id = ?", paymentID, contractID).First(&payment).Error; err != nil {
			return err
		}
		patch.Apply(&payment)
		payment.UpdatedAt = time.Now().UTC()
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &payment, nil
}

func (r *contractRepository) ListPayments(ctx context.Context, contractID string) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error
	return payments, translateError(err)
}

func stampCreated(createdAt, updatedAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	*updatedAt = *createdAt
}
