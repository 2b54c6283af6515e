package repository

import (
	"context"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the MongoDB store
const (
	contractsCollection  = "contracts"
	deliveriesCollection = "deliveries"
	paymentsCollection   = "payments"
)

// contractDocument is the stored shape of a contract. Bids are embedded and
// keyed by id; bidderIds backs the one-bid-per-bidder rule and
// pendingBidIds lets the expiry sweep skip tenders awaiting a decision.
type contractDocument struct {
	models.Contract `bson:",inline"`
	BidderIDs       []string `bson:"bidderIds"`
	PendingBidIDs   []string `bson:"pendingBidIds"`
}

func newContractDocument(c *models.Contract) contractDocument {
	doc := contractDocument{Contract: *c, BidderIDs: []string{}, PendingBidIDs: []string{}}
	if doc.Bids == nil {
		doc.Bids = models.BidSet{}
	}
	for _, b := range doc.Bids {
		doc.BidderIDs = append(doc.BidderIDs, b.BidderID)
		if b.IsPending() {
			doc.PendingBidIDs = append(doc.PendingBidIDs, b.ID)
		}
	}
	return doc
}

// pendingBidUpdate keeps pendingBidIds in step with a bid's status
func pendingBidUpdate(bid *models.ContractBid) bson.M {
	if bid.IsPending() {
		return bson.M{"$addToSet": bson.M{"pendingBidIds": bid.ID}}
	}
	return bson.M{"$pull": bson.M{"pendingBidIds": bid.ID}}
}

type mongoContractRepository struct {
	db *mongo.Database
}

// NewMongoContractStore creates a MongoDB-backed contract store
func NewMongoContractStore(client *mongo.Client, database string) ContractStore {
	return &mongoContractRepository{db: client.Database(database)}
}

// EnsureMongoIndexes creates the indexes the store relies on
func EnsureMongoIndexes(ctx context.Context, client *mongo.Client, database string) error {
	db := client.Database(database)

	_, err := db.Collection(contractsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creatorId", Value: 1}}},
		{Keys: bson.D{{Key: "parties.firstPartyId", Value: 1}}},
		{Keys: bson.D{{Key: "parties.secondPartyId", Value: 1}}},
		{Keys: bson.D{{Key: "isTender", Value: 1}, {Key: "status", Value: 1}, {Key: "tenderEndDate", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}

	for _, name := range []string{deliveriesCollection, paymentsCollection} {
		_, err := db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "contractId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *mongoContractRepository) contracts() *mongo.Collection {
	return r.db.Collection(contractsCollection)
}

func (r *mongoContractRepository) CreateContract(ctx context.Context, contract *models.Contract) error {
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

	_, err := r.contracts().InsertOne(ctx, newContractDocument(contract))
	return translateError(err)
}

func (r *mongoContractRepository) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	var doc contractDocument
	if err := r.contracts().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (d *contractDocument) toModel() *models.Contract {
	c := d.Contract
	if c.Bids == nil {
		c.Bids = models.BidSet{}
	}
	return &c
}

func (r *mongoContractRepository) UpdateContract(ctx context.Context, id string, patch models.ContractPatch) error {
	set := contractPatchDocument(patch)
	set["updatedAt"] = time.Now().UTC()

	res, err := r.contracts().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// contractPatchDocument renders a patch as a $set document
func contractPatchDocument(p models.ContractPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Terms != nil {
		set["terms"] = p.Terms
	}
	if p.QualityStandards != nil {
		set["qualityStandards"] = *p.QualityStandards
	}
	if p.PaymentTerms != nil {
		set["paymentTerms"] = *p.PaymentTerms
	}
	if p.DeliveryTerms != nil {
		set["deliveryTerms"] = *p.DeliveryTerms
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.ChatID != nil {
		set["chatId"] = *p.ChatID
	}
	if p.ChatAnnouncedAt != nil {
		set["chatAnnouncedAt"] = *p.ChatAnnouncedAt
	}
	if p.CompletedAt != nil {
		set["completedAt"] = *p.CompletedAt
	}
	if p.CancelledAt != nil {
		set["cancelledAt"] = *p.CancelledAt
	}
	if p.ExpiredAt != nil {
		set["expiredAt"] = *p.ExpiredAt
	}
	return set
}

// SaveContractState replaces the whole document when the stored version
// still equals expectedVersion. A single-document write is atomic.
func (r *mongoContractRepository) SaveContractState(ctx context.Context, contract *models.Contract, expectedVersion int, bids ...*models.ContractBid) error {
	if err := contract.ValidateBasic(); err != nil {
		return translateError(err)
	}

	next := *contract
	next.Bids = make(models.BidSet, len(contract.Bids)+len(bids))
	for id, b := range contract.Bids {
		next.Bids[id] = b
	}
	for _, b := range bids {
		b.ContractID = contract.ID
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = time.Now().UTC()
		}
		next.Bids[b.ID] = b
	}
	next.Version = expectedVersion + 1
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}

	doc := newContractDocument(&next)
	if duplicateBidder(doc.BidderIDs) {
		return ErrDuplicate
	}

	res, err := r.contracts().ReplaceOne(ctx, bson.M{"_id": contract.ID, "version": expectedVersion}, doc)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		count, err := r.contracts().CountDocuments(ctx, bson.M{"_id": contract.ID})
		if err != nil {
			return translateError(err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	*contract = next
	return nil
}

func duplicateBidder(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

func (r *mongoContractRepository) findContracts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Contract, error) {
	cur, err := r.contracts().Find(ctx, filter, opts)
	if err != nil {
		return nil, translateError(err)
	}
	defer cur.Close(ctx)

	var contracts []*models.Contract
	for cur.Next(ctx) {
		var doc contractDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		contracts = append(contracts, doc.toModel())
	}
	return contracts, cur.Err()
}

func (r *mongoContractRepository) ListContractsForUser(ctx context.Context, userID string) ([]*models.Contract, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"creatorId": userID},
		bson.M{"parties.firstPartyId": userID},
		bson.M{"parties.secondPartyId": userID},
		bson.M{"isTender": true, "status": models.ContractStatusPending},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	return r.findContracts(ctx, filter, opts)
}

func (r *mongoContractRepository) ListExpiredTenders(ctx context.Context, now time.Time) ([]*models.Contract, error) {
	filter := bson.M{
		"isTender":        true,
		"status":          models.ContractStatusPending,
		"tenderEndDate":   bson.M{"$ne": nil, "$lte": now},
		"pendingBidIds.0": bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.D{{Key: "tenderEndDate", Value: 1}, {Key: "_id", Value: 1}})
	return r.findContracts(ctx, filter, opts)
}

func (r *mongoContractRepository) DeleteContract(ctx context.Context, id string) error {
	res, err := r.contracts().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	for _, name := range []string{deliveriesCollection, paymentsCollection} {
		if _, err := r.db.Collection(name).DeleteMany(ctx, bson.M{"contractId": id}); err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (r *mongoContractRepository) AddBid(ctx context.Context, bid *models.ContractBid) error {
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

	addToSet := bson.M{"bidderIds": bid.BidderID}
	if bid.IsPending() {
		addToSet["pendingBidIds"] = bid.ID
	}
	res, err := r.contracts().UpdateOne(ctx,
		bson.M{"_id": bid.ContractID, "bidderIds": bson.M{"$ne": bid.BidderID}},
		bson.M{
			"$set":      bson.M{"bids." + bid.ID: bid, "updatedAt": bid.BidDate},
			"$addToSet": addToSet,
			"$inc":      bson.M{"version": 1},
		},
	)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		count, err := r.contracts().CountDocuments(ctx, bson.M{"_id": bid.ContractID})
		if err != nil {
			return translateError(err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrDuplicate
	}
	return nil
}

func (r *mongoContractRepository) UpdateBid(ctx context.Context, contractID, bidID string, patch models.BidPatch) (*models.ContractBid, error) {
	c, err := r.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	bid, ok := c.Bids[bidID]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(bid)
	bid.UpdatedAt = time.Now().UTC()

	update := pendingBidUpdate(bid)
	update["$set"] = bson.M{"bids." + bidID: bid}
	update["$inc"] = bson.M{"version": 1}
	res, err := r.contracts().UpdateOne(ctx, bson.M{"_id": contractID, "version": c.Version}, update)
	if err != nil {
		return nil, translateError(err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrVersionConflict
	}
	return bid, nil
}

func (r *mongoContractRepository) ListBids(ctx context.Context, contractID string) ([]*models.ContractBid, error) {
	c, err := r.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return c.Bids.Sorted(), nil
}

func (r *mongoContractRepository) requireContract(ctx context.Context, id string) error {
	count, err := r.contracts().CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func ledgerSort() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
}

func (r *mongoContractRepository) AddDelivery(ctx context.Context, delivery *models.Delivery) error {
	if err := r.requireContract(ctx, delivery.ContractID); err != nil {
		return err
	}
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	stampCreated(&delivery.CreatedAt, &delivery.UpdatedAt)
	if delivery.Status == "" {
		delivery.Status = models.DeliveryStatusPending
	}
	_, err := r.db.Collection(deliveriesCollection).InsertOne(ctx, delivery)
	return translateError(err)
}

func (r *mongoContractRepository) UpdateDelivery(ctx context.Context, contractID, deliveryID string, patch models.DeliveryPatch) (*models.Delivery, error) {
	coll := r.db.Collection(deliveriesCollection)
	filter := bson.M{"_id": deliveryID, "contractId": contractID}

	var delivery models.Delivery
	if err := coll.FindOne(ctx, filter).Decode(&delivery); err != nil {
		return nil, translateError(err)
	}
	patch.Apply(&delivery)
	delivery.UpdatedAt = time.Now().UTC()

	if _, err := coll.ReplaceOne(ctx, filter, &delivery); err != nil {
		return nil, translateError(err)
	}
	return &delivery, nil
}

func (r *mongoContractRepository) ListDeliveries(ctx context.Context, contractID string) ([]*models.Delivery, error) {
	cur, err := r.db.Collection(deliveriesCollection).Find(ctx, bson.M{"contractId": contractID}, ledgerSort())
	if err != nil {
		return nil, translateError(err)
	}
	var deliveries []*models.Delivery
	if err := cur.All(ctx, &deliveries); err != nil {
		return nil, translateError(err)
	}
	return deliveries, nil
}

func (r *mongoContractRepository) AddPayment(ctx context.Context, payment *models.Payment) error {
	if err := r.requireContract(ctx, payment.ContractID); err != nil {
		return err
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	stampCreated(&payment.CreatedAt, &payment.UpdatedAt)
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	_, err := r.db.Collection(paymentsCollection).InsertOne(ctx, payment)
	return translateError(err)
}

func (r *mongoContractRepository) UpdatePayment(ctx context.Context, contractID, paymentID string, patch models.PaymentPatch) (*models.Payment, error) {
	coll := r.db.Collection(paymentsCollection)
	filter := bson.M{"_id": paymentID, "contractId": contractID}

	var payment models.Payment
	if err := coll.FindOne(ctx, filter).Decode(&payment); err != nil {
		return nil, translateError(err)
	}
	patch.Apply(&payment)
	payment.UpdatedAt = time.Now().UTC()

	if _, err := coll.ReplaceOne(ctx, filter, &payment); err != nil {
		return nil, translateError(err)
	}
	return &payment, nil
}

func (r *mongoContractRepository) ListPayments(ctx context.Context, contractID string) ([]*models.Payment, error) {
	cur, err := r.db.Collection(paymentsCollection).Find(ctx, bson.M{"contractId": contractID}, ledgerSort())
	if err != nil {
		return nil, translateError(err)
	}
	var payments []*models.Payment
	if err := cur.All(ctx, &payments); err != nil {
		return nil, translateError(err)
	}
	return payments, nil
}
