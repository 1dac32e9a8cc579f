// Package mongostore implements the repository interfaces on MongoDB.
//
// MongoDB offers no multi-document transaction on a standalone server, so
// Record writes the payment first. The unique index on transactionId makes
// the payment collection the source of truth; a parcel left unpaid by a
// crash between the two writes is repaired by the reconciliation sweep.
package mongostore

import (
	"context" // context carries deadlines and cancellation
	"errors"  // errors for sentinel matching
	"fmt"     // fmt wraps errors with context
	"time"    // time for timestamps and timeouts

	"go.mongodb.org/mongo-driver/bson"           // bson builds filters and documents
	"go.mongodb.org/mongo-driver/bson/primitive" // primitive holds ObjectIDs
	"go.mongodb.org/mongo-driver/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/mongo/options"  // options for finds and indexes

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

// Collection names.
const (
	ParcelCollection  = "zapParcels"
	PaymentCollection = "payments"
	UserCollection    = "users"
	RiderCollection   = "riders"
)

type Store struct {
	parcels  *mongo.Collection
	payments *mongo.Collection
	users    *mongo.Collection
	riders   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		parcels:  db.Collection(ParcelCollection),
		payments: db.Collection(PaymentCollection),
		users:    db.Collection(UserCollection),
		riders:   db.Collection(RiderCollection),
	}
}

func (s *Store) Parcels() repository.ParcelStore   { return parcelStore{s} }
func (s *Store) Payments() repository.PaymentStore { return paymentStore{s} }
func (s *Store) Users() repository.UserStore       { return userStore{s} }
func (s *Store) Riders() repository.RiderStore     { return riderStore{s} }

// EnsureIndexes creates the indexes the store relies on. The unique index
// on payments.transactionId is what enforces one payment per transaction.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.payments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "paidAt", Value: -1}}},
		{Keys: bson.D{{Key: "paidAt", Value: 1}, {Key: "transactionId", Value: 1}}}, // sweep keyset
	}); err != nil {
		return fmt.Errorf("payments indexes: %w", err)
	}
	if _, err := s.parcels.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "senderEmail", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("parcels indexes: %w", err)
	}
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	return nil
}

// objectID parses a hex id; malformed ids can never match a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrNotFound
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

type parcelDoc struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty"`
	ParcelName    string              `bson:"parcelName"`
	SenderEmail   string              `bson:"senderEmail"`
	Cost          float64             `bson:"cost"`
	PaymentStatus model.PaymentStatus `bson:"paymentStatus"`
	TrackingID    *string             `bson:"trackingId,omitempty"`
	CreatedAt     time.Time           `bson:"created_at"`
	Details       model.ParcelDetails `bson:",inline"`
}

func (d parcelDoc) model() model.Parcel {
	return model.Parcel{
		ID:            d.ID.Hex(),
		ParcelName:    d.ParcelName,
		SenderEmail:   d.SenderEmail,
		Cost:          d.Cost,
		PaymentStatus: d.PaymentStatus,
		TrackingID:    d.TrackingID,
		CreatedAt:     d.CreatedAt,
		ParcelDetails: d.Details,
	}
}

type parcelStore struct{ s *Store }

func (ps parcelStore) List(ctx context.Context, f repository.ParcelFilter) ([]model.Parcel, error) {
	filter := bson.M{}
	if f.SenderEmail != "" {
		filter["senderEmail"] = f.SenderEmail
	}
	cur, err := ps.s.parcels.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find parcels: %w", err)
	}
	var docs []parcelDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode parcels: %w", err)
	}
	out := make([]model.Parcel, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (ps parcelStore) Create(ctx context.Context, p *model.Parcel) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.PaymentStatus = model.PaymentUnpaid
	p.TrackingID = nil
	res, err := ps.s.parcels.InsertOne(ctx, parcelDoc{
		ParcelName:    p.ParcelName,
		SenderEmail:   p.SenderEmail,
		Cost:          p.Cost,
		PaymentStatus: p.PaymentStatus,
		CreatedAt:     p.CreatedAt,
		Details:       p.ParcelDetails,
	})
	if err != nil {
		return fmt.Errorf("insert parcel: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

func (ps parcelStore) GetByID(ctx context.Context, id string) (*model.Parcel, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d parcelDoc
	if err := ps.s.parcels.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	p := d.model()
	return &p, nil
}

func (ps parcelStore) Delete(ctx context.Context, id string) (int64, error) {
	oid, err := objectID(id)
	if err != nil {
		return 0, nil
	}
	res, err := ps.s.parcels.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("delete parcel: %w", err)
	}
	return res.DeletedCount, nil
}

func (ps parcelStore) MarkPaid(ctx context.Context, id, trackingID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := ps.s.parcels.UpdateOne(ctx,
		bson.M{"_id": oid, "paymentStatus": model.PaymentUnpaid},
		bson.M{"$set": bson.M{"paymentStatus": model.PaymentPaid, "trackingId": trackingID}})
	if err != nil {
		return fmt.Errorf("mark parcel paid: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := ps.s.parcels.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrAlreadyPaid
}
